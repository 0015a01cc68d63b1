// Package command maps a glove pose to the single-letter robot command.
package command

import "github.com/relabs-tech/gesture_arm/internal/orientation"

// Command is one ASCII byte written to the robot controller.
type Command byte

// Robot commands.
const (
	Stop  Command = 'S'
	Left  Command = 'L'
	Right Command = 'R'
	Up    Command = 'U'
	Down  Command = 'D'
)

// Threshold is the tilt, in degrees, beyond which the glove commands motion.
const Threshold = 30.0

// FromPose maps a pose to a command. Pitch is checked before roll, so a
// glove tilted past the threshold on both axes always moves Left or Right.
func FromPose(p orientation.Pose) Command {
	switch {
	case p.Pitch > Threshold:
		return Left
	case p.Pitch < -Threshold:
		return Right
	case p.Roll > Threshold:
		return Up
	case p.Roll < -Threshold:
		return Down
	default:
		return Stop
	}
}

// String returns the wire form of c.
func (c Command) String() string {
	return string(rune(c))
}

// Name returns a human-readable name for logs and displays.
func (c Command) Name() string {
	switch c {
	case Stop:
		return "stop"
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the five robot commands.
func (c Command) Valid() bool {
	switch c {
	case Stop, Left, Right, Up, Down:
		return true
	}
	return false
}
