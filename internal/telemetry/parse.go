// Package telemetry extracts pitch and roll from the glove's free-text
// serial output, e.g. "Pitch: 12.5 Roll: -7.0".
package telemetry

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/relabs-tech/gesture_arm/internal/orientation"
)

const (
	pitchLabel = "pitch:"
	rollLabel  = "roll:"
)

var (
	// ErrMissingLabel is returned when "Pitch:" or "Roll:" is absent.
	ErrMissingLabel = errors.New("telemetry: missing label")
	// ErrEmptyValue is returned when a label is not followed by a number.
	ErrEmptyValue = errors.New("telemetry: empty value")
	// ErrInvalidValue is returned when the collected token is not a number,
	// e.g. "1.2.3" or "+-4".
	ErrInvalidValue = errors.New("telemetry: invalid value")
)

// Parse finds both labels in data and returns the numbers that follow them.
// Labels match ASCII case-insensitively and may appear in either order with
// arbitrary text around them. Values are not range checked.
func Parse(data string) (orientation.Pose, error) {
	pitchAt := indexFold(data, pitchLabel)
	if pitchAt < 0 {
		return orientation.Pose{}, fmt.Errorf("%w %q", ErrMissingLabel, "Pitch:")
	}
	rollAt := indexFold(data, rollLabel)
	if rollAt < 0 {
		return orientation.Pose{}, fmt.Errorf("%w %q", ErrMissingLabel, "Roll:")
	}

	pitch, err := parseValue(data, pitchAt+len(pitchLabel), "pitch")
	if err != nil {
		return orientation.Pose{}, err
	}
	roll, err := parseValue(data, rollAt+len(rollLabel), "roll")
	if err != nil {
		return orientation.Pose{}, err
	}
	return orientation.Pose{Pitch: pitch, Roll: roll}, nil
}

func parseValue(data string, start int, name string) (float64, error) {
	tok := scanNumber(data, start)
	if tok == "" {
		return 0, fmt.Errorf("%w for %s", ErrEmptyValue, name)
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w for %s %q: %v", ErrInvalidValue, name, tok, err)
	}
	return v, nil
}

// scanNumber collects the maximal run of [0-9+-.] starting at start. Spaces
// and tabs are skipped; any other byte ends the run.
func scanNumber(data string, start int) string {
	tok := make([]byte, 0, 16)
	for i := start; i < len(data); i++ {
		c := data[i]
		switch {
		case c >= '0' && c <= '9', c == '.', c == '-', c == '+':
			tok = append(tok, c)
		case c == ' ' || c == '\t':
		default:
			return string(tok)
		}
	}
	return string(tok)
}

// indexFold is strings.Index with ASCII-only case folding. needle must be
// lower case. Non-ASCII bytes never match, so the result does not depend on
// locale or Unicode folding rules.
func indexFold(s, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(s); i++ {
		match := true
		for j := 0; j < n; j++ {
			if lowerASCII(s[i+j]) != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
