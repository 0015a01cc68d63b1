package app

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_arm/internal/bridge"
	"github.com/relabs-tech/gesture_arm/internal/config"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// displayState holds the latest decision for the OLED.
type displayState struct {
	mu       sync.RWMutex
	decision bridge.Decision
	have     bool
}

func (s *displayState) set(d bridge.Decision) {
	s.mu.Lock()
	s.decision = d
	s.have = true
	s.mu.Unlock()
}

func (s *displayState) get() (bridge.Decision, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decision, s.have
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderDecision draws pitch, roll and the last command.
func renderDecision(d bridge.Decision, have bool) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	if !have {
		drawLine(drawer, 0, 26, "Gesture Arm")
		drawLine(drawer, 0, 39, "Waiting...")
		return img
	}

	drawLine(drawer, 0, 13, fmt.Sprintf("P: %7.1f", d.Pitch))
	drawLine(drawer, 0, 26, fmt.Sprintf("R: %7.1f", d.Roll))
	drawLine(drawer, 0, 45, fmt.Sprintf("CMD: %s %s", d.Command, commandName(d.Command)))
	if !d.Sent {
		drawLine(drawer, 0, 58, "robot write failed")
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()
	drawLine(drawer, 10, 26, "Gesture Arm")
	drawLine(drawer, 5, 43, "Waiting for")
	drawLine(drawer, 25, 56, "glove")
	return img
}

// RunDisplay shows the bridge's latest decision on an SSD1306 OLED.
func RunDisplay(cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("display needs MQTT_BROKER")
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Info().Msg("display: initialized")

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Warn().Err(err).Msg("display: error showing splash")
	}

	state := &displayState{}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMs)

	if err := subscribeJSON(client, cfg.TopicCommand, log.Logger, state.set); err != nil {
		return err
	}

	ticker := time.NewTicker(config.Millis(cfg.DisplayUpdateInterval))
	defer ticker.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return dev.Halt()
		case <-ticker.C:
		}

		d, have := state.get()
		if err := dev.Draw(dev.Bounds(), renderDecision(d, have), image.Point{}); err != nil {
			log.Warn().Err(err).Msg("display: error updating display")
		}
	}
}
