package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/gesture_arm/internal/bridge"
	"github.com/relabs-tech/gesture_arm/internal/command"
	"github.com/relabs-tech/gesture_arm/internal/config"
	"github.com/relabs-tech/gesture_arm/internal/orientation"
)

func printPose(w io.Writer, p orientation.Pose) {
	fmt.Fprintf(w, "[POSE] PITCH=%7.2f  ROLL=%7.2f\n", p.Pitch, p.Roll)
}

func printDecision(w io.Writer, d bridge.Decision) {
	status := "sent"
	if !d.Sent {
		status = "FAILED"
	}
	fmt.Fprintf(w, "[CMD ] PITCH=%7.2f  ROLL=%7.2f  -> %s (%s) %s\n",
		d.Pitch, d.Roll, d.Command, commandName(d.Command), status)
}

// RunConsoleMQTT prints poses and decisions published by the bridge and
// peripheral until SIGINT/SIGTERM.
func RunConsoleMQTT(cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return fmt.Errorf("console needs MQTT_BROKER")
	}
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMs)
	log.Info().Str("broker", cfg.MQTTBroker).Msg("console: connected to MQTT broker")

	if err := subscribeJSON(client, cfg.TopicPose, log.Logger, func(p orientation.Pose) {
		printPose(os.Stdout, p)
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicCommand, log.Logger, func(d bridge.Decision) {
		printDecision(os.Stdout, d)
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("console: shutting down")
	return nil
}

func commandName(s string) string {
	if len(s) != 1 {
		return "?"
	}
	return command.Command(s[0]).Name()
}
