package main

import (
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/relabs-tech/gesture_arm/internal/app"
	"github.com/relabs-tech/gesture_arm/internal/config"
	"github.com/relabs-tech/gesture_arm/internal/logging"
)

func main() {
	configPath := flag.String("config", "./gesture_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		logging.Setup("info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()
	logging.Setup(cfg.LogLevel)

	log.Info().Msg("starting gesture-arm OLED display (MQTT subscriber)")

	if err := app.RunDisplay(cfg); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
