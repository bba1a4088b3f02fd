package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/asifrahman/smart-multiplug-system/internal/config"
	"github.com/spf13/viper"
)

// The dashboard relay bridges the core's MQTT update stream to browser
// websocket clients. It holds no state of its own; every update the api
// publishes is forwarded verbatim.
func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	viper.SetDefault("DASHBOARD_ADDR", ":3000")

	s, err := newServer(config.MQTTBroker(), config.UpdatesTopic())
	if err != nil {
		log.Fatal().Err(err).Msg("dashboard init failed")
	}
	defer s.Close()

	addr := viper.GetString("DASHBOARD_ADDR")
	log.Info().Str("addr", addr).Msg("dashboard relay listening")
	log.Fatal().Err(http.ListenAndServe(addr, s)).Msg("server exit")
}
