package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/asifrahman/smart-multiplug-system/internal/config"
	"github.com/asifrahman/smart-multiplug-system/internal/database"
	"github.com/asifrahman/smart-multiplug-system/internal/domain"
	"github.com/asifrahman/smart-multiplug-system/internal/repository"
	"github.com/asifrahman/smart-multiplug-system/internal/service"
	"github.com/asifrahman/smart-multiplug-system/internal/settings"
)

// The ingestor is the MQTT-facing twin of the HTTP telemetry endpoint:
// nodes that already speak MQTT publish samples to the telemetry topic
// and they flow through the exact same ingest pipeline.
func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("schema migrate failed")
	}

	repos := repository.New(db)
	registry := settings.NewRegistry(repos)
	svc := service.New(repos, registry, service.Options{
		Ports:           config.PortCount(),
		IntervalMinutes: config.IntervalMinutes(),
		StoreTimeout:    config.StoreTimeout(),
	})

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var sample domain.TelemetrySample
		if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
			log.Error().Err(err).Msg("bad telemetry payload")
			return
		}
		if _, err := svc.IngestSample(context.Background(), sample); err != nil {
			if errors.Is(err, service.ErrInvalidPort) {
				log.Warn().Err(err).Msg("telemetry rejected")
				return
			}
			log.Error().Err(err).Int("port", sample.Port).Msg("ingest failed")
		}
	}

	if token := client.Subscribe(config.TelemetryTopic(), 0, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	log.Info().Str("topic", config.TelemetryTopic()).Msg("ingestor running; Ctrl+C to stop")
	for {
		time.Sleep(10 * time.Second)
	}
}
