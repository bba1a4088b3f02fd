package main

import (
	"context"
	"math/rand"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/asifrahman/smart-multiplug-system/internal/config"
	"github.com/asifrahman/smart-multiplug-system/internal/domain"
	"github.com/asifrahman/smart-multiplug-system/internal/node"
)

// Simulated embedded controller. Each port mimics the load profile of a
// typical appliance; a port whose relay is off reads zero across the
// board, exactly like a real multiplug.
type simSampler struct {
	relayOn func(port int) bool
}

func (s *simSampler) Sample(port int) domain.TelemetrySample {
	sample := domain.TelemetrySample{Port: port}
	if !s.relayOn(port) {
		return sample
	}
	var power float64
	switch port {
	case 1: // AC / heater
		if rand.Float64() > 0.3 {
			power = 800 + rand.Float64()*400
		}
	case 2: // refrigerator
		if rand.Float64() > 0.1 {
			power = 150 + rand.Float64()*150
		}
	case 3: // LED lights
		if rand.Float64() > 0.2 {
			power = 20 + rand.Float64()*40
		}
	default: // occasionally used
		if rand.Float64() > 0.7 {
			power = 50 + rand.Float64()*150
		}
	}
	if power > 0 {
		sample.Voltage = 215 + rand.Float64()*10
		sample.Current = power / sample.Voltage
		sample.Power = power
	}
	return sample
}

type logRelay struct{}

func (logRelay) Set(port int, on bool) {
	log.Info().Int("port", port).Bool("on", on).Msg("physical relay driven")
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	viper.SetDefault("NODE_SERVER_URL", "http://localhost:8080")

	cfg := node.Config{
		ServerURL: viper.GetString("NODE_SERVER_URL"),
		Ports:     config.PortCount(),
	}

	sampler := &simSampler{}
	n := node.New(cfg, sampler, logRelay{})
	sampler.relayOn = n.RelayOn

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("server", cfg.ServerURL).Msg("embedded node simulator starting")
	n.Run(ctx)
}
