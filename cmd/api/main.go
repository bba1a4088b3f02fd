package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/asifrahman/smart-multiplug-system/internal/broadcast"
	"github.com/asifrahman/smart-multiplug-system/internal/cloud"
	"github.com/asifrahman/smart-multiplug-system/internal/config"
	"github.com/asifrahman/smart-multiplug-system/internal/database"
	httpHandlers "github.com/asifrahman/smart-multiplug-system/internal/http"
	"github.com/asifrahman/smart-multiplug-system/internal/repository"
	"github.com/asifrahman/smart-multiplug-system/internal/service"
	"github.com/asifrahman/smart-multiplug-system/internal/settings"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

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

	opts := service.Options{
		Ports:           config.PortCount(),
		IntervalMinutes: config.IntervalMinutes(),
		StoreTimeout:    config.StoreTimeout(),
	}

	publisher, err := broadcast.NewPublisher(config.MQTTBroker(), config.UpdatesTopic())
	if err != nil {
		log.Warn().Err(err).Msg("mqtt broker unreachable, dashboard push disabled")
	} else {
		defer publisher.Close()
		opts.Broadcaster = publisher
	}

	if config.UseCloudServices() {
		ctx := context.Background()
		if arn := config.SNSTopicArn(); arn != "" {
			notifier, err := cloud.NewSNSClient(ctx, config.AWSRegion(), arn)
			if err != nil {
				log.Warn().Err(err).Msg("sns init failed, notifications disabled")
			} else {
				opts.Notifier = notifier
			}
		}
		archiver, err := cloud.NewS3Client(ctx, config.AWSRegion(), config.S3Bucket())
		if err != nil {
			log.Warn().Err(err).Msg("s3 init failed, alert archive disabled")
		} else {
			opts.Archiver = archiver
		}
	}

	svc := service.New(repos, registry, opts)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go svc.RunSweeper(sweepCtx, config.SweepInterval())

	app := fiber.New()
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	httpHandlers.Register(app, svc)

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Int("ports", config.PortCount()).Msg("api listening")
	log.Fatal().Err(app.Listen(addr)).Msg("server exit")
}
