package http

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/asifrahman/smart-multiplug-system/internal/domain"
	"github.com/asifrahman/smart-multiplug-system/internal/service"
)

// telemetryRequest uses pointers so absent fields are distinguishable
// from zero readings; all fields are required.
type telemetryRequest struct {
	Port    *int     `json:"port"`
	Voltage *float64 `json:"voltage"`
	Current *float64 `json:"current"`
	Power   *float64 `json:"power"`
}

type toggleRequest struct {
	Port *int `json:"port"`
}

type rateRequest struct {
	Rate *float64 `json:"rate"`
}

func Register(app *fiber.App, svc *service.Service) {
	api := app.Group("/api")

	api.Post("/telemetry", func(c *fiber.Ctx) error {
		var req telemetryRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		if req.Port == nil || req.Voltage == nil || req.Current == nil || req.Power == nil {
			return badRequest(c, "missing required fields")
		}
		result, err := svc.IngestSample(c.Context(), domain.TelemetrySample{
			Port:    *req.Port,
			Voltage: *req.Voltage,
			Current: *req.Current,
			Power:   *req.Power,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(result)
	})

	api.Get("/control", func(c *fiber.Ctx) error {
		state, err := svc.ControlState(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(state)
	})

	api.Get("/limits", func(c *fiber.Ctx) error {
		return c.JSON(svc.SafetyLimits(c.Context()))
	})

	api.Post("/relay/toggle", func(c *fiber.Ctx) error {
		var req toggleRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		if req.Port == nil {
			return badRequest(c, "missing port")
		}
		state, err := svc.ToggleRelay(c.Context(), *req.Port)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"port": *req.Port, "state": state})
	})

	api.Post("/alert/emergency", func(c *fiber.Ctx) error {
		var report domain.EmergencyReport
		if err := c.BodyParser(&report); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		alert, err := svc.RecordEmergency(c.Context(), report)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(alert)
	})

	api.Get("/dashboard", func(c *fiber.Ctx) error {
		data, err := svc.Dashboard(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(data)
	})

	api.Get("/alerts", func(c *fiber.Ctx) error {
		alerts, err := svc.UnacknowledgedAlerts(c.Context(), c.QueryInt("limit", 50))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(alerts)
	})

	api.Post("/alerts/:id/ack", func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil {
			return badRequest(c, "invalid alert id")
		}
		if err := svc.AcknowledgeAlert(c.Context(), int64(id)); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	api.Post("/settings/rate", func(c *fiber.Ctx) error {
		var req rateRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		if req.Rate == nil || *req.Rate <= 0 {
			return badRequest(c, "rate must be a positive number")
		}
		if err := svc.SetRate(c.Context(), *req.Rate); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})

	api.Post("/reset-daily", func(c *fiber.Ctx) error {
		if err := svc.ResetDaily(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// fail maps core errors onto transport codes: validation errors were
// rejected before any mutation (400), a row that does not exist is 404,
// storage timeouts are transient and retryable (503), anything else is a
// plain server error.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidPort):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, sql.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "storage timeout, retry"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
