package handlers

import (
	"errors"
	"time"

	"github.com/fenilmodi00/deals-backend/jobs"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AdminHandler struct {
	DealJob *jobs.DealUpdateJob
}

func NewAdminHandler(dealJob *jobs.DealUpdateJob) *AdminHandler {
	return &AdminHandler{
		DealJob: dealJob,
	}
}

// RequireAdminToken guards admin routes with a shared token carried in the
// X-Admin-Token header. An empty configured token leaves the routes open,
// which is the local-development default.
func RequireAdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token != "" && c.Get("X-Admin-Token") != token {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid admin token",
			})
		}
		return c.Next()
	}
}

// TriggerDealUpdate manually triggers the deal update job
func (h *AdminHandler) TriggerDealUpdate(c *fiber.Ctx) error {
	logrus.Info("Manual deal update triggered via admin endpoint")

	startTime := time.Now()

	if err := h.DealJob.Run(); err != nil {
		if errors.Is(err, jobs.ErrRunInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":  false,
			"error":    err.Error(),
			"duration": time.Since(startTime).String(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Deal update job completed",
		"duration":  time.Since(startTime).String(),
		"timestamp": time.Now(),
	})
}
