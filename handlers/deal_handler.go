package handlers

import (
	"sort"

	"github.com/fenilmodi00/deals-backend/database"
	"github.com/fenilmodi00/deals-backend/jobs"
	"github.com/fenilmodi00/deals-backend/models"
	"github.com/gofiber/fiber/v2"
)

type DealHandler struct {
	Store *database.DealStore
	Job   *jobs.DealUpdateJob
}

func NewDealHandler(store *database.DealStore, job *jobs.DealUpdateJob) *DealHandler {
	return &DealHandler{
		Store: store,
		Job:   job,
	}
}

// GetDeals returns the current snapshot: the deals reported on the last run
// that produced changes.
func (h *DealHandler) GetDeals(c *fiber.Ctx) error {
	snapshot, err := h.Store.ReadAll(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to read deal snapshot: " + err.Error(),
		})
	}

	deals := make([]models.ProductVariant, 0, len(snapshot))
	for _, deal := range snapshot {
		deals = append(deals, deal)
	}
	sort.Slice(deals, func(i, j int) bool {
		if deals[i].Brand != deals[j].Brand {
			return deals[i].Brand < deals[j].Brand
		}
		if deals[i].Model != deals[j].Model {
			return deals[i].Model < deals[j].Model
		}
		return deals[i].CashPrice < deals[j].CashPrice
	})

	return c.JSON(fiber.Map{
		"success": true,
		"data":    deals,
		"count":   len(deals),
	})
}

// GetLatestReport returns the summary of the most recent deal update run.
func (h *DealHandler) GetLatestReport(c *fiber.Ctx) error {
	lastRun := h.Job.LastRun()
	if lastRun == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "No deal update run has completed yet",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    lastRun,
	})
}
