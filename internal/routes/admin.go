package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/censo-gate/censo_gate/internal/verification"
)

// RegisterAdminRoutes wires the reverification endpoints: a single-record
// recheck and the fleet-wide batch.
func RegisterAdminRoutes(r fiber.Router, svc *verification.Service, recheckConcurrency int) {
	r.Post("/verifications/:id/recheck", func(c *fiber.Ctx) error {
		outcome, err := svc.Reverify(c.UserContext(), c.Params("id"))
		if err != nil {
			if errors.Is(err, verification.ErrNotFound) {
				return fiber.NewError(http.StatusNotFound, "authorization not found")
			}
			if errors.Is(err, verification.ErrRemoteUnavailable) {
				return fiber.NewError(http.StatusServiceUnavailable, err.Error())
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"outcome": string(outcome)})
	})

	r.Post("/verifications/recheck", func(c *fiber.Ctx) error {
		var req struct {
			OrganizationID string `json:"organization_id"`
			Concurrency    int    `json:"concurrency"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if req.OrganizationID == "" {
			return fiber.NewError(http.StatusBadRequest, "organization_id is required")
		}
		concurrency := req.Concurrency
		if concurrency <= 0 {
			concurrency = recheckConcurrency
		}

		report, err := svc.RecheckAll(c.UserContext(), req.OrganizationID, concurrency)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusOK).JSON(report)
	})
}
