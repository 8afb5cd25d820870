package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/censo-gate/censo_gate/internal/census"
	"github.com/censo-gate/censo_gate/internal/verification"
)

type verifyRequest struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	DocumentNumber string `json:"document_number"`
	Birthdate      string `json:"birthdate"`
}

type authorizationView struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	GrantedAt string `json:"granted_at,omitempty"`
}

func presentAuthorization(a verification.Authorization) authorizationView {
	view := authorizationView{ID: a.ID, State: a.State}
	if !a.GrantedAt.IsZero() {
		view.GrantedAt = a.GrantedAt.UTC().Format(time.RFC3339)
	}
	return view
}

// RegisterVerificationRoutes wires the public confirmation endpoint.
func RegisterVerificationRoutes(r fiber.Router, svc *verification.Service) {
	r.Post("/verifications", func(c *fiber.Ctx) error {
		var req verifyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if req.OrganizationID == "" || req.UserID == "" {
			return fiber.NewError(http.StatusBadRequest, "organization_id and user_id are required")
		}

		var birthdate time.Time
		if req.Birthdate != "" {
			parsed, err := time.Parse("2006-01-02", req.Birthdate)
			if err != nil {
				if parsed, err = time.Parse(census.DateLayout, req.Birthdate); err != nil {
					return fiber.NewError(http.StatusBadRequest, "birthdate must be YYYY-MM-DD or DD/MM/YYYY")
				}
			}
			birthdate = parsed
		}

		result, err := svc.Confirm(c.UserContext(), req.OrganizationID, req.UserID, verification.Submission{
			DocumentNumber: req.DocumentNumber,
			Birthdate:      birthdate,
		})
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		body := fiber.Map{
			"outcome":       string(result.Outcome),
			"authorization": presentAuthorization(result.Authorization),
		}
		if result.Reason != nil {
			body["message"] = result.Reason.Error()
		}

		return c.Status(confirmStatus(result)).JSON(body)
	})
}

func confirmStatus(result verification.ConfirmResult) int {
	switch result.Outcome {
	case verification.OutcomeGranted:
		return http.StatusCreated
	case verification.OutcomeAlreadyGranted:
		return http.StatusOK
	case verification.OutcomeRemoteInvalid:
		if errors.Is(result.Reason, verification.ErrRemoteUnavailable) {
			return http.StatusServiceUnavailable
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusUnprocessableEntity
	}
}
