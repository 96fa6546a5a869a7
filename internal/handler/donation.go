package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"nfpickle-donations/internal/dto"
	"nfpickle-donations/internal/service"

	"github.com/labstack/echo/v4"
)

type DonationHandler struct {
	donationService service.DonationService
	publishableKey  string
	logger          *slog.Logger
}

func NewDonationHandler(donationService service.DonationService, publishableKey string, logger *slog.Logger) *DonationHandler {
	return &DonationHandler{
		donationService: donationService,
		publishableKey:  publishableKey,
		logger:          logger,
	}
}

func (h *DonationHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateDonationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	donation, clientSecret, err := h.donationService.Create(ctx, &req)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.CreateDonationResponse{
		Donation:     donation,
		ClientSecret: clientSecret,
	})
}

func (h *DonationHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	donations, err := h.donationService.List(ctx)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, dto.ListDonationsResponse{Donations: donations})
}

func (h *DonationHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.QueryParam("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "missing donation id"})
	}

	if err := h.donationService.Delete(ctx, id); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, dto.DeleteDonationResponse{Success: true})
}

// PublicConfig exposes the key the donor-facing confirmation widget
// needs. Nothing secret lives here.
func (h *DonationHandler) PublicConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.PublicConfigResponse{PublishableKey: h.publishableKey})
}

func (h *DonationHandler) writeError(c echo.Context, err error) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:  "invalid donation request",
			Fields: verr.Fields,
		})
	}

	if errors.Is(err, service.ErrNotFound) {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "donation not found"})
	}

	var perr *service.ProviderError
	if errors.As(err, &perr) {
		return c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: perr.Error()})
	}

	// Internal detail stays in the log; the caller gets a generic body.
	h.logger.ErrorContext(c.Request().Context(), "donation request failed", "err", err)
	return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
}
