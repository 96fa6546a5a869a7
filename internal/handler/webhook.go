package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"nfpickle-donations/internal/dto"
	"nfpickle-donations/internal/service"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	webhookService service.WebhookService
	logger         *slog.Logger
}

func NewWebhookHandler(webhookService service.WebhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

// HandleStripe acknowledges every authenticated delivery with a 2xx so
// the provider does not retry legitimate no-ops. Only a bad signature or
// a failed store update produces a non-2xx.
func (h *WebhookHandler) HandleStripe(c echo.Context) error {
	ctx := c.Request().Context()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unreadable payload"})
	}

	sigHeader := c.Request().Header.Get("Stripe-Signature")

	if err := h.webhookService.HandleEvent(ctx, payload, sigHeader); err != nil {
		if errors.Is(err, service.ErrBadSignature) {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid signature"})
		}
		h.logger.ErrorContext(ctx, "webhook processing failed", "err", err)
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(http.StatusOK, dto.WebhookResponse{Received: true})
}
