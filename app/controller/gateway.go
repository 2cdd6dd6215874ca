package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-gocardless/app/factory"
	"github.com/vibast-solutions/ms-go-gocardless/app/mapper"
	"github.com/vibast-solutions/ms-go-gocardless/app/service"
	"github.com/vibast-solutions/ms-go-gocardless/app/types"
)

// statusInvalidToken is what GoCardless expects back for a webhook whose
// signature does not verify.
const statusInvalidToken = 498

const (
	webhookSourceGoCardless = "gocardless"
	webhookSourceForwarded  = "forwarded"
)

type GatewayController struct {
	gatewayService *service.GatewayService
	logger         logrus.FieldLogger
}

func NewGatewayController(gatewayService *service.GatewayService) *GatewayController {
	return &GatewayController{
		gatewayService: gatewayService,
		logger:         factory.NewModuleLogger("gateway-controller"),
	}
}

func (c *GatewayController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *GatewayController) StartFlow(ctx echo.Context) error {
	req, err := types.NewStartFlowRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.gatewayService.StartFlow(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Start flow failed", err)
	}

	return ctx.JSON(http.StatusCreated, &types.StartFlowResponse{
		RedirectUrl:       result.RedirectURL,
		RedirectFlowId:    result.RedirectFlowID,
		FlowToken:         result.FlowToken,
		RecurringEligible: result.RecurringEligible,
	})
}

// CompleteFlow is where the payer's browser lands after authorizing the
// mandate. On success the browser is sent on to the host's return URL.
func (c *GatewayController) CompleteFlow(ctx echo.Context) error {
	req, err := types.NewCompleteFlowRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.gatewayService.CompleteFlow(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Complete flow failed", err)
	}

	return ctx.Redirect(http.StatusFound, result.RedirectURL)
}

func (c *GatewayController) Success(ctx echo.Context) error {
	req, err := types.NewSuccessRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	tx, err := c.gatewayService.Success(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Success lookup failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.TransactionEnvelopeResponse{Transaction: mapper.TransactionToResponse(tx)})
}

// HandleWebhook receives batches straight from GoCardless.
func (c *GatewayController) HandleWebhook(ctx echo.Context) error {
	req, err := types.NewHandleWebhookRequestFromContext(ctx, webhookSourceGoCardless)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	return c.validateWebhook(ctx, req)
}

// ValidateWebhook receives batches the host platform forwards on behalf of
// the provider.
func (c *GatewayController) ValidateWebhook(ctx echo.Context) error {
	req, err := types.NewForwardedWebhookRequestFromContext(ctx, webhookSourceForwarded)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	return c.validateWebhook(ctx, req)
}

func (c *GatewayController) validateWebhook(ctx echo.Context, req *types.HandleWebhookRequest) error {
	if err := req.Validate(); err != nil {
		if req.GetSignature() == "" {
			return c.writeError(ctx, statusInvalidToken, err.Error())
		}
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	tx, err := c.gatewayService.ValidateWebhook(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			return c.writeError(ctx, statusInvalidToken, err.Error())
		}
		return c.writeServiceError(ctx, "Validate webhook failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.TransactionEnvelopeResponse{Transaction: mapper.TransactionToResponse(tx)})
}

func (c *GatewayController) Refund(ctx echo.Context) error {
	req, err := types.NewRefundRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	tx, err := c.gatewayService.Refund(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Refund failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.TransactionEnvelopeResponse{Transaction: mapper.TransactionToResponse(tx)})
}

func (c *GatewayController) Void(ctx echo.Context) error {
	req, err := types.NewVoidRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	tx, err := c.gatewayService.Void(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Void failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.TransactionEnvelopeResponse{Transaction: mapper.TransactionToResponse(tx)})
}

func (c *GatewayController) Capture(ctx echo.Context) error {
	_, err := c.gatewayService.Capture(ctx.Request().Context(), ctx.Param("id"))
	return c.writeServiceError(ctx, "Capture failed", err)
}

func (c *GatewayController) CancelMandate(ctx echo.Context) error {
	req, err := types.NewMandateActionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	mandate, err := c.gatewayService.CancelMandate(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Cancel mandate failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.MandateEnvelopeResponse{Mandate: mapper.MandateToResponse(mandate)})
}

func (c *GatewayController) ReinstateMandate(ctx echo.Context) error {
	req, err := types.NewMandateActionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	mandate, err := c.gatewayService.ReinstateMandate(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Reinstate mandate failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.MandateEnvelopeResponse{Mandate: mapper.MandateToResponse(mandate)})
}

func (c *GatewayController) writeServiceError(ctx echo.Context, message string, err error) error {
	switch {
	case err == nil:
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrInvalidPayType),
		errors.Is(err, service.ErrCurrencyUnsupported),
		errors.Is(err, service.ErrRecurrenceUnsupported):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrFlowNotFound):
		return c.writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidSignature):
		return c.writeError(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUnsupportedOperation), errors.Is(err, service.ErrRefundRejected):
		return c.writeError(ctx, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrProvider):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Warn(message)
		return c.writeError(ctx, http.StatusBadGateway, "provider request failed")
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(message)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *GatewayController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
