package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/mapper"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

type BillingController struct {
	billingService *service.BillingService
	logger         logrus.FieldLogger
}

func NewBillingController(billingService *service.BillingService) *BillingController {
	return &BillingController{
		billingService: billingService,
		logger:         factory.NewModuleLogger("billing-controller"),
	}
}

func (c *BillingController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *BillingController) ListPlans(ctx echo.Context) error {
	items, err := c.billingService.ListPlans(ctx.Request().Context())
	if err != nil {
		c.logger.WithError(err).Error("List plans failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPlansResponse{Plans: mapper.PlansToPayload(items)})
}

func (c *BillingController) InitPayment(ctx echo.Context) error {
	req, err := types.NewInitPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.billingService.InitiatePayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPlanNotFound):
			return c.writeError(ctx, http.StatusNotFound, "plan not found")
		case errors.Is(err, service.ErrFreePlan), errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrProviderUnavailable):
			// Distinct from a generic failure: the provider is not
			// configured or enabled, so retrying will not help.
			return c.writeError(ctx, http.StatusServiceUnavailable, "payment provider is not configured or enabled")
		case errors.Is(err, service.ErrProviderRejected):
			return c.writeError(ctx, http.StatusBadGateway, "payment provider rejected the request")
		case errors.Is(err, service.ErrProviderUnreachable):
			return c.writeError(ctx, http.StatusBadGateway, "payment provider is unreachable, please retry")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Init payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, item)
}

func (c *BillingController) VerifyPayment(ctx echo.Context) error {
	req, err := types.NewVerifyPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.billingService.VerifyPayment(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrIntentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "no pending payment found for reference")
		case errors.Is(err, service.ErrProviderUnavailable):
			return c.writeError(ctx, http.StatusServiceUnavailable, "payment provider is not configured or enabled")
		case errors.Is(err, service.ErrProviderUnreachable):
			// Not a failure: the outcome is unknown and the caller should
			// retry with the same reference.
			return c.writeError(ctx, http.StatusBadGateway, "payment provider is unreachable, please retry")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Verify payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, item)
}

func (c *BillingController) HandleCallback(ctx echo.Context) error {
	req, err := types.NewCallbackRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.billingService.InterpretCallback(ctx.Request().Context(), req)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Interpret callback failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, item)
}

func (c *BillingController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
