package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/payment"
	"github.com/brainypal/backend/core/user"
)

const paystackSignatureHeader = "x-paystack-signature"

type paymentApi struct {
	svc    payment.Service
	usrSvc user.Service
}

func registerPaymentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc payment.Service, usrSvc user.Service) {
	api := paymentApi{svc: svc, usrSvc: usrSvc}

	pg := g.Group("/payments")

	// un-authed endpoints
	pg.GET("/plans", api.plans)
	pg.POST("/webhook", api.webhook)

	// authed endpoints
	ag := pg.Group("", jwt)
	ag.POST("/initialize", api.initialize)
	ag.GET("/verify/:reference", api.verify)
	ag.GET("/history", api.history)
	ag.POST("/cancel", api.cancel)
}

// Handlers

func (api *paymentApi) plans(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Plans())
}

func (api *paymentApi) initialize(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data payment.InitializePayment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InitializePayment")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	checkout, err := api.svc.Initialize(ctx.Request().Context(), usr, data.Plan)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, checkout)
}

func (api *paymentApi) verify(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	sub, err := api.svc.Verify(ctx.Request().Context(), ctx.Param("reference"))
	if err != nil {
		return err
	}
	if sub.UserID != userID {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, sub)
}

// webhook receives Paystack event notifications. The raw body is needed for
// signature validation, so it is read before any binding.
func (api *paymentApi) webhook(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading webhook payload")
	}
	signature := ctx.Request().Header.Get(paystackSignatureHeader)

	if err = api.svc.HandleWebhook(ctx.Request().Context(), payload, signature); err != nil {
		if errors.Cause(err) == payment.ErrSubscriptionMissing {
			// unknown reference, acknowledge so the gateway stops retrying
			return ctx.NoContent(http.StatusOK)
		}
		return err
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *paymentApi) history(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	subs, err := api.svc.History(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *paymentApi) cancel(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Cancel(ctx.Request().Context(), userID); err != nil {
		if errors.Cause(err) == payment.ErrSubscriptionMissing {
			return core.NewValidationError(errors.New("no active subscription to cancel"))
		}
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Subscription cancelled."})
}
