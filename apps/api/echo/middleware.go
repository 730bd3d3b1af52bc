package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core/user"
	ratesvc "github.com/brainypal/backend/services/ratelimit"
)

// rateLimitMiddleware throttles a user's calls to the wrapped endpoints using
// a sliding window keyed on the endpoint group and the user's ID.
func rateLimitMiddleware(key string, limiter ratesvc.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			id, err := claims.UserID()
			if err != nil {
				return err
			}
			ok, err := limiter.Allow(ctx.Request().Context(), key+":"+strconv.Itoa(id))
			if err != nil {
				return errors.Wrap(err, "checking rate limit")
			}
			if !ok {
				return errRateLimited
			}
			return next(ctx)
		}
	}
}

// quotaMiddleware enforces the per-plan daily generation quota before letting
// a generation request reach its handler.
func quotaMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if err = svc.ConsumeGeneration(ctx.Request().Context(), usr); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
