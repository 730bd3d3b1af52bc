package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core/content"
	"github.com/brainypal/backend/core/user"
	ratesvc "github.com/brainypal/backend/services/ratelimit"
)

type contentApi struct {
	svc    content.Service
	usrSvc user.Service
}

func registerContentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc content.Service, usrSvc user.Service, limiter ratesvc.Limiter) {
	api := contentApi{svc: svc, usrSvc: usrSvc}

	g.POST("/upload", api.upload, jwt, rateLimitMiddleware("upload", limiter), quotaMiddleware(usrSvc))
	g.GET("/uploads", api.uploads, jwt)
}

// Handlers

func (api *contentApi) upload(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "reading uploaded file")
	}

	up := content.Upload{
		OriginalName: fh.Filename,
		Data:         data,
		GenerateType: ctx.FormValue("generate_type"),
		Topic:        ctx.FormValue("topic"),
		Difficulty:   ctx.FormValue("difficulty"),
	}
	if err = up.Validate(); err != nil {
		return err
	}

	result, err := api.svc.Process(ctx.Request().Context(), usr, up)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, result)
}

func (api *contentApi) uploads(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	ups, err := api.svc.Uploads(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ups)
}
