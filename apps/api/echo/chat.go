package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/chat"
	ratesvc "github.com/brainypal/backend/services/ratelimit"
)

type chatApi struct {
	svc chat.Service
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc chat.Service, limiter ratesvc.Limiter) {
	api := chatApi{svc: svc}

	cg := g.Group("/chat", jwt)
	cg.GET("/conversations", api.conversations)
	cg.GET("/conversations/:id", api.conversation)
	cg.POST("/send", api.send, rateLimitMiddleware("chat", limiter))
}

// Handlers

func (api *chatApi) conversations(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	previews, err := api.svc.QueryPreviews(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "querying previews")
	}
	return ctx.JSON(http.StatusOK, previews)
}

func (api *chatApi) conversation(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	conv, msgs, err := api.svc.GetWithMessages(ctx.Request().Context(), id, userID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ConversationResponse{Conversation: conv, Messages: msgs})
}

func (api *chatApi) send(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	var data SendMessageRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendMessageRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	res, err := api.svc.Send(ctx.Request().Context(), userID, data.ConversationID, data.Message)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	SendMessageRequest struct {
		ConversationID int    `json:"conversation_id"`
		Message        string `json:"message" validate:"required,max=4000"`
	}

	ConversationResponse struct {
		Conversation chat.Conversation `json:"conversation"`
		Messages     []chat.Message    `json:"messages"`
	}
)

func (sm *SendMessageRequest) Validate() error {
	sm.Message = core.CleanString(sm.Message)
	return core.Validate.Struct(sm)
}
