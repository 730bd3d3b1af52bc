package echoapi

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/chat"
	"github.com/brainypal/backend/core/study"
)

const (
	searchConversationLimit  = 10
	historyConversationLimit = 20
	historyMaxItems          = 50
	historyDefaultDays       = 30
	historyTitleMaxLen       = 50
)

type insightApi struct {
	studySvc study.Service
	chatSvc  chat.Service
}

func registerInsightAPI(g *echo.Group, jwt echo.MiddlewareFunc, studySvc study.Service, chatSvc chat.Service) {
	api := insightApi{studySvc: studySvc, chatSvc: chatSvc}

	g.GET("/progress", api.progress, jwt)
	g.GET("/dashboard", api.dashboard, jwt)
	g.GET("/search", api.search, jwt)
	g.GET("/history", api.history, jwt)
	g.GET("/topics", api.topics, jwt)
}

// Handlers

func (api *insightApi) progress(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	overview, err := api.studySvc.Progress(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, overview)
}

func (api *insightApi) dashboard(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	dash, err := api.studySvc.DashboardStats(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *insightApi) search(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	q := core.CleanString(ctx.QueryParam("q"))
	if q == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "q", Error: "this field is required"})
	}

	res := SearchResponse{Query: q}
	kind := ctx.QueryParam("type")

	rctx := ctx.Request().Context()
	if kind == "" || kind == "flashcards" || kind == "quizzes" {
		cards, quizzes, err := api.studySvc.Search(rctx, userID, q)
		if err != nil {
			return err
		}
		if kind != "quizzes" {
			res.Flashcards = cards
		}
		if kind != "flashcards" {
			res.Quizzes = quizzes
		}
	}
	if kind == "" || kind == "conversations" {
		convs, err := api.chatSvc.Search(rctx, userID, q, searchConversationLimit)
		if err != nil {
			return err
		}
		res.Conversations = convs
	}
	return ctx.JSON(http.StatusOK, res)
}

// history merges recently created flashcards, conversations and quizzes into
// one feed, newest first.
func (api *insightApi) history(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	days, _ := strconv.Atoi(ctx.QueryParam("days"))
	if days <= 0 {
		days = historyDefaultDays
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	rctx := ctx.Request().Context()
	cards, quizzes, err := api.studySvc.RecentActivity(rctx, userID, since)
	if err != nil {
		return err
	}
	convs, err := api.chatSvc.Recent(rctx, userID, since, historyConversationLimit)
	if err != nil {
		return err
	}

	items := make([]HistoryItem, 0, len(cards)+len(convs)+len(quizzes))
	for _, fc := range cards {
		items = append(items, HistoryItem{
			Type:      "flashcard",
			ID:        fc.ID,
			Title:     core.Truncate(fc.Question, historyTitleMaxLen),
			Topic:     fc.Topic,
			CreatedAt: fc.CreatedAt,
			Metadata: map[string]interface{}{
				"times_reviewed": fc.TimesReviewed,
				"mastery_level":  fc.MasteryLevel,
			},
		})
	}
	for _, conv := range convs {
		items = append(items, HistoryItem{
			Type:      "conversation",
			ID:        conv.ID,
			Title:     conv.Title,
			CreatedAt: conv.CreatedAt,
			Metadata: map[string]interface{}{
				"message_count": conv.MessageCount,
				"last_updated":  conv.UpdatedAt,
			},
		})
	}
	for _, quiz := range quizzes {
		items = append(items, HistoryItem{
			Type:      "quiz",
			ID:        quiz.ID,
			Title:     quiz.Title,
			Topic:     quiz.Topic,
			CreatedAt: quiz.CreatedAt,
			Metadata: map[string]interface{}{
				"difficulty": quiz.Difficulty,
				"quiz_type":  quiz.QuizType,
			},
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })

	res := HistoryResponse{PeriodDays: days, TotalItems: len(items)}
	if len(items) > historyMaxItems {
		items = items[:historyMaxItems]
	}
	res.History = items
	return ctx.JSON(http.StatusOK, res)
}

func (api *insightApi) topics(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	stats, err := api.studySvc.Topics(ctx.Request().Context(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

type SearchResponse struct {
	Query         string              `json:"query"`
	Flashcards    []study.Flashcard   `json:"flashcards,omitempty"`
	Quizzes       []study.Quiz        `json:"quizzes,omitempty"`
	Conversations []chat.Conversation `json:"conversations,omitempty"`
}

// HistoryItem is one entry in the merged activity feed.
type HistoryItem struct {
	Type      string                 `json:"type"`
	ID        int                    `json:"id"`
	Title     string                 `json:"title"`
	Topic     string                 `json:"topic,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type HistoryResponse struct {
	History    []HistoryItem `json:"history"`
	PeriodDays int           `json:"period_days"`
	TotalItems int           `json:"total_items"`
}
