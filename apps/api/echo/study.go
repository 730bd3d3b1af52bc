package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core/study"
	"github.com/brainypal/backend/core/user"
	ratesvc "github.com/brainypal/backend/services/ratelimit"
)

type studyApi struct {
	svc    study.Service
	usrSvc user.Service
}

func registerStudyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc study.Service, usrSvc user.Service, limiter ratesvc.Limiter) {
	api := studyApi{svc: svc, usrSvc: usrSvc}

	quota := quotaMiddleware(usrSvc)
	rate := rateLimitMiddleware("generation", limiter)

	fg := g.Group("/flashcards", jwt)
	fg.GET("", api.flashcards)
	fg.GET("/due", api.dueFlashcards)
	fg.POST("/generate", api.generateFlashcards, rate, quota)
	fg.POST("/:id/review", api.reviewFlashcard)

	qg := g.Group("/quizzes", jwt)
	qg.GET("", api.quizzes)
	qg.GET("/:id", api.quiz)
	qg.POST("/generate", api.generateQuiz, rate, quota)
	qg.POST("/:id/attempts", api.attemptQuiz)

	g.POST("/practice", api.practice, jwt, rate, quota)
	g.POST("/sessions", api.saveSession, jwt)
}

// Handlers

func (api *studyApi) flashcards(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	cards, err := api.svc.Flashcards(ctx.Request().Context(), userID, ctx.QueryParam("topic"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cards)
}

func (api *studyApi) dueFlashcards(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}
	cards, err := api.svc.DueFlashcards(ctx.Request().Context(), userID, limit)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cards)
}

func (api *studyApi) generateFlashcards(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data study.GenerateFlashcards
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateFlashcards")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	cards, err := api.svc.GenerateFlashcards(ctx.Request().Context(), usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cards)
}

func (api *studyApi) reviewFlashcard(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data study.ReviewFlashcard
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewFlashcard")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	card, err := api.svc.ReviewFlashcard(ctx.Request().Context(), userID, id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, card)
}

func (api *studyApi) quizzes(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	quizzes, err := api.svc.Quizzes(ctx.Request().Context(), userID, ctx.QueryParam("topic"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *studyApi) quiz(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	quiz, err := api.svc.GetQuiz(ctx.Request().Context(), id, userID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, quiz)
}

func (api *studyApi) generateQuiz(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data study.GenerateQuiz
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateQuiz")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	quiz, err := api.svc.GenerateQuiz(ctx.Request().Context(), usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, quiz)
}

func (api *studyApi) attemptQuiz(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data QuizAttemptRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuizAttemptRequest")
	}

	answers := make(map[int]string, len(data.Answers))
	for qid, ans := range data.Answers {
		id, err := strconv.Atoi(qid)
		if err != nil {
			continue
		}
		answers[id] = ans
	}

	result, err := api.svc.SubmitQuiz(ctx.Request().Context(), userID, id, answers, data.DurationMinutes)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *studyApi) practice(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data study.GeneratePractice
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GeneratePractice")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	questions, err := api.svc.GeneratePractice(ctx.Request().Context(), usr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *studyApi) saveSession(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	var data study.SaveSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveSession")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	session, err := api.svc.SaveSession(ctx.Request().Context(), userID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, session)
}

// QuizAttemptRequest maps question IDs to the answers given. Keys come in as
// strings since JSON object keys always are.
type QuizAttemptRequest struct {
	Answers         map[string]string `json:"answers"`
	DurationMinutes int               `json:"duration_minutes"`
}

func contextUserID(ctx echo.Context) (int, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "getting context claims")
	}
	return claims.UserID()
}
