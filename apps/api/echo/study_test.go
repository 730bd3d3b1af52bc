package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/brainypal/backend/core/study"
	"github.com/brainypal/backend/core/user"
)

func Test_studyApi_flashcards(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/flashcards")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("generate: no topic nor content", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/flashcards/generate", token, []byte(`{}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	var cards []study.Flashcard
	t.Run("generate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/flashcards/generate", token, []byte(`{"topic":"Biology","count":3}`))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		decodeBody(t, rec, &cards)
		if len(cards) != 3 {
			t.Fatalf("cards = %d; want 3", len(cards))
		}
		if cards[0].Topic != "Biology" {
			t.Errorf("topic = %s; want Biology", cards[0].Topic)
		}
		if cards[0].Source != study.SourceGenerated {
			t.Errorf("source = %s; want %s", cards[0].Source, study.SourceGenerated)
		}
	})

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/flashcards?topic=Biology", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var listed []study.Flashcard
		decodeBody(t, rec, &listed)
		if len(listed) != 3 {
			t.Errorf("cards = %d; want 3", len(listed))
		}
	})

	t.Run("due", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/flashcards/due", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var due []study.Flashcard
		decodeBody(t, rec, &due)
		if len(due) != 3 {
			t.Errorf("due cards = %d; want 3", len(due))
		}
	})

	t.Run("review", func(t *testing.T) {
		path := fmt.Sprintf("/v1/flashcards/%d/review", cards[0].ID)
		req, rec := newAuthRequest(http.MethodPost, path, token, []byte(`{"correct":true}`))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var card study.Flashcard
		decodeBody(t, rec, &card)
		if card.TimesReviewed != 1 {
			t.Errorf("times reviewed = %d; want 1", card.TimesReviewed)
		}
	})

	t.Run("review: unknown card", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/flashcards/999/review", token, []byte(`{"correct":true}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_studyApi_quizzes(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)

	var quiz study.Quiz
	t.Run("generate", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/generate", token, []byte(`{"topic":"Physics","count":3}`))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		decodeBody(t, rec, &quiz)
		if quiz.ID == 0 {
			t.Error("expected a quiz ID")
		}
		if len(quiz.Questions) != 3 {
			t.Fatalf("questions = %d; want 3", len(quiz.Questions))
		}
	})

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var quizzes []study.Quiz
		decodeBody(t, rec, &quizzes)
		if len(quizzes) != 1 {
			t.Errorf("quizzes = %d; want 1", len(quizzes))
		}
	})

	t.Run("detail", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/quizzes/%d", quiz.ID), token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("attempt", func(t *testing.T) {
		body := fmt.Sprintf(
			`{"answers":{"%d":"b","%d":"A","%d":"C"},"duration_minutes":4}`,
			quiz.Questions[0].ID, quiz.Questions[1].ID, quiz.Questions[2].ID,
		)
		path := fmt.Sprintf("/v1/quizzes/%d/attempts", quiz.ID)
		req, rec := newAuthRequest(http.MethodPost, path, token, []byte(body))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var result study.QuizResult
		decodeBody(t, rec, &result)
		if result.Score != 1 {
			t.Errorf("score = %d; want 1", result.Score)
		}
		if result.TotalQuestions != 3 {
			t.Errorf("total questions = %d; want 3", result.TotalQuestions)
		}
	})

	t.Run("attempt: unknown quiz", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/999/attempts", token, []byte(`{"answers":{}}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_studyApi_practice(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)

	t.Run("missing topic", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/practice", token, []byte(`{}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/practice", token, []byte(`{"topic":"Algebra","count":4}`))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var questions []study.GeneratedQuestion
		decodeBody(t, rec, &questions)
		if len(questions) != 4 {
			t.Errorf("questions = %d; want 4", len(questions))
		}
	})
}

func Test_studyApi_saveSession(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)

	t.Run("invalid type", func(t *testing.T) {
		body := []byte(`{"session_type":"lol","topic":"Biology","items_studied":10}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("ok", func(t *testing.T) {
		body := []byte(`{"session_type":"flashcards","topic":"Biology","items_studied":10,"correct_answers":8,"duration_minutes":12}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", token, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var session study.StudySession
		decodeBody(t, rec, &session)
		if session.Accuracy != 80 {
			t.Errorf("accuracy = %v; want 80", session.Accuracy)
		}
	})
}

func Test_studyApi_dailyQuota(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)

	limit := user.LimitsFor(user.PlanFree).DailyGenerations
	for i := 0; i < limit; i++ {
		req, rec := newAuthRequest(http.MethodPost, "/v1/flashcards/generate", token, []byte(`{"topic":"Biology"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("generation %d code = %v; want %v; body %s", i+1, rec.Code, http.StatusCreated, rec.Body.String())
		}
	}

	req, rec := newAuthRequest(http.MethodPost, "/v1/flashcards/generate", token, []byte(`{"topic":"Biology"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusTooManyRequests, rec.Body.String())
	}
}
