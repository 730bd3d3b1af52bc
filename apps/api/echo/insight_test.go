package echoapi

import (
	"net/http"
	"testing"

	"github.com/brainypal/backend/core/study"
	"github.com/brainypal/backend/core/user"
)

func seedStudyData(t *testing.T, app Server, token string) {
	t.Helper()

	req, rec := newAuthRequest(http.MethodPost, "/v1/flashcards/generate", token, []byte(`{"topic":"Biology","count":3}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeding flashcards failed: %s", rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/quizzes/generate", token, []byte(`{"topic":"Biology","count":2}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeding quiz failed: %s", rec.Body.String())
	}

	body := []byte(`{"session_type":"flashcards","topic":"Biology","items_studied":10,"correct_answers":8,"duration_minutes":12}`)
	req, rec = newAuthRequest(http.MethodPost, "/v1/sessions", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seeding session failed: %s", rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/chat/send", token, []byte(`{"message":"Tell me about Biology"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("seeding conversation failed: %s", rec.Body.String())
	}
}

func Test_insightApi_progress(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)
	seedStudyData(t, app, token)

	req, rec := newAuthRequest(http.MethodGet, "/v1/progress", token)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var overview study.Overview
	decodeBody(t, rec, &overview)
	if overview.TotalFlashcards != 3 {
		t.Errorf("total flashcards = %d; want 3", overview.TotalFlashcards)
	}
	if overview.TotalQuizzes != 1 {
		t.Errorf("total quizzes = %d; want 1", overview.TotalQuizzes)
	}
	if overview.SessionsCompleted != 1 {
		t.Errorf("sessions completed = %d; want 1", overview.SessionsCompleted)
	}
	if overview.AverageScore != 80 {
		t.Errorf("average score = %v; want 80", overview.AverageScore)
	}
}

func Test_insightApi_dashboard(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)
	seedStudyData(t, app, token)

	req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard", token)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var dash study.Dashboard
	decodeBody(t, rec, &dash)
	if dash.TotalFlashcards != 3 {
		t.Errorf("total flashcards = %d; want 3", dash.TotalFlashcards)
	}
	if dash.TotalQuizzes != 1 {
		t.Errorf("total quizzes = %d; want 1", dash.TotalQuizzes)
	}
}

func Test_insightApi_search(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)
	seedStudyData(t, app, token)

	t.Run("missing query", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/search", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("all kinds", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/search?q=Biology", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res SearchResponse
		decodeBody(t, rec, &res)
		if len(res.Flashcards) != 3 {
			t.Errorf("flashcards = %d; want 3", len(res.Flashcards))
		}
		if len(res.Quizzes) != 1 {
			t.Errorf("quizzes = %d; want 1", len(res.Quizzes))
		}
		if len(res.Conversations) != 1 {
			t.Errorf("conversations = %d; want 1", len(res.Conversations))
		}
	})

	t.Run("flashcards only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/search?q=Biology&type=flashcards", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res SearchResponse
		decodeBody(t, rec, &res)
		if len(res.Flashcards) != 3 {
			t.Errorf("flashcards = %d; want 3", len(res.Flashcards))
		}
		if len(res.Quizzes) != 0 {
			t.Errorf("quizzes = %d; want 0", len(res.Quizzes))
		}
		if len(res.Conversations) != 0 {
			t.Errorf("conversations = %d; want 0", len(res.Conversations))
		}
	})

	t.Run("no match", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/search?q=zzzz", token)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res SearchResponse
		decodeBody(t, rec, &res)
		if len(res.Flashcards)+len(res.Quizzes)+len(res.Conversations) != 0 {
			t.Errorf("expected no results, got %+v", res)
		}
	})
}

func Test_insightApi_history(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)
	seedStudyData(t, app, token)

	req, rec := newAuthRequest(http.MethodGet, "/v1/history?days=7", token)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var res HistoryResponse
	decodeBody(t, rec, &res)
	if res.PeriodDays != 7 {
		t.Errorf("period_days = %d; want 7", res.PeriodDays)
	}
	// 3 flashcards, 1 quiz and 1 conversation were seeded inside the window
	if res.TotalItems != 5 {
		t.Fatalf("total_items = %d; want 5; body %s", res.TotalItems, rec.Body.String())
	}
	counts := make(map[string]int)
	for _, item := range res.History {
		counts[item.Type]++
	}
	if counts["flashcard"] != 3 || counts["quiz"] != 1 || counts["conversation"] != 1 {
		t.Errorf("item counts = %v; want 3 flashcards, 1 quiz, 1 conversation", counts)
	}
	// the conversation was created last so it leads the feed
	if res.History[0].Type != "conversation" {
		t.Errorf("first item type = %s; want conversation", res.History[0].Type)
	}
	for i := 1; i < len(res.History); i++ {
		if res.History[i].CreatedAt.After(res.History[i-1].CreatedAt) {
			t.Errorf("items not sorted newest first at index %d", i)
		}
	}
}

func Test_insightApi_historyIgnoresOldWindow(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)

	req, rec := newAuthRequest(http.MethodGet, "/v1/history", token)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var res HistoryResponse
	decodeBody(t, rec, &res)
	if res.PeriodDays != 30 {
		t.Errorf("period_days = %d; want default 30", res.PeriodDays)
	}
	if res.TotalItems != 0 || len(res.History) != 0 {
		t.Errorf("expected an empty feed, got %s", rec.Body.String())
	}
}

func Test_insightApi_topics(t *testing.T) {
	app := setup(t)

	usr := createUser(t, "User", "awe@test.cd", "pwd12345", user.PlanFree, true)
	token := getToken(t, usr)
	seedStudyData(t, app, token)

	req, rec := newAuthRequest(http.MethodGet, "/v1/topics", token)
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var stats []study.TopicStat
	decodeBody(t, rec, &stats)
	if len(stats) != 1 {
		t.Fatalf("topics = %d; want 1", len(stats))
	}
	if stats[0].Topic != "Biology" {
		t.Errorf("topic = %s; want Biology", stats[0].Topic)
	}
	if stats[0].FlashcardCount != 3 {
		t.Errorf("flashcard count = %d; want 3", stats[0].FlashcardCount)
	}
}
