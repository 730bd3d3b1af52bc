package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/chat"
	"github.com/brainypal/backend/core/content"
	"github.com/brainypal/backend/core/payment"
	"github.com/brainypal/backend/core/study"
	"github.com/brainypal/backend/core/user"
	emailsvc "github.com/brainypal/backend/services/email"
	ratesvc "github.com/brainypal/backend/services/ratelimit"
	dummydb "github.com/brainypal/backend/storage/database/dummy"
)

var (
	usrRepo user.Repository
	usrSvc  user.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T, limiter ...ratesvc.Limiter) Server {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc = user.NewServiceMock(usrRepo, mailSvc)
	chatSvc := chat.NewService(dummydb.NewChatRepository(db), fakeResponder{})
	studySvc := study.NewService(dummydb.NewStudyRepository(db), fakeGenerator{})
	contentSvc := content.NewService(dummydb.NewContentRepository(db), studySvc, fakeSummarizer{})
	paySvc := payment.NewService(dummydb.NewPaymentRepository(db), &fakeGateway{}, usrSvc, nopLogger{})

	lim := ratesvc.Limiter(ratesvc.NewMemoryLimiter(time.Minute, 1000))
	if len(limiter) > 0 {
		lim = limiter[0]
	}

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         nopLogger{},
			UserSvc:        usrSvc,
			ChatSvc:        chatSvc,
			StudySvc:       studySvc,
			ContentSvc:     contentSvc,
			PaymentSvc:     paySvc,
			Limiter:        lim,
		},
	)
}

func createUser(t *testing.T, name, email, pwd, plan string, isActive bool) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Plan:      plan,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// Fake service backends

type nopLogger struct{}

func (nopLogger) Enable(enabled bool)                   {}
func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type fakeResponder struct{}

func (fakeResponder) Reply(ctx context.Context, message string, history []chat.Exchange) (chat.Reply, error) {
	return chat.Reply{
		Text:       "Sure, let's look at " + message,
		Model:      "fake",
		Confidence: 0.9,
	}, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Flashcards(ctx context.Context, topic, content, difficulty string, count int) ([]study.GeneratedCard, error) {
	cards := make([]study.GeneratedCard, count)
	for i := range cards {
		cards[i] = study.GeneratedCard{
			Question:   fmt.Sprintf("What is %s, part %d?", topic, i+1),
			Answer:     fmt.Sprintf("Answer %d about %s.", i+1, topic),
			Topic:      topic,
			Difficulty: difficulty,
		}
	}
	return cards, nil
}

func (fakeGenerator) QuizQuestions(ctx context.Context, topic, content, difficulty, quizType string, count int) ([]study.GeneratedQuestion, error) {
	qs := make([]study.GeneratedQuestion, count)
	for i := range qs {
		qs[i] = study.GeneratedQuestion{
			Question:      fmt.Sprintf("Question %d on %s?", i+1, topic),
			QuestionType:  quizType,
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "B",
			Points:        1,
		}
	}
	return qs, nil
}

func (fakeGenerator) PracticeQuestions(ctx context.Context, topic string, count int) ([]study.GeneratedQuestion, error) {
	qs := make([]study.GeneratedQuestion, count)
	for i := range qs {
		qs[i] = study.GeneratedQuestion{
			Question:      fmt.Sprintf("Practice %d on %s?", i+1, topic),
			QuestionType:  study.QuizTypeShortAnswer,
			CorrectAnswer: "because",
			Points:        1,
		}
	}
	return qs, nil
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(ctx context.Context, content string, maxSentences int) (string, error) {
	return "A short summary.", nil
}

type fakeGateway struct {
	verifyStatus string
}

func (g *fakeGateway) Initialize(ctx context.Context, email, reference string, amountKobo int, currency string) (payment.Checkout, error) {
	return payment.Checkout{
		AuthorizationURL: "https://checkout.paystack.com/" + reference,
		AccessCode:       "access_" + reference,
		Reference:        reference,
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (payment.Charge, error) {
	status := g.verifyStatus
	if status == "" {
		status = "success"
	}
	return payment.Charge{Reference: reference, Status: status}, nil
}

func (g *fakeGateway) ValidateWebhookSignature(payload []byte, signature string) bool {
	return true
}

// HTTP helpers

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}
