package paysvc

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(baseURL string) *paystackService {
	return &paystackService{
		baseURL:       baseURL,
		secretKey:     "sk_test_secret",
		webhookSecret: "whsec",
		client:        http.DefaultClient,
	}
}

func TestInitialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		fmt.Fprint(w, `{"status":true,"message":"Authorization URL created","data":{
			"authorization_url":"https://checkout.paystack.com/abc123",
			"access_code":"abc123",
			"reference":"brainypal_1_premium_1700000000"}}`)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	checkout, err := svc.Initialize(context.Background(), "jane@test.com", "brainypal_1_premium_1700000000", 99900, "KES")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", checkout.AuthorizationURL)
	assert.Equal(t, "abc123", checkout.AccessCode)
	assert.Equal(t, "brainypal_1_premium_1700000000", checkout.Reference)
}

func TestInitializeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":false,"message":"Invalid amount"}`)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	_, err := svc.Initialize(context.Background(), "jane@test.com", "ref", 0, "KES")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid amount")
}

func TestVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/ref123", r.URL.Path)

		fmt.Fprint(w, `{"status":true,"message":"Verification successful","data":{
			"reference":"ref123","status":"success","amount":99900,"currency":"KES",
			"channel":"card","paid_at":"2026-08-01T10:30:00Z"}}`)
	}))
	defer srv.Close()

	svc := newTestService(srv.URL)
	charge, err := svc.Verify(context.Background(), "ref123")
	require.NoError(t, err)
	assert.Equal(t, "success", charge.Status)
	assert.Equal(t, 99900, charge.AmountKobo)
	assert.Equal(t, "card", charge.Channel)
	assert.False(t, charge.PaidAt.IsZero())
}

func TestValidateWebhookSignature(t *testing.T) {
	svc := newTestService("")
	payload := []byte(`{"event":"charge.success","data":{"reference":"ref123"}}`)

	mac := hmac.New(sha512.New, []byte("whsec"))
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, svc.ValidateWebhookSignature(payload, valid))
	assert.False(t, svc.ValidateWebhookSignature(payload, "deadbeef"))
	assert.False(t, svc.ValidateWebhookSignature([]byte("tampered"), valid))
}
