package paysvc

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/payment"
)

// paystackService talks to the Paystack transactions API.
type paystackService struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	client        *http.Client
	logger        core.Logger
}

var _ payment.Gateway = (*paystackService)(nil)

func NewPaystackService(logger core.Logger) *paystackService {
	return &paystackService{
		baseURL:       core.Conf.Paystack.BaseURL,
		secretKey:     core.Conf.Paystack.SecretKey,
		webhookSecret: core.Conf.Paystack.WebhookSecret,
		client:        &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
	}
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (svc *paystackService) Initialize(ctx context.Context, email, reference string, amountKobo int, currency string) (payment.Checkout, error) {
	body := map[string]interface{}{
		"email":     email,
		"amount":    amountKobo,
		"currency":  currency,
		"reference": reference,
	}
	var checkout payment.Checkout
	if err := svc.do(ctx, http.MethodPost, "/transaction/initialize", body, &checkout); err != nil {
		return payment.Checkout{}, err
	}
	return checkout, nil
}

func (svc *paystackService) Verify(ctx context.Context, reference string) (payment.Charge, error) {
	var data struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int    `json:"amount"`
		Currency  string `json:"currency"`
		Channel   string `json:"channel"`
		PaidAt    string `json:"paid_at"`
	}
	if err := svc.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		return payment.Charge{}, err
	}

	charge := payment.Charge{
		Reference:  data.Reference,
		Status:     data.Status,
		AmountKobo: data.Amount,
		Currency:   data.Currency,
		Channel:    data.Channel,
	}
	if data.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, data.PaidAt); err == nil {
			charge.PaidAt = t
		}
	}
	return charge, nil
}

// ValidateWebhookSignature checks the x-paystack-signature header, an
// HMAC-SHA512 hex digest of the raw payload.
func (svc *paystackService) ValidateWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(svc.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (svc *paystackService) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, svc.baseURL+path, rdr)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+svc.secretKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := svc.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling paystack")
	}
	defer res.Body.Close()

	var apiRes apiResponse
	if err = json.NewDecoder(res.Body).Decode(&apiRes); err != nil {
		return errors.Wrap(err, "decoding paystack response")
	}
	if res.StatusCode >= http.StatusBadRequest || !apiRes.Status {
		return errors.Errorf("paystack: %s (status %d)", apiRes.Message, res.StatusCode)
	}
	return errors.Wrap(json.Unmarshal(apiRes.Data, out), "decoding paystack data")
}
