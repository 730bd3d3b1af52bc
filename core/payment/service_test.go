package payment_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/payment"
	"github.com/brainypal/backend/core/user"
	emailsvc "github.com/brainypal/backend/services/email"
	dummydb "github.com/brainypal/backend/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Enable(enabled bool)                   {}
func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type stubGateway struct {
	verifyStatus string
	secret       string
	initErr      error
}

func (g *stubGateway) Initialize(ctx context.Context, email, reference string, amountKobo int, currency string) (payment.Checkout, error) {
	if g.initErr != nil {
		return payment.Checkout{}, g.initErr
	}
	return payment.Checkout{
		AuthorizationURL: "https://checkout.paystack.com/" + reference,
		AccessCode:       "access_" + reference,
		Reference:        reference,
	}, nil
}

func (g *stubGateway) Verify(ctx context.Context, reference string) (payment.Charge, error) {
	status := g.verifyStatus
	if status == "" {
		status = "success"
	}
	return payment.Charge{Reference: reference, Status: status, Currency: "KES"}, nil
}

func (g *stubGateway) ValidateWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(g.secret))
	mac.Write(payload)
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(signature))
}

var _ payment.Gateway = (*stubGateway)(nil)

func setup(t *testing.T, gateway payment.Gateway) (payment.Service, user.Service, user.User) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrSvc := user.NewServiceMock(dummydb.NewUserRepository(db), emailsvc.NewConsoleServiceMock())
	usr, err := usrSvc.Create(context.Background(), user.NewUser{
		Name:     "Jane Doe",
		Email:    "jane@test.bp",
		Password: "LeSecret!123",
	})
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	svc := payment.NewService(dummydb.NewPaymentRepository(db), gateway, usrSvc, nopLogger{})
	return svc, usrSvc, usr
}

func TestPlans(t *testing.T) {
	svc, _, _ := setup(t, &stubGateway{})

	all := svc.Plans()
	require.Len(t, all, 2)
	assert.Equal(t, user.PlanPremium, all[0].Code)
	assert.Equal(t, user.PlanPro, all[1].Code)
	assert.Less(t, all[0].AmountKobo, all[1].AmountKobo)
}

func TestInitialize(t *testing.T) {
	svc, _, usr := setup(t, &stubGateway{})
	ctx := context.Background()

	checkout, err := svc.Initialize(ctx, usr, user.PlanPremium)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(checkout.Reference, fmt.Sprintf("brainypal_%d_premium_", usr.ID)))
	assert.NotEmpty(t, checkout.AuthorizationURL)

	subs, err := svc.History(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, payment.StatusPending, subs[0].Status)
	assert.Equal(t, checkout.Reference, subs[0].Reference)
}

func TestInitializeUnknownPlan(t *testing.T) {
	svc, _, usr := setup(t, &stubGateway{})

	_, err := svc.Initialize(context.Background(), usr, "platinum")
	assert.Equal(t, payment.ErrUnknownPlan, err)
}

func TestVerifyActivatesSubscription(t *testing.T) {
	svc, usrSvc, usr := setup(t, &stubGateway{})
	ctx := context.Background()

	checkout, err := svc.Initialize(ctx, usr, user.PlanPro)
	require.NoError(t, err)

	sub, err := svc.Verify(ctx, checkout.Reference)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusActive, sub.Status)
	assert.True(t, sub.ExpiresAt.After(sub.StartedAt))

	upgraded, err := usrSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.PlanPro, upgraded.Plan)
}

func TestVerifyFailedCharge(t *testing.T) {
	svc, usrSvc, usr := setup(t, &stubGateway{verifyStatus: "failed"})
	ctx := context.Background()

	checkout, err := svc.Initialize(ctx, usr, user.PlanPremium)
	require.NoError(t, err)

	sub, err := svc.Verify(ctx, checkout.Reference)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusFailed, sub.Status)

	unchanged, err := usrSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.PlanFree, unchanged.Plan)
}

func TestVerifyUnknownReference(t *testing.T) {
	svc, _, _ := setup(t, &stubGateway{})

	_, err := svc.Verify(context.Background(), "brainypal_0_premium_0")
	assert.Equal(t, payment.ErrSubscriptionMissing, err)
}

func TestHandleWebhookChargeSuccess(t *testing.T) {
	svc, usrSvc, usr := setup(t, &stubGateway{})
	ctx := context.Background()

	checkout, err := svc.Initialize(ctx, usr, user.PlanPremium)
	require.NoError(t, err)

	payload := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q}}`, checkout.Reference))
	require.NoError(t, svc.HandleWebhook(ctx, payload, ""))

	upgraded, err := usrSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.PlanPremium, upgraded.Plan)

	// replaying the event is a no-op
	require.NoError(t, svc.HandleWebhook(ctx, payload, ""))
}

func TestHandleWebhookBadSignature(t *testing.T) {
	const secret = "whsec_test"
	gateway := &stubGateway{secret: secret}
	svc, _, _ := setup(t, gateway)

	prev := core.Conf.Paystack.WebhookSecret
	core.Conf.Paystack.WebhookSecret = secret
	defer func() { core.Conf.Paystack.WebhookSecret = prev }()

	payload := []byte(`{"event":"charge.success","data":{"reference":"ref"}}`)
	err := svc.HandleWebhook(context.Background(), payload, "deadbeef")
	assert.Equal(t, payment.ErrBadSignature, err)

	// a correctly signed payload passes validation
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))
	err = svc.HandleWebhook(context.Background(), payload, signature)
	assert.Equal(t, payment.ErrSubscriptionMissing, err) // past the signature check
}

func TestHandleWebhookSubscriptionDisable(t *testing.T) {
	svc, usrSvc, usr := setup(t, &stubGateway{})
	ctx := context.Background()

	checkout, err := svc.Initialize(ctx, usr, user.PlanPro)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, checkout.Reference)
	require.NoError(t, err)

	payload := []byte(fmt.Sprintf(`{"event":"subscription.disable","data":{"reference":%q}}`, checkout.Reference))
	require.NoError(t, svc.HandleWebhook(ctx, payload, ""))

	downgraded, err := usrSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.PlanFree, downgraded.Plan)
}

func TestCancel(t *testing.T) {
	svc, usrSvc, usr := setup(t, &stubGateway{})
	ctx := context.Background()

	checkout, err := svc.Initialize(ctx, usr, user.PlanPremium)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, checkout.Reference)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, usr.ID))

	downgraded, err := usrSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.PlanFree, downgraded.Plan)

	err = svc.Cancel(ctx, usr.ID)
	assert.Equal(t, payment.ErrSubscriptionMissing, err)
}
