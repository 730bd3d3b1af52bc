package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/user"
)

var (
	ErrUnknownPlan         = errors.New("unknown plan")
	ErrSubscriptionMissing = errors.New("subscription not found")
	ErrBadSignature        = errors.New("invalid webhook signature")
)

const subscriptionTerm = 30 * 24 * time.Hour

type (
	// Gateway talks to the payment provider.
	Gateway interface {
		Initialize(ctx context.Context, email, reference string, amountKobo int, currency string) (Checkout, error)
		Verify(ctx context.Context, reference string) (Charge, error)
		ValidateWebhookSignature(payload []byte, signature string) bool
	}

	Repository interface {
		CreateSubscription(ctx context.Context, sub Subscription) (Subscription, error)
		GetSubscriptionByReference(ctx context.Context, reference string) (Subscription, error)
		UpdateSubscription(ctx context.Context, sub Subscription) error
		GetActiveSubscription(ctx context.Context, userID int) (Subscription, error)
		QuerySubscriptions(ctx context.Context, userID int) ([]Subscription, error)
	}

	Service interface {
		Plans() []Plan
		Initialize(ctx context.Context, usr user.User, planCode string) (Checkout, error)
		Verify(ctx context.Context, reference string) (Subscription, error)
		HandleWebhook(ctx context.Context, payload []byte, signature string) error
		Cancel(ctx context.Context, userID int) error
		History(ctx context.Context, userID int) ([]Subscription, error)
	}

	service struct {
		repo    Repository
		gateway Gateway
		users   user.Service
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, gateway Gateway, users user.Service, logger core.Logger) *service {
	return &service{repo: repo, gateway: gateway, users: users, logger: logger}
}

func (svc *service) Plans() []Plan {
	all := make([]Plan, 0, len(plans))
	for _, p := range plans {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].AmountKobo < all[j].AmountKobo })
	return all
}

// Initialize starts a checkout with the gateway and records a pending
// subscription under a unique reference.
func (svc *service) Initialize(ctx context.Context, usr user.User, planCode string) (Checkout, error) {
	plan, ok := plans[planCode]
	if !ok {
		return Checkout{}, ErrUnknownPlan
	}

	reference := fmt.Sprintf("brainypal_%d_%s_%s", usr.ID, plan.Code, uuid.NewString())
	checkout, err := svc.gateway.Initialize(ctx, usr.Email, reference, plan.AmountKobo, plan.Currency)
	if err != nil {
		return Checkout{}, errors.Wrap(err, "initializing transaction")
	}

	now := time.Now().UTC()
	_, err = svc.repo.CreateSubscription(ctx, Subscription{
		UserID:     usr.ID,
		Plan:       plan.Code,
		Status:     StatusPending,
		Reference:  checkout.Reference,
		AmountKobo: plan.AmountKobo,
		Currency:   plan.Currency,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Checkout{}, errors.Wrap(err, "creating pending subscription")
	}
	return checkout, nil
}

// Verify confirms a transaction with the gateway and activates the
// subscription when the charge went through.
func (svc *service) Verify(ctx context.Context, reference string) (Subscription, error) {
	sub, err := svc.repo.GetSubscriptionByReference(ctx, reference)
	if err != nil {
		return Subscription{}, err
	}

	charge, err := svc.gateway.Verify(ctx, reference)
	if err != nil {
		return Subscription{}, errors.Wrap(err, "verifying transaction")
	}
	if charge.Status != "success" {
		return svc.markFailed(ctx, sub)
	}
	return svc.activate(ctx, sub)
}

// HandleWebhook processes a gateway event. Signature validation is skipped
// when no webhook secret is configured, which only happens in development.
func (svc *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if core.Conf.Paystack.WebhookSecret != "" && !svc.gateway.ValidateWebhookSignature(payload, signature) {
		return ErrBadSignature
	}

	var event struct {
		Event string `json:"event"`
		Data  struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return errors.Wrap(err, "decoding webhook payload")
	}
	if event.Data.Reference == "" {
		svc.logger.Info("webhook without reference, ignoring", "event", event.Event)
		return nil
	}

	sub, err := svc.repo.GetSubscriptionByReference(ctx, event.Data.Reference)
	if err != nil {
		return err
	}

	switch event.Event {
	case "charge.success", "subscription.create":
		_, err = svc.activate(ctx, sub)
	case "charge.failed":
		_, err = svc.markFailed(ctx, sub)
	case "subscription.disable":
		err = svc.cancel(ctx, sub)
	default:
		svc.logger.Info("unhandled webhook event", "event", event.Event)
	}
	return err
}

func (svc *service) Cancel(ctx context.Context, userID int) error {
	sub, err := svc.repo.GetActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	return svc.cancel(ctx, sub)
}

func (svc *service) History(ctx context.Context, userID int) ([]Subscription, error) {
	subs, err := svc.repo.QuerySubscriptions(ctx, userID)
	return subs, errors.Wrap(err, "querying subscriptions")
}

func (svc *service) activate(ctx context.Context, sub Subscription) (Subscription, error) {
	if sub.Status == StatusActive {
		return sub, nil
	}
	now := time.Now().UTC()
	sub.Status = StatusActive
	sub.StartedAt = now
	sub.ExpiresAt = now.Add(subscriptionTerm)
	sub.UpdatedAt = now
	if err := svc.repo.UpdateSubscription(ctx, sub); err != nil {
		return Subscription{}, errors.Wrap(err, "activating subscription")
	}
	if err := svc.users.SetPlan(ctx, sub.UserID, sub.Plan); err != nil {
		return Subscription{}, errors.Wrap(err, "upgrading user plan")
	}
	return sub, nil
}

func (svc *service) markFailed(ctx context.Context, sub Subscription) (Subscription, error) {
	sub.Status = StatusFailed
	sub.UpdatedAt = time.Now().UTC()
	err := svc.repo.UpdateSubscription(ctx, sub)
	return sub, errors.Wrap(err, "marking subscription failed")
}

func (svc *service) cancel(ctx context.Context, sub Subscription) error {
	sub.Status = StatusCancelled
	sub.UpdatedAt = time.Now().UTC()
	if err := svc.repo.UpdateSubscription(ctx, sub); err != nil {
		return errors.Wrap(err, "cancelling subscription")
	}
	return errors.Wrap(svc.users.SetPlan(ctx, sub.UserID, user.PlanFree), "downgrading user plan")
}
