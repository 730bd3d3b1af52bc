package dummydb

import (
	"context"
	"sort"

	"github.com/brainypal/backend/core/payment"
)

var subPKCount int

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreateSubscription(_ context.Context, sub payment.Subscription) (payment.Subscription, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	subPKCount++
	sub.ID = subPKCount
	repo.db.subscriptions[sub.ID] = &sub
	return sub, nil
}

func (repo *paymentRepository) GetSubscriptionByReference(_ context.Context, reference string) (payment.Subscription, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sub := range repo.db.subscriptions {
		if sub.Reference == reference {
			return *sub, nil
		}
	}
	return payment.Subscription{}, payment.ErrSubscriptionMissing
}

func (repo *paymentRepository) UpdateSubscription(_ context.Context, sub payment.Subscription) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subscriptions[sub.ID]; !ok {
		return payment.ErrSubscriptionMissing
	}
	repo.db.subscriptions[sub.ID] = &sub
	return nil
}

func (repo *paymentRepository) GetActiveSubscription(_ context.Context, userID int) (payment.Subscription, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var latest *payment.Subscription
	for _, sub := range repo.db.subscriptions {
		if sub.UserID != userID || sub.Status != payment.StatusActive {
			continue
		}
		if latest == nil || sub.StartedAt.After(latest.StartedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return payment.Subscription{}, payment.ErrSubscriptionMissing
	}
	return *latest, nil
}

func (repo *paymentRepository) QuerySubscriptions(_ context.Context, userID int) ([]payment.Subscription, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]payment.Subscription, 0)
	for _, sub := range repo.db.subscriptions {
		if sub.UserID == userID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	return subs, nil
}
