package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core/payment"
)

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

const subscriptionCols = `id, user_id, plan, status, reference, amount_kobo, currency,
	started_at, expires_at, created_at, updated_at`

func (repo *paymentRepository) CreateSubscription(ctx context.Context, sub payment.Subscription) (payment.Subscription, error) {
	query := `
	INSERT INTO subscription (user_id, plan, status, reference, amount_kobo, currency,
		started_at, expires_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id`
	err := repo.db.QueryRowxContext(ctx, query,
		sub.UserID, sub.Plan, sub.Status, sub.Reference, sub.AmountKobo, sub.Currency,
		sub.StartedAt, sub.ExpiresAt, sub.CreatedAt, sub.UpdatedAt,
	).Scan(&sub.ID)
	return sub, errors.Wrap(err, "inserting subscription")
}

func (repo *paymentRepository) GetSubscriptionByReference(ctx context.Context, reference string) (payment.Subscription, error) {
	var sub payment.Subscription
	query := `SELECT ` + subscriptionCols + ` FROM subscription WHERE reference = $1`
	err := repo.db.GetContext(ctx, &sub, query, reference)
	if err == sql.ErrNoRows {
		return payment.Subscription{}, payment.ErrSubscriptionMissing
	}
	return sub, errors.Wrap(err, "getting subscription by reference")
}

func (repo *paymentRepository) UpdateSubscription(ctx context.Context, sub payment.Subscription) error {
	query := `
	UPDATE subscription
	SET status = $1, started_at = $2, expires_at = $3, updated_at = $4
	WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query, sub.Status, sub.StartedAt, sub.ExpiresAt, sub.UpdatedAt, sub.ID)
	if err != nil {
		return errors.Wrap(err, "updating subscription")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payment.ErrSubscriptionMissing
	}
	return nil
}

func (repo *paymentRepository) GetActiveSubscription(ctx context.Context, userID int) (payment.Subscription, error) {
	var sub payment.Subscription
	query := `SELECT ` + subscriptionCols + ` FROM subscription
	WHERE user_id = $1 AND status = $2
	ORDER BY started_at DESC
	LIMIT 1`
	err := repo.db.GetContext(ctx, &sub, query, userID, payment.StatusActive)
	if err == sql.ErrNoRows {
		return payment.Subscription{}, payment.ErrSubscriptionMissing
	}
	return sub, errors.Wrap(err, "getting active subscription")
}

func (repo *paymentRepository) QuerySubscriptions(ctx context.Context, userID int) ([]payment.Subscription, error) {
	query := `SELECT ` + subscriptionCols + ` FROM subscription WHERE user_id = $1 ORDER BY created_at DESC`
	subs := make([]payment.Subscription, 0)
	err := repo.db.SelectContext(ctx, &subs, query, userID)
	return subs, errors.Wrap(err, "querying subscriptions")
}
