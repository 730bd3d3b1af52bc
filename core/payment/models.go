package payment

import (
	"time"

	"github.com/brainypal/backend/core"
)

const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Plan is a paid tier offered at checkout. Amounts are in kobo, Paystack's
// smallest currency unit.
type Plan struct {
	Code       string   `json:"code"`
	Name       string   `json:"name"`
	AmountKobo int      `json:"amount"`
	Currency   string   `json:"currency"`
	Interval   string   `json:"interval"`
	Features   []string `json:"features"`
}

var plans = map[string]Plan{
	"premium": {
		Code:       "premium",
		Name:       "Premium",
		AmountKobo: 99900,
		Currency:   "KES",
		Interval:   "monthly",
		Features: []string{
			"Unlimited daily generations",
			"Up to 50 flashcards per generation",
			"Up to 25 quiz questions per generation",
			"25MB file uploads",
		},
	},
	"pro": {
		Code:       "pro",
		Name:       "Pro",
		AmountKobo: 199900,
		Currency:   "KES",
		Interval:   "monthly",
		Features: []string{
			"Everything in Premium",
			"Up to 100 flashcards per generation",
			"Up to 50 quiz questions per generation",
			"50MB file uploads",
		},
	},
}

type Subscription struct {
	ID         int       `json:"id" db:"id"`
	UserID     int       `json:"-" db:"user_id"`
	Plan       string    `json:"plan" db:"plan"`
	Status     string    `json:"status" db:"status"`
	Reference  string    `json:"reference" db:"reference"`
	AmountKobo int       `json:"amount" db:"amount_kobo"`
	Currency   string    `json:"currency" db:"currency"`
	StartedAt  time.Time `json:"started_at,omitempty" db:"started_at"`
	ExpiresAt  time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive && time.Now().UTC().Before(s.ExpiresAt)
}

type InitializePayment struct {
	Plan string `json:"plan" validate:"required,oneof=premium pro"`
}

func (ip *InitializePayment) Validate() error {
	ip.Plan = core.CleanString(ip.Plan, true)
	return core.Validate.Struct(ip)
}

// Checkout is what the gateway hands back when a transaction is initialized.
type Checkout struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Charge is the gateway's view of a transaction.
type Charge struct {
	Reference  string    `json:"reference"`
	Status     string    `json:"status"`
	AmountKobo int       `json:"amount"`
	Currency   string    `json:"currency"`
	Channel    string    `json:"channel,omitempty"`
	PaidAt     time.Time `json:"paid_at,omitempty"`
}
