package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/brainypal/backend/core"
)

// Plans
const (
	PlanFree    = "free"
	PlanPremium = "premium"
	PlanPro     = "pro"
)

var AllPlans = []string{PlanFree, PlanPremium, PlanPro}

// PlanLimits caps what a user may generate per day. A negative value means
// unlimited.
type PlanLimits struct {
	DailyGenerations    int `json:"daily_generations"`
	MaxFlashcardsPerGen int `json:"max_flashcards_per_generation"`
	MaxQuestionsPerGen  int `json:"max_questions_per_generation"`
	MaxFileSizeMB       int `json:"max_file_size_mb"`
}

var planLimits = map[string]PlanLimits{
	PlanFree:    {DailyGenerations: 5, MaxFlashcardsPerGen: 10, MaxQuestionsPerGen: 5, MaxFileSizeMB: 5},
	PlanPremium: {DailyGenerations: -1, MaxFlashcardsPerGen: 50, MaxQuestionsPerGen: 25, MaxFileSizeMB: 25},
	PlanPro:     {DailyGenerations: -1, MaxFlashcardsPerGen: 100, MaxQuestionsPerGen: 50, MaxFileSizeMB: 50},
}

func LimitsFor(plan string) PlanLimits {
	if lim, ok := planLimits[plan]; ok {
		return lim
	}
	return planLimits[PlanFree]
}

type User struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Plan         string `json:"plan"`
	IsActive     bool   `json:"is_active"`
	PasswordHash []byte `json:"-"`

	// daily generation accounting, reset when the day rolls over
	DailyGenerations   int       `json:"-"`
	LastGenerationDate time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	LastLogin time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) Limits() PlanLimits {
	return LimitsFor(u.Plan)
}

func (u *User) IsPremium() bool {
	return u.Plan == PlanPremium || u.Plan == PlanPro
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"omitempty,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, svc Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }
