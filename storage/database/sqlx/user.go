package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID                 int          `db:"id"`
	Name               string       `db:"name"`
	Email              string       `db:"email"`
	Plan               string       `db:"plan"`
	IsActive           bool         `db:"is_active"`
	PasswordHash       []byte       `db:"password_hash"`
	DailyGenerations   int          `db:"daily_generations"`
	LastGenerationDate sql.NullTime `db:"last_generation_date"`
	CreatedAt          time.Time    `db:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at"`
	LastLogin          sql.NullTime `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:                 r.ID,
		Name:               r.Name,
		Email:              r.Email,
		Plan:               r.Plan,
		IsActive:           r.IsActive,
		PasswordHash:       r.PasswordHash,
		DailyGenerations:   r.DailyGenerations,
		LastGenerationDate: r.LastGenerationDate.Time,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		LastLogin:          r.LastLogin.Time,
	}
}

const userCols = `id, name, email, plan, is_active, password_hash,
	daily_generations, last_generation_date, created_at, updated_at, last_login`

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT COUNT(*) FROM app_user WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		var err error
		query, args, err = sqlx.In(`SELECT COUNT(*) FROM app_user WHERE email = ? AND id NOT IN (?)`, email, ids)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		query = repo.db.Rebind(query)
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	query := `
	INSERT INTO app_user (name, email, plan, is_active, password_hash, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id`
	err := repo.db.QueryRowxContext(ctx, query,
		usr.Name, usr.Email, usr.Plan, usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	return usr, errors.Wrap(err, "inserting user")
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	return row.toUser(), errors.Wrap(err, "getting user by id")
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+userCols+` FROM app_user WHERE LOWER(email) = LOWER($1)`, email)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	return row.toUser(), errors.Wrap(err, "getting user by email")
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.UpdatedAt = time.Now().UTC()
	query := `
	UPDATE app_user
	SET name = $1, email = $2, plan = $3, is_active = $4, password_hash = $5, updated_at = $6
	WHERE id = $7`
	res, err := repo.db.ExecContext(ctx, query,
		usr.Name, usr.Email, usr.Plan, usr.IsActive, usr.PasswordHash, usr.UpdatedAt, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) SetUserLastLogin(ctx context.Context, usr user.User, t time.Time) (user.User, error) {
	_, err := repo.db.ExecContext(ctx, `UPDATE app_user SET last_login = $1 WHERE id = $2`, t, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	usr.LastLogin = t
	return usr, nil
}

func (repo *userRepository) SetUserPlan(ctx context.Context, id int, plan string) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE app_user SET plan = $1, updated_at = $2 WHERE id = $3`, plan, time.Now().UTC(), id)
	if err != nil {
		return errors.Wrap(err, "setting user plan")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SetUserGenerations(ctx context.Context, id, count int, day time.Time) error {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE app_user SET daily_generations = $1, last_generation_date = $2 WHERE id = $3`, count, day, id)
	return errors.Wrap(err, "setting user generations")
}
