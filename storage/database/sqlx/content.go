package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core/content"
)

type contentRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *sqlx.DB) *contentRepository {
	return &contentRepository{db: db}
}

func (repo *contentRepository) CreateUpload(ctx context.Context, up content.UploadedFile) (content.UploadedFile, error) {
	query := `
	INSERT INTO uploaded_file (user_id, filename, original_name, file_type, file_size,
		cards_generated, questions_generated, uploaded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`
	err := repo.db.QueryRowxContext(ctx, query,
		up.UserID, up.Filename, up.OriginalName, up.FileType, up.FileSize,
		up.CardsGenerated, up.QuestionsMade, up.UploadedAt,
	).Scan(&up.ID)
	return up, errors.Wrap(err, "inserting uploaded file")
}

func (repo *contentRepository) QueryUploads(ctx context.Context, userID int) ([]content.UploadedFile, error) {
	query := `
	SELECT id, user_id, filename, original_name, file_type, file_size,
		cards_generated, questions_generated, uploaded_at
	FROM uploaded_file
	WHERE user_id = $1
	ORDER BY uploaded_at DESC`

	ups := make([]content.UploadedFile, 0)
	err := repo.db.SelectContext(ctx, &ups, query, userID)
	return ups, errors.Wrap(err, "querying uploads")
}
