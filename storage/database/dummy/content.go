package dummydb

import (
	"context"
	"sort"

	"github.com/brainypal/backend/core/content"
)

var uploadPKCount int

type contentRepository struct {
	db *contentTable
}

var _ content.Repository = (*contentRepository)(nil)

func NewContentRepository(db *DB) content.Repository {
	return &contentRepository{db: db.content}
}

func (repo *contentRepository) CreateUpload(_ context.Context, up content.UploadedFile) (content.UploadedFile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	uploadPKCount++
	up.ID = uploadPKCount
	repo.db.uploads[up.ID] = &up
	return up, nil
}

func (repo *contentRepository) QueryUploads(_ context.Context, userID int) ([]content.UploadedFile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ups := make([]content.UploadedFile, 0)
	for _, up := range repo.db.uploads {
		if up.UserID == userID {
			ups = append(ups, *up)
		}
	}
	sort.Slice(ups, func(i, j int) bool { return ups[i].UploadedAt.After(ups[j].UploadedAt) })
	return ups, nil
}
