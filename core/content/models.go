package content

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/brainypal/backend/core"
)

const (
	GenerateFlashcards = "flashcards"
	GenerateQuiz       = "quiz"
	GenerateSummary    = "summary"
	GenerateAll        = "all"
)

// UploadedFile is the record kept for each processed upload.
type UploadedFile struct {
	ID             int       `json:"id" db:"id"`
	UserID         int       `json:"-" db:"user_id"`
	Filename       string    `json:"filename" db:"filename"` // stored name
	OriginalName   string    `json:"original_name" db:"original_name"`
	FileType       string    `json:"file_type" db:"file_type"`
	FileSize       int64     `json:"file_size" db:"file_size"`
	CardsGenerated int       `json:"cards_generated" db:"cards_generated"`
	QuestionsMade  int       `json:"questions_generated" db:"questions_generated"`
	UploadedAt     time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// Upload carries an incoming file and its processing options.
type Upload struct {
	OriginalName string `validate:"required"`
	Data         []byte `validate:"required"`
	GenerateType string `validate:"omitempty,oneof=flashcards quiz summary all"`
	Topic        string `validate:"omitempty,max=120"`
	Difficulty   string `validate:"omitempty,difficulty"`
}

func (up *Upload) Validate() error {
	up.OriginalName = filepath.Base(core.CleanString(up.OriginalName))
	up.GenerateType = core.CleanString(up.GenerateType, true)
	up.Topic = core.CleanString(up.Topic)
	up.Difficulty = core.CleanString(up.Difficulty, true)
	if up.GenerateType == "" {
		up.GenerateType = GenerateFlashcards
	}
	return core.Validate.Struct(up)
}

// Ext returns the lowercased file extension without the leading dot.
func (up *Upload) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(up.OriginalName)), ".")
}
