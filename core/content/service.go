package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core"
	"github.com/brainypal/backend/core/study"
	"github.com/brainypal/backend/core/user"
)

var (
	ErrFileTooLarge      = errors.New("file exceeds the size limit for your plan")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrNoExtractableText = errors.New("no text could be extracted from the file")

	storedNameReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
)

const minExtractableRunes = 50

type (
	// Summarizer condenses extracted document text.
	Summarizer interface {
		Summarize(ctx context.Context, content string, maxSentences int) (string, error)
	}

	Repository interface {
		CreateUpload(ctx context.Context, up UploadedFile) (UploadedFile, error)
		QueryUploads(ctx context.Context, userID int) ([]UploadedFile, error)
	}

	Service interface {
		Process(ctx context.Context, usr user.User, in Upload) (ProcessResult, error)
		Uploads(ctx context.Context, userID int) ([]UploadedFile, error)
	}

	service struct {
		repo  Repository
		study study.Service
		summ  Summarizer
	}
)

var _ Service = (*service)(nil)

// ProcessResult is everything generated from one upload.
type ProcessResult struct {
	File       UploadedFile      `json:"file"`
	Flashcards []study.Flashcard `json:"flashcards,omitempty"`
	Quiz       *study.Quiz       `json:"quiz,omitempty"`
	Summary    string            `json:"summary,omitempty"`
}

func NewService(repo Repository, studySvc study.Service, summ Summarizer) *service {
	return &service{repo: repo, study: studySvc, summ: summ}
}

// Process stores the uploaded file, extracts its text and generates the
// requested study material from it. Files whose text cannot be extracted
// still produce material from the topic or filename.
func (svc *service) Process(ctx context.Context, usr user.User, in Upload) (ProcessResult, error) {
	ext := in.Ext()
	if !ExtAllowed(ext) {
		return ProcessResult{}, ErrUnsupportedType
	}
	if maxBytes := svc.maxBytes(usr); int64(len(in.Data)) > maxBytes {
		return ProcessResult{}, ErrFileTooLarge
	}

	stored, err := svc.store(usr.ID, in)
	if err != nil {
		return ProcessResult{}, err
	}

	text, err := ExtractText(in.Data, ext)
	if err != nil || len([]rune(strings.TrimSpace(text))) < minExtractableRunes {
		// degrade to topic-based generation
		text = ""
	}

	topic := in.Topic
	if topic == "" {
		topic = strings.TrimSuffix(in.OriginalName, filepath.Ext(in.OriginalName))
	}
	if text == "" && topic == "" {
		return ProcessResult{}, ErrNoExtractableText
	}

	result := ProcessResult{}
	if in.GenerateType == GenerateFlashcards || in.GenerateType == GenerateAll {
		gf := study.GenerateFlashcards{Topic: topic, Content: text, Difficulty: in.Difficulty}
		if err := gf.Validate(); err != nil {
			return ProcessResult{}, err
		}
		if result.Flashcards, err = svc.study.GenerateFlashcards(ctx, usr, gf); err != nil {
			return ProcessResult{}, err
		}
	}
	if in.GenerateType == GenerateQuiz || in.GenerateType == GenerateAll {
		gq := study.GenerateQuiz{Topic: topic, Content: text, Difficulty: in.Difficulty}
		if err := gq.Validate(); err != nil {
			return ProcessResult{}, err
		}
		quiz, err := svc.study.GenerateQuiz(ctx, usr, gq)
		if err != nil {
			return ProcessResult{}, err
		}
		result.Quiz = &quiz
	}
	if in.GenerateType == GenerateSummary || in.GenerateType == GenerateAll {
		if text == "" {
			return ProcessResult{}, ErrNoExtractableText
		}
		if result.Summary, err = svc.summ.Summarize(ctx, text, 5); err != nil {
			return ProcessResult{}, errors.Wrap(err, "summarizing upload")
		}
	}

	questions := 0
	if result.Quiz != nil {
		questions = len(result.Quiz.Questions)
	}
	result.File, err = svc.repo.CreateUpload(ctx, UploadedFile{
		UserID:         usr.ID,
		Filename:       stored,
		OriginalName:   in.OriginalName,
		FileType:       ext,
		FileSize:       int64(len(in.Data)),
		CardsGenerated: len(result.Flashcards),
		QuestionsMade:  questions,
		UploadedAt:     time.Now().UTC(),
	})
	return result, errors.Wrap(err, "recording upload")
}

func (svc *service) Uploads(ctx context.Context, userID int) ([]UploadedFile, error) {
	ups, err := svc.repo.QueryUploads(ctx, userID)
	return ups, errors.Wrap(err, "querying uploads")
}

func (svc *service) maxBytes(usr user.User) int64 {
	maxMB := core.Conf.Upload.MaxSizeMB
	if planMB := int64(usr.Limits().MaxFileSizeMB); planMB > 0 && planMB < maxMB {
		maxMB = planMB
	}
	return maxMB << 20
}

func (svc *service) store(userID int, in Upload) (string, error) {
	dir := core.Conf.Upload.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}
	name := fmt.Sprintf("%d_%s_%s", userID, uuid.NewString(), storedNameReplacer.Replace(in.OriginalName))
	if err := os.WriteFile(filepath.Join(dir, name), in.Data, 0o644); err != nil {
		return "", errors.Wrap(err, "writing upload")
	}
	return name, nil
}
