package study

import (
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"github.com/brainypal/backend/core"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
	DifficultyMixed        = "mixed"
)

const (
	QuizTypeMultipleChoice = "multiple_choice"
	QuizTypeTrueFalse      = "true_false"
	QuizTypeShortAnswer    = "short_answer"
	QuizTypeFillBlank      = "fill_blank"
)

const (
	SourceGenerated = "ai_generated"
	SourceUpload    = "upload"
	SourceManual    = "manual"
)

const (
	SessionFlashcards = "flashcards"
	SessionQuiz       = "quiz"
	SessionPractice   = "practice"
)

// SRS carries the spaced repetition scheduling state of a flashcard.
type SRS struct {
	Due           time.Time  `json:"due" db:"srs_due"`
	Stability     float64    `json:"-" db:"srs_stability"`
	CardDiff      float64    `json:"-" db:"srs_difficulty"`
	ElapsedDays   uint64     `json:"-" db:"srs_elapsed_days"`
	ScheduledDays uint64     `json:"scheduled_days" db:"srs_scheduled_days"`
	Reps          uint64     `json:"reps" db:"srs_reps"`
	Lapses        uint64     `json:"lapses" db:"srs_lapses"`
	State         fsrs.State `json:"-" db:"srs_state"`
	LastReview    time.Time  `json:"-" db:"srs_last_review"`
}

type Flashcard struct {
	ID             int       `json:"id" db:"id"`
	UserID         int       `json:"-" db:"user_id"`
	Question       string    `json:"question" db:"question"`
	Answer         string    `json:"answer" db:"answer"`
	Topic          string    `json:"topic" db:"topic"`
	Difficulty     string    `json:"difficulty" db:"difficulty"`
	Source         string    `json:"source" db:"source"`
	MasteryLevel   float64   `json:"mastery_level" db:"mastery_level"`
	TimesReviewed  int       `json:"times_reviewed" db:"times_reviewed"`
	CorrectReviews int       `json:"-" db:"correct_reviews"`
	LastReviewed   time.Time `json:"last_reviewed,omitempty" db:"last_reviewed"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	SRS
}

func (fc *Flashcard) fsrsCard() fsrs.Card {
	return fsrs.Card{
		Due:           fc.Due,
		Stability:     fc.Stability,
		Difficulty:    fc.CardDiff,
		ElapsedDays:   fc.ElapsedDays,
		ScheduledDays: fc.ScheduledDays,
		Reps:          fc.Reps,
		Lapses:        fc.Lapses,
		State:         fc.State,
		LastReview:    fc.LastReview,
	}
}

func (fc *Flashcard) applyFsrsCard(card fsrs.Card) {
	fc.Due = card.Due
	fc.Stability = card.Stability
	fc.CardDiff = card.Difficulty
	fc.ElapsedDays = card.ElapsedDays
	fc.ScheduledDays = card.ScheduledDays
	fc.Reps = card.Reps
	fc.Lapses = card.Lapses
	fc.State = card.State
	fc.LastReview = card.LastReview
}

type Quiz struct {
	ID         int            `json:"id" db:"id"`
	UserID     int            `json:"-" db:"user_id"`
	Title      string         `json:"title" db:"title"`
	Topic      string         `json:"topic" db:"topic"`
	Difficulty string         `json:"difficulty" db:"difficulty"`
	QuizType   string         `json:"quiz_type" db:"quiz_type"`
	Source     string         `json:"source" db:"source"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
	Questions  []QuizQuestion `json:"questions" db:"-"`
}

type QuizQuestion struct {
	ID            int      `json:"id" db:"id"`
	QuizID        int      `json:"-" db:"quiz_id"`
	Question      string   `json:"question" db:"question"`
	QuestionType  string   `json:"question_type" db:"question_type"`
	Options       []string `json:"options,omitempty" db:"-"`
	CorrectAnswer string   `json:"-" db:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty" db:"explanation"`
	Points        int      `json:"points" db:"points"`
}

// StudySession is a completed run through flashcards, a quiz or practice questions.
type StudySession struct {
	ID              int       `json:"id" db:"id"`
	UserID          int       `json:"-" db:"user_id"`
	SessionType     string    `json:"session_type" db:"session_type"`
	Topic           string    `json:"topic" db:"topic"`
	ItemsStudied    int       `json:"items_studied" db:"items_studied"`
	CorrectAnswers  int       `json:"correct_answers" db:"correct_answers"`
	Accuracy        float64   `json:"accuracy" db:"accuracy"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	CompletedAt     time.Time `json:"completed_at" db:"completed_at"`
}

// TopicProgress accumulates the user's lifetime stats for one topic.
type TopicProgress struct {
	ID                int       `json:"-" db:"id"`
	UserID            int       `json:"-" db:"user_id"`
	Topic             string    `json:"topic" db:"topic"`
	TotalStudyTime    int       `json:"total_study_time" db:"total_study_time"` // minutes
	SessionsCompleted int       `json:"sessions_completed" db:"sessions_completed"`
	AverageScore      float64   `json:"average_score" db:"average_score"`
	StreakDays        int       `json:"streak_days" db:"streak_days"`
	LastStudyDate     time.Time `json:"last_study_date" db:"last_study_date"`
}

// Overview is the roll-up returned by the progress endpoint.
type Overview struct {
	TotalFlashcards   int             `json:"total_flashcards"`
	TotalQuizzes      int             `json:"total_quizzes"`
	TotalStudyTime    int             `json:"total_study_time"`
	SessionsCompleted int             `json:"sessions_completed"`
	AverageScore      float64         `json:"average_score"`
	StreakDays        int             `json:"streak_days"`
	Topics            []TopicProgress `json:"topics"`
	RecentSessions    []StudySession  `json:"recent_sessions"`
}

// TopicStat is one row of the topics listing.
type TopicStat struct {
	Topic          string  `json:"topic" db:"topic"`
	FlashcardCount int     `json:"flashcard_count" db:"flashcard_count"`
	QuizCount      int     `json:"quiz_count" db:"quiz_count"`
	StudyTime      int     `json:"study_time" db:"study_time"`
	AverageScore   float64 `json:"average_score" db:"average_score"`
}

type (
	// GeneratedCard is a question/answer pair produced by a generator.
	GeneratedCard struct {
		Question   string `json:"question"`
		Answer     string `json:"answer"`
		Topic      string `json:"topic"`
		Difficulty string `json:"difficulty"`
	}

	// GeneratedQuestion is a quiz or practice question produced by a generator.
	GeneratedQuestion struct {
		Question      string   `json:"question"`
		QuestionType  string   `json:"question_type"`
		Options       []string `json:"options,omitempty"`
		CorrectAnswer string   `json:"correct_answer"`
		Explanation   string   `json:"explanation,omitempty"`
		Points        int      `json:"points"`
	}
)

type GenerateFlashcards struct {
	Topic      string `json:"topic" validate:"required_without=Content,omitempty,max=120"`
	Content    string `json:"content" validate:"required_without=Topic"`
	Difficulty string `json:"difficulty" validate:"omitempty,difficulty"`
	Count      int    `json:"count" validate:"omitempty,min=1,max=50"`
}

func (gf *GenerateFlashcards) Validate() error {
	gf.Topic = core.CleanString(gf.Topic)
	gf.Content = core.CleanString(gf.Content)
	gf.Difficulty = core.CleanString(gf.Difficulty, true)
	if gf.Count == 0 {
		gf.Count = 5
	}
	if gf.Difficulty == "" {
		gf.Difficulty = DifficultyIntermediate
	}
	return core.Validate.Struct(gf)
}

type GenerateQuiz struct {
	Topic      string `json:"topic" validate:"required_without=Content,omitempty,max=120"`
	Content    string `json:"content" validate:"required_without=Topic"`
	Difficulty string `json:"difficulty" validate:"omitempty,difficulty"`
	QuizType   string `json:"quiz_type" validate:"omitempty,oneof=multiple_choice true_false short_answer fill_blank"`
	Count      int    `json:"count" validate:"omitempty,min=1,max=25"`
}

func (gq *GenerateQuiz) Validate() error {
	gq.Topic = core.CleanString(gq.Topic)
	gq.Content = core.CleanString(gq.Content)
	gq.Difficulty = core.CleanString(gq.Difficulty, true)
	gq.QuizType = core.CleanString(gq.QuizType, true)
	if gq.Count == 0 {
		gq.Count = 5
	}
	if gq.Difficulty == "" {
		gq.Difficulty = DifficultyIntermediate
	}
	if gq.QuizType == "" {
		gq.QuizType = QuizTypeMultipleChoice
	}
	return core.Validate.Struct(gq)
}

type GeneratePractice struct {
	Topic string `json:"topic" validate:"required,max=120"`
	Count int    `json:"count" validate:"omitempty,min=1,max=25"`
}

func (gp *GeneratePractice) Validate() error {
	gp.Topic = core.CleanString(gp.Topic)
	if gp.Count == 0 {
		gp.Count = 10
	}
	return core.Validate.Struct(gp)
}

type ReviewFlashcard struct {
	Correct bool   `json:"correct"`
	Rating  string `json:"rating" validate:"omitempty,oneof=again hard good easy"`
}

func (rf *ReviewFlashcard) Validate() error {
	rf.Rating = core.CleanString(rf.Rating, true)
	return core.Validate.Struct(rf)
}

// FsrsRating maps the request rating to the scheduler's scale, falling back
// to a correctness-based default when the client sends none.
func (rf *ReviewFlashcard) FsrsRating() fsrs.Rating {
	switch rf.Rating {
	case "again":
		return fsrs.Again
	case "hard":
		return fsrs.Hard
	case "good":
		return fsrs.Good
	case "easy":
		return fsrs.Easy
	}
	if rf.Correct {
		return fsrs.Good
	}
	return fsrs.Again
}

type SaveSession struct {
	SessionType     string `json:"session_type" validate:"required,oneof=flashcards quiz practice"`
	Topic           string `json:"topic" validate:"required,max=120"`
	ItemsStudied    int    `json:"items_studied" validate:"required,min=1"`
	CorrectAnswers  int    `json:"correct_answers" validate:"min=0,ltefield=ItemsStudied"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0"`
}

func (ss *SaveSession) Validate() error {
	ss.SessionType = core.CleanString(ss.SessionType, true)
	ss.Topic = core.CleanString(ss.Topic)
	return core.Validate.Struct(ss)
}
