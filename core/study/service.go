package study

import (
	"context"
	"strconv"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core/user"
)

var (
	ErrFlashcardNotFound = errors.New("flashcard not found")
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrProgressNotFound  = errors.New("topic progress not found")
)

const (
	searchFlashcardLimit = 20
	searchQuizLimit      = 10
	recentSessionsLimit  = 10
	recentActivityLimit  = 20
	dashboardRecentLimit = 5
)

type (
	// Generator produces study material from a topic or raw content.
	// Implementations fall back to template material when no hosted
	// model is reachable, so failures are rare.
	Generator interface {
		Flashcards(ctx context.Context, topic, content, difficulty string, count int) ([]GeneratedCard, error)
		QuizQuestions(ctx context.Context, topic, content, difficulty, quizType string, count int) ([]GeneratedQuestion, error)
		PracticeQuestions(ctx context.Context, topic string, count int) ([]GeneratedQuestion, error)
	}

	Repository interface {
		CreateFlashcards(ctx context.Context, cards []Flashcard) ([]Flashcard, error)
		GetFlashcard(ctx context.Context, id, userID int) (Flashcard, error)
		QueryFlashcards(ctx context.Context, userID int, topic string) ([]Flashcard, error)
		QueryDueFlashcards(ctx context.Context, userID int, due time.Time, limit int) ([]Flashcard, error)
		UpdateFlashcard(ctx context.Context, card Flashcard) error
		CountFlashcards(ctx context.Context, userID int) (int, error)
		RecentFlashcards(ctx context.Context, userID, limit int) ([]Flashcard, error)
		RecentFlashcardsSince(ctx context.Context, userID int, since time.Time, limit int) ([]Flashcard, error)
		SearchFlashcards(ctx context.Context, userID int, q string, limit int) ([]Flashcard, error)

		CreateQuiz(ctx context.Context, quiz Quiz) (Quiz, error)
		GetQuiz(ctx context.Context, id, userID int) (Quiz, error)
		QueryQuizzes(ctx context.Context, userID int, topic string) ([]Quiz, error)
		CountQuizzes(ctx context.Context, userID int) (int, error)
		RecentQuizzesSince(ctx context.Context, userID int, since time.Time, limit int) ([]Quiz, error)
		SearchQuizzes(ctx context.Context, userID int, q string, limit int) ([]Quiz, error)

		CreateSession(ctx context.Context, session StudySession) (StudySession, error)
		QuerySessions(ctx context.Context, userID int, since time.Time, limit int) ([]StudySession, error)

		GetTopicProgress(ctx context.Context, userID int, topic string) (TopicProgress, error)
		UpsertTopicProgress(ctx context.Context, progress TopicProgress) error
		QueryTopicProgress(ctx context.Context, userID int) ([]TopicProgress, error)
		QueryTopicStats(ctx context.Context, userID int) ([]TopicStat, error)
	}

	Service interface {
		Flashcards(ctx context.Context, userID int, topic string) ([]Flashcard, error)
		DueFlashcards(ctx context.Context, userID, limit int) ([]Flashcard, error)
		GenerateFlashcards(ctx context.Context, usr user.User, in GenerateFlashcards) ([]Flashcard, error)
		ReviewFlashcard(ctx context.Context, userID, cardID int, in ReviewFlashcard) (Flashcard, error)

		Quizzes(ctx context.Context, userID int, topic string) ([]Quiz, error)
		GetQuiz(ctx context.Context, id, userID int) (Quiz, error)
		GenerateQuiz(ctx context.Context, usr user.User, in GenerateQuiz) (Quiz, error)
		SubmitQuiz(ctx context.Context, userID, quizID int, answers map[int]string, durationMinutes int) (QuizResult, error)
		GeneratePractice(ctx context.Context, usr user.User, in GeneratePractice) ([]GeneratedQuestion, error)

		SaveSession(ctx context.Context, userID int, in SaveSession) (StudySession, error)
		Progress(ctx context.Context, userID int) (Overview, error)
		DashboardStats(ctx context.Context, userID int) (Dashboard, error)
		Search(ctx context.Context, userID int, q string) ([]Flashcard, []Quiz, error)
		RecentActivity(ctx context.Context, userID int, since time.Time) ([]Flashcard, []Quiz, error)
		Topics(ctx context.Context, userID int) ([]TopicStat, error)
	}

	service struct {
		repo   Repository
		gen    Generator
		params fsrs.Parameters
	}
)

var _ Service = (*service)(nil)

// QuestionResult is the grading outcome for one quiz question.
type QuestionResult struct {
	QuestionID    int    `json:"question_id"`
	Correct       bool   `json:"correct"`
	GivenAnswer   string `json:"given_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

type QuizResult struct {
	QuizID         int              `json:"quiz_id"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"total_questions"`
	Accuracy       float64          `json:"accuracy"`
	Results        []QuestionResult `json:"results"`
}

// Dashboard is the study half of the dashboard payload.
type Dashboard struct {
	TotalFlashcards  int         `json:"total_flashcards"`
	TotalQuizzes     int         `json:"total_quizzes"`
	RecentFlashcards []Flashcard `json:"recent_flashcards"`
	TopTopics        []TopicStat `json:"top_topics"`
	StudiedToday     bool        `json:"studied_today"`
}

func NewService(repo Repository, gen Generator) *service {
	return &service{repo: repo, gen: gen, params: fsrs.DefaultParam()}
}

func (svc *service) Flashcards(ctx context.Context, userID int, topic string) ([]Flashcard, error) {
	cards, err := svc.repo.QueryFlashcards(ctx, userID, topic)
	return cards, errors.Wrap(err, "querying flashcards")
}

func (svc *service) DueFlashcards(ctx context.Context, userID, limit int) ([]Flashcard, error) {
	cards, err := svc.repo.QueryDueFlashcards(ctx, userID, time.Now().UTC(), limit)
	return cards, errors.Wrap(err, "querying due flashcards")
}

func (svc *service) GenerateFlashcards(ctx context.Context, usr user.User, in GenerateFlashcards) ([]Flashcard, error) {
	count := clampCount(in.Count, usr.Limits().MaxFlashcardsPerGen)
	generated, err := svc.gen.Flashcards(ctx, in.Topic, in.Content, in.Difficulty, count)
	if err != nil {
		return nil, errors.Wrap(err, "generating flashcards")
	}

	now := time.Now().UTC()
	cards := make([]Flashcard, 0, len(generated))
	for _, gc := range generated {
		topic := gc.Topic
		if topic == "" {
			topic = in.Topic
		}
		difficulty := gc.Difficulty
		if difficulty == "" {
			difficulty = in.Difficulty
		}
		cards = append(cards, Flashcard{
			UserID:     usr.ID,
			Question:   gc.Question,
			Answer:     gc.Answer,
			Topic:      topic,
			Difficulty: difficulty,
			Source:     SourceGenerated,
			CreatedAt:  now,
			SRS:        SRS{Due: now, State: fsrs.New},
		})
	}
	cards, err = svc.repo.CreateFlashcards(ctx, cards)
	return cards, errors.Wrap(err, "creating flashcards")
}

// ReviewFlashcard records a review outcome. Mastery climbs with each correct
// review and tops out after ten of them; the next due date comes from the
// spaced repetition scheduler.
func (svc *service) ReviewFlashcard(ctx context.Context, userID, cardID int, in ReviewFlashcard) (Flashcard, error) {
	card, err := svc.repo.GetFlashcard(ctx, cardID, userID)
	if err != nil {
		return Flashcard{}, err
	}

	now := time.Now().UTC()
	card.TimesReviewed++
	if in.Correct {
		card.CorrectReviews++
	}
	card.MasteryLevel = mastery(card.CorrectReviews)
	card.LastReviewed = now

	scheduled := svc.params.Repeat(card.fsrsCard(), now)
	card.applyFsrsCard(scheduled[in.FsrsRating()].Card)

	if err = svc.repo.UpdateFlashcard(ctx, card); err != nil {
		return Flashcard{}, errors.Wrap(err, "updating flashcard")
	}
	return card, nil
}

func mastery(correctReviews int) float64 {
	m := float64(correctReviews) / 10
	if m > 1 {
		m = 1
	}
	return m
}

func (svc *service) Quizzes(ctx context.Context, userID int, topic string) ([]Quiz, error) {
	quizzes, err := svc.repo.QueryQuizzes(ctx, userID, topic)
	return quizzes, errors.Wrap(err, "querying quizzes")
}

func (svc *service) GetQuiz(ctx context.Context, id, userID int) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, id, userID)
}

func (svc *service) GenerateQuiz(ctx context.Context, usr user.User, in GenerateQuiz) (Quiz, error) {
	count := clampCount(in.Count, usr.Limits().MaxQuestionsPerGen)
	generated, err := svc.gen.QuizQuestions(ctx, in.Topic, in.Content, in.Difficulty, in.QuizType, count)
	if err != nil {
		return Quiz{}, errors.Wrap(err, "generating quiz questions")
	}

	questions := make([]QuizQuestion, 0, len(generated))
	for _, gq := range generated {
		points := gq.Points
		if points == 0 {
			points = 1
		}
		questions = append(questions, QuizQuestion{
			Question:      gq.Question,
			QuestionType:  gq.QuestionType,
			Options:       gq.Options,
			CorrectAnswer: gq.CorrectAnswer,
			Explanation:   gq.Explanation,
			Points:        points,
		})
	}

	title := "Generated Quiz"
	if in.Topic != "" {
		title = in.Topic + " Quiz"
	}
	quiz, err := svc.repo.CreateQuiz(ctx, Quiz{
		UserID:     usr.ID,
		Title:      title,
		Topic:      in.Topic,
		Difficulty: in.Difficulty,
		QuizType:   in.QuizType,
		Source:     SourceGenerated,
		CreatedAt:  time.Now().UTC(),
		Questions:  questions,
	})
	return quiz, errors.Wrap(err, "creating quiz")
}

// SubmitQuiz grades the given answers against the stored questions and records
// a study session for the attempt.
func (svc *service) SubmitQuiz(ctx context.Context, userID, quizID int, answers map[int]string, durationMinutes int) (QuizResult, error) {
	quiz, err := svc.repo.GetQuiz(ctx, quizID, userID)
	if err != nil {
		return QuizResult{}, err
	}

	result := QuizResult{QuizID: quiz.ID, TotalQuestions: len(quiz.Questions)}
	for _, q := range quiz.Questions {
		given := answers[q.ID]
		correct := answersMatch(q, given)
		if correct {
			result.Score++
		}
		result.Results = append(result.Results, QuestionResult{
			QuestionID:    q.ID,
			Correct:       correct,
			GivenAnswer:   given,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	if result.TotalQuestions > 0 {
		result.Accuracy = float64(result.Score) / float64(result.TotalQuestions) * 100
	}

	_, err = svc.SaveSession(ctx, userID, SaveSession{
		SessionType:     SessionQuiz,
		Topic:           quiz.Topic,
		ItemsStudied:    result.TotalQuestions,
		CorrectAnswers:  result.Score,
		DurationMinutes: durationMinutes,
	})
	if err != nil {
		return QuizResult{}, errors.Wrap(err, "recording quiz session")
	}
	return result, nil
}

// answersMatch accepts the correct answer's text for any question type, the
// option index for multiple choice, and boolean forms for true/false.
func answersMatch(q QuizQuestion, given string) bool {
	given = strings.TrimSpace(given)
	correct := strings.TrimSpace(q.CorrectAnswer)
	if strings.EqualFold(given, correct) {
		return true
	}

	switch q.QuestionType {
	case QuizTypeMultipleChoice:
		idx, err := strconv.Atoi(given)
		if err != nil || idx < 0 || idx >= len(q.Options) {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(q.Options[idx]), correct)
	case QuizTypeTrueFalse:
		g, gerr := strconv.ParseBool(strings.ToLower(given))
		c, cerr := strconv.ParseBool(strings.ToLower(correct))
		return gerr == nil && cerr == nil && g == c
	}
	return false
}

func (svc *service) GeneratePractice(ctx context.Context, usr user.User, in GeneratePractice) ([]GeneratedQuestion, error) {
	count := clampCount(in.Count, usr.Limits().MaxQuestionsPerGen)
	questions, err := svc.gen.PracticeQuestions(ctx, in.Topic, count)
	return questions, errors.Wrap(err, "generating practice questions")
}

// SaveSession records a completed study session and folds it into the
// per-topic progress stats.
func (svc *service) SaveSession(ctx context.Context, userID int, in SaveSession) (StudySession, error) {
	if in.Topic == "" {
		in.Topic = "General"
	}
	session := StudySession{
		UserID:          userID,
		SessionType:     in.SessionType,
		Topic:           in.Topic,
		ItemsStudied:    in.ItemsStudied,
		CorrectAnswers:  in.CorrectAnswers,
		DurationMinutes: in.DurationMinutes,
		CompletedAt:     time.Now().UTC(),
	}
	if session.ItemsStudied > 0 {
		session.Accuracy = float64(session.CorrectAnswers) / float64(session.ItemsStudied) * 100
	}

	session, err := svc.repo.CreateSession(ctx, session)
	if err != nil {
		return StudySession{}, errors.Wrap(err, "creating study session")
	}
	if err = svc.updateProgress(ctx, userID, session); err != nil {
		return StudySession{}, err
	}
	return session, nil
}

func (svc *service) updateProgress(ctx context.Context, userID int, session StudySession) error {
	progress, err := svc.repo.GetTopicProgress(ctx, userID, session.Topic)
	isNew := errors.Cause(err) == ErrProgressNotFound
	if err != nil && !isNew {
		return errors.Wrap(err, "getting topic progress")
	}
	if isNew {
		progress = TopicProgress{UserID: userID, Topic: session.Topic}
	}

	progress.TotalStudyTime += session.DurationMinutes
	progress.SessionsCompleted++
	// zero-score sessions do not drag the running average down
	if session.Accuracy > 0 {
		if progress.AverageScore == 0 {
			progress.AverageScore = session.Accuracy
		} else {
			progress.AverageScore = (progress.AverageScore + session.Accuracy) / 2
		}
	}

	today := session.CompletedAt.Truncate(24 * time.Hour)
	switch {
	case progress.LastStudyDate.IsZero():
		progress.StreakDays = 1
	default:
		switch days := int(today.Sub(progress.LastStudyDate.Truncate(24*time.Hour)).Hours() / 24); {
		case days == 1:
			progress.StreakDays++
		case days > 1:
			progress.StreakDays = 1
		}
	}
	progress.LastStudyDate = today

	return errors.Wrap(svc.repo.UpsertTopicProgress(ctx, progress), "upserting topic progress")
}

func (svc *service) Progress(ctx context.Context, userID int) (Overview, error) {
	topics, err := svc.repo.QueryTopicProgress(ctx, userID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying topic progress")
	}
	sessions, err := svc.repo.QuerySessions(ctx, userID, time.Time{}, recentSessionsLimit)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying recent sessions")
	}
	totalCards, err := svc.repo.CountFlashcards(ctx, userID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "counting flashcards")
	}
	totalQuizzes, err := svc.repo.CountQuizzes(ctx, userID)
	if err != nil {
		return Overview{}, errors.Wrap(err, "counting quizzes")
	}

	overview := Overview{
		TotalFlashcards: totalCards,
		TotalQuizzes:    totalQuizzes,
		Topics:          topics,
		RecentSessions:  sessions,
	}
	for _, tp := range topics {
		overview.TotalStudyTime += tp.TotalStudyTime
		overview.SessionsCompleted += tp.SessionsCompleted
		overview.AverageScore += tp.AverageScore
		if tp.StreakDays > overview.StreakDays {
			overview.StreakDays = tp.StreakDays
		}
	}
	if len(topics) > 0 {
		overview.AverageScore /= float64(len(topics))
	}
	return overview, nil
}

func (svc *service) DashboardStats(ctx context.Context, userID int) (Dashboard, error) {
	totalCards, err := svc.repo.CountFlashcards(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "counting flashcards")
	}
	totalQuizzes, err := svc.repo.CountQuizzes(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "counting quizzes")
	}
	recent, err := svc.repo.RecentFlashcards(ctx, userID, dashboardRecentLimit)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying recent flashcards")
	}
	stats, err := svc.repo.QueryTopicStats(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying topic stats")
	}
	if len(stats) > dashboardRecentLimit {
		stats = stats[:dashboardRecentLimit]
	}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	todays, err := svc.repo.QuerySessions(ctx, userID, midnight, 1)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying today's sessions")
	}

	return Dashboard{
		TotalFlashcards:  totalCards,
		TotalQuizzes:     totalQuizzes,
		RecentFlashcards: recent,
		TopTopics:        stats,
		StudiedToday:     len(todays) > 0,
	}, nil
}

func (svc *service) Search(ctx context.Context, userID int, q string) ([]Flashcard, []Quiz, error) {
	cards, err := svc.repo.SearchFlashcards(ctx, userID, q, searchFlashcardLimit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "searching flashcards")
	}
	quizzes, err := svc.repo.SearchQuizzes(ctx, userID, q, searchQuizLimit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "searching quizzes")
	}
	return cards, quizzes, nil
}

// RecentActivity lists flashcards and quizzes created since the given time,
// newest first, for the activity history feed.
func (svc *service) RecentActivity(ctx context.Context, userID int, since time.Time) ([]Flashcard, []Quiz, error) {
	cards, err := svc.repo.RecentFlashcardsSince(ctx, userID, since, recentActivityLimit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying recent flashcards")
	}
	quizzes, err := svc.repo.RecentQuizzesSince(ctx, userID, since, recentActivityLimit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying recent quizzes")
	}
	return cards, quizzes, nil
}

func (svc *service) Topics(ctx context.Context, userID int) ([]TopicStat, error) {
	stats, err := svc.repo.QueryTopicStats(ctx, userID)
	return stats, errors.Wrap(err, "querying topic stats")
}

func clampCount(count, limit int) int {
	if limit > 0 && count > limit {
		return limit
	}
	return count
}
