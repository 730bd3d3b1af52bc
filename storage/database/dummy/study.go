package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/brainypal/backend/core/study"
)

var (
	cardPKCount     int
	quizPKCount     int
	questionPKCount int
	sessionPKCount  int
	progressPKCount int
)

type studyRepository struct {
	db *studyTables
}

var _ study.Repository = (*studyRepository)(nil)

func NewStudyRepository(db *DB) study.Repository {
	return &studyRepository{db: db.study}
}

func (repo *studyRepository) CreateFlashcards(_ context.Context, cards []study.Flashcard) ([]study.Flashcard, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i := range cards {
		cardPKCount++
		cards[i].ID = cardPKCount
		card := cards[i]
		repo.db.flashcards[card.ID] = &card
	}
	return cards, nil
}

func (repo *studyRepository) GetFlashcard(_ context.Context, id, userID int) (study.Flashcard, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if card, ok := repo.db.flashcards[id]; ok && card.UserID == userID {
		return *card, nil
	}
	return study.Flashcard{}, study.ErrFlashcardNotFound
}

func (repo *studyRepository) QueryFlashcards(_ context.Context, userID int, topic string) ([]study.Flashcard, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cards := make([]study.Flashcard, 0)
	for _, card := range repo.db.flashcards {
		if card.UserID != userID {
			continue
		}
		if topic != "" && !strings.EqualFold(card.Topic, topic) {
			continue
		}
		cards = append(cards, *card)
	}
	sortCardsByCreated(cards)
	return cards, nil
}

func (repo *studyRepository) QueryDueFlashcards(_ context.Context, userID int, due time.Time, limit int) ([]study.Flashcard, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cards := make([]study.Flashcard, 0)
	for _, card := range repo.db.flashcards {
		if card.UserID == userID && !card.Due.After(due) {
			cards = append(cards, *card)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Due.Before(cards[j].Due) })
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

func (repo *studyRepository) UpdateFlashcard(_ context.Context, card study.Flashcard) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.flashcards[card.ID]
	if !ok || stored.UserID != card.UserID {
		return study.ErrFlashcardNotFound
	}
	repo.db.flashcards[card.ID] = &card
	return nil
}

func (repo *studyRepository) CountFlashcards(_ context.Context, userID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	count := 0
	for _, card := range repo.db.flashcards {
		if card.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (repo *studyRepository) RecentFlashcards(_ context.Context, userID, limit int) ([]study.Flashcard, error) {
	cards, _ := repo.QueryFlashcards(context.Background(), userID, "")
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

func (repo *studyRepository) RecentFlashcardsSince(_ context.Context, userID int, since time.Time, limit int) ([]study.Flashcard, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	cards := make([]study.Flashcard, 0)
	for _, card := range repo.db.flashcards {
		if card.UserID == userID && !card.CreatedAt.Before(since) {
			cards = append(cards, *card)
		}
	}
	sortCardsByCreated(cards)
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

func (repo *studyRepository) SearchFlashcards(_ context.Context, userID int, q string, limit int) ([]study.Flashcard, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q = strings.ToLower(q)
	cards := make([]study.Flashcard, 0)
	for _, card := range repo.db.flashcards {
		if card.UserID != userID {
			continue
		}
		if strings.Contains(strings.ToLower(card.Question), q) ||
			strings.Contains(strings.ToLower(card.Answer), q) ||
			strings.Contains(strings.ToLower(card.Topic), q) {
			cards = append(cards, *card)
		}
	}
	sortCardsByCreated(cards)
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

func sortCardsByCreated(cards []study.Flashcard) {
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].ID > cards[j].ID
		}
		return cards[i].CreatedAt.After(cards[j].CreatedAt)
	})
}

func (repo *studyRepository) CreateQuiz(_ context.Context, quiz study.Quiz) (study.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	quizPKCount++
	quiz.ID = quizPKCount
	for i := range quiz.Questions {
		questionPKCount++
		quiz.Questions[i].ID = questionPKCount
		quiz.Questions[i].QuizID = quiz.ID
	}
	repo.db.quizzes[quiz.ID] = &quiz
	return quiz, nil
}

func (repo *studyRepository) GetQuiz(_ context.Context, id, userID int) (study.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if quiz, ok := repo.db.quizzes[id]; ok && quiz.UserID == userID {
		return *quiz, nil
	}
	return study.Quiz{}, study.ErrQuizNotFound
}

func (repo *studyRepository) QueryQuizzes(_ context.Context, userID int, topic string) ([]study.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	quizzes := make([]study.Quiz, 0)
	for _, quiz := range repo.db.quizzes {
		if quiz.UserID != userID {
			continue
		}
		if topic != "" && !strings.EqualFold(quiz.Topic, topic) {
			continue
		}
		quizzes = append(quizzes, *quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt) })
	return quizzes, nil
}

func (repo *studyRepository) CountQuizzes(_ context.Context, userID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	count := 0
	for _, quiz := range repo.db.quizzes {
		if quiz.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (repo *studyRepository) RecentQuizzesSince(_ context.Context, userID int, since time.Time, limit int) ([]study.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	quizzes := make([]study.Quiz, 0)
	for _, quiz := range repo.db.quizzes {
		if quiz.UserID == userID && !quiz.CreatedAt.Before(since) {
			quizzes = append(quizzes, *quiz)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt) })
	if len(quizzes) > limit {
		quizzes = quizzes[:limit]
	}
	return quizzes, nil
}

func (repo *studyRepository) SearchQuizzes(_ context.Context, userID int, q string, limit int) ([]study.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q = strings.ToLower(q)
	quizzes := make([]study.Quiz, 0)
	for _, quiz := range repo.db.quizzes {
		if quiz.UserID != userID {
			continue
		}
		if strings.Contains(strings.ToLower(quiz.Title), q) || strings.Contains(strings.ToLower(quiz.Topic), q) {
			quizzes = append(quizzes, *quiz)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt) })
	if len(quizzes) > limit {
		quizzes = quizzes[:limit]
	}
	return quizzes, nil
}

func (repo *studyRepository) CreateSession(_ context.Context, session study.StudySession) (study.StudySession, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sessionPKCount++
	session.ID = sessionPKCount
	repo.db.sessions[session.ID] = &session
	return session, nil
}

func (repo *studyRepository) QuerySessions(_ context.Context, userID int, since time.Time, limit int) ([]study.StudySession, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := make([]study.StudySession, 0)
	for _, session := range repo.db.sessions {
		if session.UserID == userID && !session.CompletedAt.Before(since) {
			sessions = append(sessions, *session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CompletedAt.After(sessions[j].CompletedAt) })
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (repo *studyRepository) GetTopicProgress(_ context.Context, userID int, topic string) (study.TopicProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, progress := range repo.db.progress {
		if progress.UserID == userID && strings.EqualFold(progress.Topic, topic) {
			return *progress, nil
		}
	}
	return study.TopicProgress{}, study.ErrProgressNotFound
}

func (repo *studyRepository) UpsertTopicProgress(_ context.Context, progress study.TopicProgress) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, stored := range repo.db.progress {
		if stored.UserID == progress.UserID && strings.EqualFold(stored.Topic, progress.Topic) {
			progress.ID = id
			repo.db.progress[id] = &progress
			return nil
		}
	}
	progressPKCount++
	progress.ID = progressPKCount
	repo.db.progress[progress.ID] = &progress
	return nil
}

func (repo *studyRepository) QueryTopicProgress(_ context.Context, userID int) ([]study.TopicProgress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progress := make([]study.TopicProgress, 0)
	for _, tp := range repo.db.progress {
		if tp.UserID == userID {
			progress = append(progress, *tp)
		}
	}
	sort.Slice(progress, func(i, j int) bool { return progress[i].TotalStudyTime > progress[j].TotalStudyTime })
	return progress, nil
}

func (repo *studyRepository) QueryTopicStats(_ context.Context, userID int) ([]study.TopicStat, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	byTopic := make(map[string]*study.TopicStat)
	stat := func(topic string) *study.TopicStat {
		if topic == "" {
			return nil
		}
		if s, ok := byTopic[topic]; ok {
			return s
		}
		s := &study.TopicStat{Topic: topic}
		byTopic[topic] = s
		return s
	}

	for _, card := range repo.db.flashcards {
		if card.UserID == userID {
			if s := stat(card.Topic); s != nil {
				s.FlashcardCount++
			}
		}
	}
	for _, quiz := range repo.db.quizzes {
		if quiz.UserID == userID {
			if s := stat(quiz.Topic); s != nil {
				s.QuizCount++
			}
		}
	}
	for _, tp := range repo.db.progress {
		if tp.UserID == userID {
			if s := stat(tp.Topic); s != nil {
				s.StudyTime = tp.TotalStudyTime
				s.AverageScore = tp.AverageScore
			}
		}
	}

	stats := make([]study.TopicStat, 0, len(byTopic))
	for _, s := range byTopic {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].StudyTime != stats[j].StudyTime {
			return stats[i].StudyTime > stats[j].StudyTime
		}
		return stats[i].Topic < stats[j].Topic
	})
	return stats, nil
}
