package dummydb

import (
	"sync"

	"github.com/brainypal/backend/core/chat"
	"github.com/brainypal/backend/core/content"
	"github.com/brainypal/backend/core/payment"
	"github.com/brainypal/backend/core/study"
	"github.com/brainypal/backend/core/user"
)

// DB is an in-memory stand-in for the real database, used in tests.
type (
	DB struct {
		user    *userTable
		chat    *chatTables
		study   *studyTables
		content *contentTable
		payment *paymentTable
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
	}

	chatTables struct {
		sync.RWMutex
		conversations map[int]*chat.Conversation
		messages      map[int]*chat.Message
	}

	studyTables struct {
		sync.RWMutex
		flashcards map[int]*study.Flashcard
		quizzes    map[int]*study.Quiz
		sessions   map[int]*study.StudySession
		progress   map[int]*study.TopicProgress
	}

	contentTable struct {
		sync.RWMutex
		uploads map[int]*content.UploadedFile
	}

	paymentTable struct {
		sync.RWMutex
		subscriptions map[int]*payment.Subscription
	}
)

func Open() (*DB, error) {
	return &DB{
		user: &userTable{table: make(map[int]*user.User)},
		chat: &chatTables{
			conversations: make(map[int]*chat.Conversation),
			messages:      make(map[int]*chat.Message),
		},
		study: &studyTables{
			flashcards: make(map[int]*study.Flashcard),
			quizzes:    make(map[int]*study.Quiz),
			sessions:   make(map[int]*study.StudySession),
			progress:   make(map[int]*study.TopicProgress),
		},
		content: &contentTable{uploads: make(map[int]*content.UploadedFile)},
		payment: &paymentTable{subscriptions: make(map[int]*payment.Subscription)},
	}, nil
}
