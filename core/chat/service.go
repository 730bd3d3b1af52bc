package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/brainypal/backend/core"
)

var ErrNotFound = errors.New("conversation not found")

const (
	titleMaxLen     = 50
	previewMaxLen   = 100
	historyWindow   = 6
	welcomeTitle    = "Welcome Chat"
	welcomeGreeting = "Hi there! I'm BrainyPal, your AI study assistant. " +
		"Ask me anything, or upload your notes and I'll turn them into flashcards and quizzes."
)

type (
	// Exchange is one past user/assistant turn handed to the responder as context.
	Exchange struct {
		UserMsg string
		AIMsg   string
	}

	// Reply is a responder's answer to a chat message.
	Reply struct {
		Text       string
		Model      string
		Confidence float64
	}

	// Responder produces assistant replies. Implementations should degrade
	// gracefully rather than fail when the hosted model is unavailable.
	Responder interface {
		Reply(ctx context.Context, message string, history []Exchange) (Reply, error)
	}

	Repository interface {
		CreateConversation(ctx context.Context, conv Conversation) (Conversation, error)
		GetConversation(ctx context.Context, id, userID int) (Conversation, error)
		QueryConversationPreviews(ctx context.Context, userID int) ([]ConversationPreview, error)
		RecentPreviews(ctx context.Context, userID int, since time.Time, limit int) ([]ConversationPreview, error)
		TouchConversation(ctx context.Context, id int, t time.Time) error
		SearchConversations(ctx context.Context, userID int, q string, limit int) ([]Conversation, error)
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		QueryMessages(ctx context.Context, conversationID int) ([]Message, error)
		RecentMessages(ctx context.Context, conversationID, limit int) ([]Message, error)
	}

	Service interface {
		StartWelcomeConversation(ctx context.Context, userID int) error
		QueryPreviews(ctx context.Context, userID int) ([]ConversationPreview, error)
		Recent(ctx context.Context, userID int, since time.Time, limit int) ([]ConversationPreview, error)
		GetWithMessages(ctx context.Context, id, userID int) (Conversation, []Message, error)
		Search(ctx context.Context, userID int, q string, limit int) ([]Conversation, error)
		Send(ctx context.Context, userID, conversationID int, content string) (SendResult, error)
	}

	service struct {
		repo      Repository
		responder Responder
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, responder Responder) *service {
	return &service{repo: repo, responder: responder}
}

// StartWelcomeConversation seeds a new user's account with a greeting chat.
func (svc *service) StartWelcomeConversation(ctx context.Context, userID int) error {
	now := time.Now().UTC()
	conv, err := svc.repo.CreateConversation(ctx, Conversation{
		UserID:    userID,
		Title:     welcomeTitle,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return errors.Wrap(err, "creating welcome conversation")
	}
	_, err = svc.repo.CreateMessage(ctx, Message{
		ConversationID: conv.ID,
		Content:        welcomeGreeting,
		IsUser:         false,
		AIModel:        "system",
		Confidence:     1,
		Timestamp:      now,
	})
	return errors.Wrap(err, "creating welcome message")
}

func (svc *service) QueryPreviews(ctx context.Context, userID int) ([]ConversationPreview, error) {
	previews, err := svc.repo.QueryConversationPreviews(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying conversation previews")
	}
	for i := range previews {
		previews[i].LastMessage = core.Truncate(previews[i].LastMessage, previewMaxLen)
	}
	return previews, nil
}

// Recent lists conversations started since the given time, newest first.
func (svc *service) Recent(ctx context.Context, userID int, since time.Time, limit int) ([]ConversationPreview, error) {
	previews, err := svc.repo.RecentPreviews(ctx, userID, since, limit)
	return previews, errors.Wrap(err, "querying recent conversations")
}

func (svc *service) GetWithMessages(ctx context.Context, id, userID int) (Conversation, []Message, error) {
	conv, err := svc.repo.GetConversation(ctx, id, userID)
	if err != nil {
		return Conversation{}, nil, err
	}
	msgs, err := svc.repo.QueryMessages(ctx, conv.ID)
	if err != nil {
		return Conversation{}, nil, errors.Wrap(err, "querying messages")
	}
	return conv, msgs, nil
}

func (svc *service) Search(ctx context.Context, userID int, q string, limit int) ([]Conversation, error) {
	convs, err := svc.repo.SearchConversations(ctx, userID, q, limit)
	return convs, errors.Wrap(err, "searching conversations")
}

// Send records the user's message, asks the responder for a reply using the
// recent history as context, and records the reply. A zero conversationID
// starts a new conversation titled after the message.
func (svc *service) Send(ctx context.Context, userID, conversationID int, content string) (SendResult, error) {
	now := time.Now().UTC()

	var conv Conversation
	var err error
	if conversationID == 0 {
		conv, err = svc.repo.CreateConversation(ctx, Conversation{
			UserID:    userID,
			Title:     core.Truncate(content, titleMaxLen),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return SendResult{}, errors.Wrap(err, "creating conversation")
		}
	} else {
		if conv, err = svc.repo.GetConversation(ctx, conversationID, userID); err != nil {
			return SendResult{}, err
		}
	}

	history, err := svc.history(ctx, conv.ID)
	if err != nil {
		return SendResult{}, err
	}

	userMsg, err := svc.repo.CreateMessage(ctx, Message{
		ConversationID: conv.ID,
		Content:        content,
		IsUser:         true,
		Timestamp:      now,
	})
	if err != nil {
		return SendResult{}, errors.Wrap(err, "creating user message")
	}

	start := time.Now()
	reply, err := svc.responder.Reply(ctx, content, history)
	if err != nil {
		return SendResult{}, errors.Wrap(err, "generating reply")
	}

	aiMsg, err := svc.repo.CreateMessage(ctx, Message{
		ConversationID: conv.ID,
		Content:        reply.Text,
		IsUser:         false,
		AIModel:        reply.Model,
		Confidence:     reply.Confidence,
		ProcessingTime: time.Since(start).Seconds(),
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		return SendResult{}, errors.Wrap(err, "creating assistant message")
	}

	if err = svc.repo.TouchConversation(ctx, conv.ID, aiMsg.Timestamp); err != nil {
		return SendResult{}, errors.Wrap(err, "touching conversation")
	}
	return SendResult{ConversationID: conv.ID, UserMessage: userMsg, AIResponse: aiMsg}, nil
}

// history pairs the last few messages into user/assistant exchanges.
func (svc *service) history(ctx context.Context, conversationID int) ([]Exchange, error) {
	msgs, err := svc.repo.RecentMessages(ctx, conversationID, historyWindow)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent messages")
	}
	var exchanges []Exchange
	var pending *Exchange
	for _, msg := range msgs {
		if msg.IsUser {
			if pending != nil {
				exchanges = append(exchanges, *pending)
			}
			pending = &Exchange{UserMsg: msg.Content}
			continue
		}
		if pending == nil {
			pending = &Exchange{}
		}
		pending.AIMsg = msg.Content
		exchanges = append(exchanges, *pending)
		pending = nil
	}
	if pending != nil {
		exchanges = append(exchanges, *pending)
	}
	return exchanges, nil
}
