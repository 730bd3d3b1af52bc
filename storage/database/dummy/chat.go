package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/brainypal/backend/core/chat"
)

var (
	convPKCount int
	msgPKCount  int
)

type chatRepository struct {
	db *chatTables
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *DB) chat.Repository {
	return &chatRepository{db: db.chat}
}

func (repo *chatRepository) CreateConversation(_ context.Context, conv chat.Conversation) (chat.Conversation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	convPKCount++
	conv.ID = convPKCount
	repo.db.conversations[conv.ID] = &conv
	return conv, nil
}

func (repo *chatRepository) GetConversation(_ context.Context, id, userID int) (chat.Conversation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if conv, ok := repo.db.conversations[id]; ok && conv.UserID == userID {
		return *conv, nil
	}
	return chat.Conversation{}, chat.ErrNotFound
}

func (repo *chatRepository) QueryConversationPreviews(_ context.Context, userID int) ([]chat.ConversationPreview, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	previews := make([]chat.ConversationPreview, 0)
	for _, conv := range repo.db.conversations {
		if conv.UserID != userID {
			continue
		}
		msgs := repo.conversationMessages(conv.ID)
		preview := chat.ConversationPreview{Conversation: *conv, MessageCount: len(msgs)}
		if len(msgs) > 0 {
			preview.LastMessage = msgs[len(msgs)-1].Content
		}
		previews = append(previews, preview)
	}
	sort.Slice(previews, func(i, j int) bool { return previews[i].UpdatedAt.After(previews[j].UpdatedAt) })
	return previews, nil
}

func (repo *chatRepository) RecentPreviews(_ context.Context, userID int, since time.Time, limit int) ([]chat.ConversationPreview, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	previews := make([]chat.ConversationPreview, 0)
	for _, conv := range repo.db.conversations {
		if conv.UserID != userID || conv.CreatedAt.Before(since) {
			continue
		}
		msgs := repo.conversationMessages(conv.ID)
		preview := chat.ConversationPreview{Conversation: *conv, MessageCount: len(msgs)}
		if len(msgs) > 0 {
			preview.LastMessage = msgs[len(msgs)-1].Content
		}
		previews = append(previews, preview)
	}
	sort.Slice(previews, func(i, j int) bool { return previews[i].CreatedAt.After(previews[j].CreatedAt) })
	if len(previews) > limit {
		previews = previews[:limit]
	}
	return previews, nil
}

func (repo *chatRepository) TouchConversation(_ context.Context, id int, t time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	conv, ok := repo.db.conversations[id]
	if !ok {
		return chat.ErrNotFound
	}
	conv.UpdatedAt = t
	return nil
}

func (repo *chatRepository) SearchConversations(_ context.Context, userID int, q string, limit int) ([]chat.Conversation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q = strings.ToLower(q)
	convs := make([]chat.Conversation, 0)
	for _, conv := range repo.db.conversations {
		if conv.UserID != userID {
			continue
		}
		match := strings.Contains(strings.ToLower(conv.Title), q)
		if !match {
			for _, msg := range repo.conversationMessages(conv.ID) {
				if strings.Contains(strings.ToLower(msg.Content), q) {
					match = true
					break
				}
			}
		}
		if match {
			convs = append(convs, *conv)
		}
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].UpdatedAt.After(convs[j].UpdatedAt) })
	if len(convs) > limit {
		convs = convs[:limit]
	}
	return convs, nil
}

func (repo *chatRepository) CreateMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	msgPKCount++
	msg.ID = msgPKCount
	repo.db.messages[msg.ID] = &msg
	return msg, nil
}

func (repo *chatRepository) QueryMessages(_ context.Context, conversationID int) ([]chat.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.conversationMessages(conversationID), nil
}

func (repo *chatRepository) RecentMessages(_ context.Context, conversationID, limit int) ([]chat.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := repo.conversationMessages(conversationID)
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// conversationMessages returns a conversation's messages in chronological
// order. Callers must hold the lock.
func (repo *chatRepository) conversationMessages(conversationID int) []chat.Message {
	msgs := make([]chat.Message, 0)
	for _, msg := range repo.db.messages {
		if msg.ConversationID == conversationID {
			msgs = append(msgs, *msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs
}
