package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/brainypal/backend/core/chat"
)

type chatRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*chatRepository)(nil)

func NewChatRepository(db *sqlx.DB) *chatRepository {
	return &chatRepository{db: db}
}

type conversationRow struct {
	ID        int       `db:"id"`
	UserID    int       `db:"user_id"`
	Title     string    `db:"title"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r conversationRow) toConversation() chat.Conversation {
	return chat.Conversation{ID: r.ID, UserID: r.UserID, Title: r.Title, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type messageRow struct {
	ID             int       `db:"id"`
	ConversationID int       `db:"conversation_id"`
	Content        string    `db:"content"`
	IsUser         bool      `db:"is_user"`
	AIModel        string    `db:"ai_model"`
	Confidence     float64   `db:"confidence"`
	ProcessingTime float64   `db:"processing_time"`
	Timestamp      time.Time `db:"created_at"`
}

func (r messageRow) toMessage() chat.Message {
	return chat.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		Content:        r.Content,
		IsUser:         r.IsUser,
		AIModel:        r.AIModel,
		Confidence:     r.Confidence,
		ProcessingTime: r.ProcessingTime,
		Timestamp:      r.Timestamp,
	}
}

func (repo *chatRepository) CreateConversation(ctx context.Context, conv chat.Conversation) (chat.Conversation, error) {
	query := `
	INSERT INTO conversation (user_id, title, created_at, updated_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id`
	err := repo.db.QueryRowxContext(ctx, query, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt).Scan(&conv.ID)
	return conv, errors.Wrap(err, "inserting conversation")
}

func (repo *chatRepository) GetConversation(ctx context.Context, id, userID int) (chat.Conversation, error) {
	var row conversationRow
	query := `SELECT id, user_id, title, created_at, updated_at FROM conversation WHERE id = $1 AND user_id = $2`
	err := repo.db.GetContext(ctx, &row, query, id, userID)
	if err == sql.ErrNoRows {
		return chat.Conversation{}, chat.ErrNotFound
	}
	return row.toConversation(), errors.Wrap(err, "getting conversation")
}

func (repo *chatRepository) QueryConversationPreviews(ctx context.Context, userID int) ([]chat.ConversationPreview, error) {
	query := `
	SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at,
	       COALESCE((SELECT m.content FROM message m WHERE m.conversation_id = c.id ORDER BY m.created_at DESC LIMIT 1), '') AS last_message,
	       (SELECT COUNT(*) FROM message m WHERE m.conversation_id = c.id) AS message_count
	FROM conversation c
	WHERE c.user_id = $1
	ORDER BY c.updated_at DESC`

	rows, err := repo.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying conversation previews")
	}
	defer rows.Close()

	previews := make([]chat.ConversationPreview, 0)
	for rows.Next() {
		var row struct {
			conversationRow
			LastMessage  string `db:"last_message"`
			MessageCount int    `db:"message_count"`
		}
		if err = rows.StructScan(&row); err != nil {
			return nil, errors.Wrap(err, "scanning conversation preview")
		}
		previews = append(previews, chat.ConversationPreview{
			Conversation: row.toConversation(),
			LastMessage:  row.LastMessage,
			MessageCount: row.MessageCount,
		})
	}
	return previews, errors.Wrap(rows.Err(), "iterating conversation previews")
}

func (repo *chatRepository) RecentPreviews(ctx context.Context, userID int, since time.Time, limit int) ([]chat.ConversationPreview, error) {
	query := `
	SELECT c.id, c.user_id, c.title, c.created_at, c.updated_at,
	       COALESCE((SELECT m.content FROM message m WHERE m.conversation_id = c.id ORDER BY m.created_at DESC LIMIT 1), '') AS last_message,
	       (SELECT COUNT(*) FROM message m WHERE m.conversation_id = c.id) AS message_count
	FROM conversation c
	WHERE c.user_id = $1 AND c.created_at >= $2
	ORDER BY c.created_at DESC
	LIMIT $3`

	rows, err := repo.db.QueryxContext(ctx, query, userID, since, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent conversations")
	}
	defer rows.Close()

	previews := make([]chat.ConversationPreview, 0)
	for rows.Next() {
		var row struct {
			conversationRow
			LastMessage  string `db:"last_message"`
			MessageCount int    `db:"message_count"`
		}
		if err = rows.StructScan(&row); err != nil {
			return nil, errors.Wrap(err, "scanning recent conversation")
		}
		previews = append(previews, chat.ConversationPreview{
			Conversation: row.toConversation(),
			LastMessage:  row.LastMessage,
			MessageCount: row.MessageCount,
		})
	}
	return previews, errors.Wrap(rows.Err(), "iterating recent conversations")
}

func (repo *chatRepository) TouchConversation(ctx context.Context, id int, t time.Time) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE conversation SET updated_at = $1 WHERE id = $2`, t, id)
	return errors.Wrap(err, "touching conversation")
}

func (repo *chatRepository) SearchConversations(ctx context.Context, userID int, q string, limit int) ([]chat.Conversation, error) {
	query := `
	SELECT DISTINCT c.id, c.user_id, c.title, c.created_at, c.updated_at
	FROM conversation c
	LEFT JOIN message m ON m.conversation_id = c.id
	WHERE c.user_id = $1 AND (c.title ILIKE $2 OR m.content ILIKE $2)
	ORDER BY c.updated_at DESC
	LIMIT $3`

	var rows []conversationRow
	if err := repo.db.SelectContext(ctx, &rows, query, userID, "%"+q+"%", limit); err != nil {
		return nil, errors.Wrap(err, "searching conversations")
	}
	convs := make([]chat.Conversation, 0, len(rows))
	for _, row := range rows {
		convs = append(convs, row.toConversation())
	}
	return convs, nil
}

func (repo *chatRepository) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	query := `
	INSERT INTO message (conversation_id, content, is_user, ai_model, confidence, processing_time, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id`
	err := repo.db.QueryRowxContext(ctx, query,
		msg.ConversationID, msg.Content, msg.IsUser, msg.AIModel, msg.Confidence, msg.ProcessingTime, msg.Timestamp,
	).Scan(&msg.ID)
	return msg, errors.Wrap(err, "inserting message")
}

func (repo *chatRepository) QueryMessages(ctx context.Context, conversationID int) ([]chat.Message, error) {
	query := `
	SELECT id, conversation_id, content, is_user, ai_model, confidence, processing_time, created_at
	FROM message
	WHERE conversation_id = $1
	ORDER BY created_at`

	var rows []messageRow
	if err := repo.db.SelectContext(ctx, &rows, query, conversationID); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	return toMessages(rows), nil
}

func (repo *chatRepository) RecentMessages(ctx context.Context, conversationID, limit int) ([]chat.Message, error) {
	query := `
	SELECT id, conversation_id, content, is_user, ai_model, confidence, processing_time, created_at
	FROM (
		SELECT id, conversation_id, content, is_user, ai_model, confidence, processing_time, created_at
		FROM message
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	) recent
	ORDER BY created_at`

	var rows []messageRow
	if err := repo.db.SelectContext(ctx, &rows, query, conversationID, limit); err != nil {
		return nil, errors.Wrap(err, "querying recent messages")
	}
	return toMessages(rows), nil
}

func toMessages(rows []messageRow) []chat.Message {
	msgs := make([]chat.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.toMessage())
	}
	return msgs
}
