package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/askbook/askbook/internal/model"
)

type ChatRepo struct {
	db *sqlx.DB
}

func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Save(ctx context.Context, record *model.ChatRecord) error {
	const query = `
		INSERT INTO chat_history (id, user_id, conversation_id, question, answer, sources, provider, language, response_time_ms, ctime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.ConversationID,
		record.Question,
		record.Answer,
		record.SourcesJSON,
		record.Provider,
		record.Language,
		record.ResponseTimeMs,
		record.Ctime,
	)
	return err
}

// RecentByConversation returns the newest turns of one conversation in
// chronological order, for feeding back into the prompt.
func (r *ChatRepo) RecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.ChatRecord, error) {
	const query = `
		SELECT id, user_id, conversation_id, question, answer, sources, provider, language, response_time_ms, ctime
		FROM chat_history
		WHERE conversation_id = $1
		ORDER BY ctime DESC
		LIMIT $2
	`
	var records []model.ChatRecord
	if err := r.db.SelectContext(ctx, &records, query, conversationID, limit); err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (r *ChatRepo) ListByUser(ctx context.Context, userID, conversationID string, limit, offset int) ([]model.ChatRecord, error) {
	var records []model.ChatRecord
	if conversationID != "" {
		const query = `
			SELECT id, user_id, conversation_id, question, answer, sources, provider, language, response_time_ms, ctime
			FROM chat_history
			WHERE user_id = $1 AND conversation_id = $2
			ORDER BY ctime DESC
			LIMIT $3 OFFSET $4
		`
		if err := r.db.SelectContext(ctx, &records, query, userID, conversationID, limit, offset); err != nil {
			return nil, err
		}
		return records, nil
	}
	const query = `
		SELECT id, user_id, conversation_id, question, answer, sources, provider, language, response_time_ms, ctime
		FROM chat_history
		WHERE user_id = $1
		ORDER BY ctime DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &records, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return records, nil
}
