// internal/memory/log.go
// Package memory persists conversation turns so intent extraction can see
// recent context for a session.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/models"
)

var ErrMemoryWriteFailed = errors.New("MEMORY_WRITE_FAILED")

// Log is an append-only conversation record backed by Postgres.
type Log struct {
	db     *sql.DB
	logger logger.Logger
}

func NewLog(db *sql.DB, log logger.Logger) *Log {
	return &Log{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "memory"}),
	}
}

func (l *Log) Append(ctx context.Context, sessionID string, role models.Role, content string) error {
	query := `
		INSERT INTO conversation_memory (session_id, role, content, created_at)
		VALUES ($1, $2, $3, NOW())`

	if _, err := l.db.ExecContext(ctx, query, sessionID, string(role), content); err != nil {
		return fmt.Errorf("%w: %v", ErrMemoryWriteFailed, err)
	}
	return nil
}

// Recent returns the last n turns for a session in chronological order.
// Read failures degrade to an empty history so a query can still proceed.
func (l *Log) Recent(ctx context.Context, sessionID string, n int) []models.ConversationTurn {
	query := `
		SELECT session_id, role, content, created_at
		FROM conversation_memory
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := l.db.QueryContext(ctx, query, sessionID, n)
	if err != nil {
		l.logger.WithError(err).Warn("Conversation history read failed, continuing without history", nil)
		return []models.ConversationTurn{}
	}
	defer rows.Close()

	turns := []models.ConversationTurn{}
	for rows.Next() {
		var turn models.ConversationTurn
		var role string
		if err := rows.Scan(&turn.SessionID, &role, &turn.Content, &turn.CreatedAt); err != nil {
			l.logger.WithError(err).Warn("Skipping unreadable conversation row", nil)
			continue
		}
		turn.Role = models.Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		l.logger.WithError(err).Warn("Conversation history read failed, continuing without history", nil)
		return []models.ConversationTurn{}
	}

	// Newest-first from the query, oldest-first for the prompt.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns
}
