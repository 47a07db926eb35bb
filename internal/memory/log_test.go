package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-chat/internal/common/logger"
	"catalog-chat/internal/models"
)

func TestAppendInsertsTurn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO conversation_memory").
		WithArgs("sess-1", "user", "Tem abacate?").
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := NewLog(db, logger.NewTestLogger(t))
	err = log.Append(context.Background(), "sess-1", models.RoleUser, "Tem abacate?")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendWrapsDBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO conversation_memory").
		WillReturnError(errors.New("connection reset"))

	log := NewLog(db, logger.NewTestLogger(t))
	err = log.Append(context.Background(), "sess-1", models.RoleUser, "oi")

	assert.ErrorIs(t, err, ErrMemoryWriteFailed)
}

func TestRecentReversesToChronological(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	// Query returns newest first.
	rows := sqlmock.NewRows([]string{"session_id", "role", "content", "created_at"}).
		AddRow("sess-1", "assistant", "C", now).
		AddRow("sess-1", "user", "B", now.Add(-time.Minute))

	mock.ExpectQuery("SELECT session_id, role, content, created_at").
		WithArgs("sess-1", 2).
		WillReturnRows(rows)

	log := NewLog(db, logger.NewTestLogger(t))
	turns := log.Recent(context.Background(), "sess-1", 2)

	require.Len(t, turns, 2)
	assert.Equal(t, "B", turns[0].Content)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "C", turns[1].Content)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
}

func TestRecentDegradesToEmptyOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT session_id, role, content, created_at").
		WillReturnError(errors.New("relation does not exist"))

	log := NewLog(db, logger.NewTestLogger(t))
	turns := log.Recent(context.Background(), "sess-1", 5)

	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}
