// internal/store/messages.go

// Package store is the append-only persisted log of chat messages. A
// message row mutates only by delivery-status advancement and
// guard-authorized deletion.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/v1kassh/escrawl-connect/internal/models"
	"github.com/v1kassh/escrawl-connect/pkg/logger"
)

var ErrNotFound = errors.New("message not found")

const messageColumns = `id, room_id, author, body, file_url, file_name, type, status, read_by, created_at`

type Store struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func New(db *pgxpool.Pool, log *logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		m      models.Message
		typ    string
		status string
	)
	err := row.Scan(&m.ID, &m.RoomID, &m.User, &m.Text, &m.FileURL,
		&m.FileName, &typ, &status, &m.ReadBy, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.Type = models.MessageType(typ)
	m.Status = models.MessageStatus(status)
	return &m, nil
}

// Append persists one message as a single atomic write and returns the
// stored row with its assigned id and timestamp.
func (s *Store) Append(ctx context.Context, m *models.Message) (*models.Message, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO messages (room_id, author, body, file_url, file_name, type, status, read_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '{}')
		RETURNING `+messageColumns,
		m.RoomID, m.User, m.Text, m.FileURL, m.FileName, string(m.Type), string(m.Status))

	stored, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return stored, nil
}

// ListRoom returns up to limit messages for a room in ascending creation
// order.
func (s *Store) ListRoom(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC
		LIMIT $2`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkRoomRead advances every message in the room authored by someone
// else to read and records the reader. Idempotent: a second call is a
// no-op and read_by never collects duplicates.
func (s *Store) MarkRoomRead(ctx context.Context, roomID, reader string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE messages
		SET status = 'read',
		    read_by = CASE WHEN $2 = ANY(read_by) THEN read_by ELSE array_append(read_by, $2) END
		WHERE room_id = $1 AND author <> $2 AND status <> 'read'`,
		roomID, reader)
	if err != nil {
		return fmt.Errorf("mark room read: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	return scanMessage(row)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
