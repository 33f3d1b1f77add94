package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"health-assistant-backend/models"
	"health-assistant-backend/services"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id         TEXT PRIMARY KEY,
	profile    JSONB NOT NULL DEFAULT '{}',
	metadata   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	role        TEXT NOT NULL,
	text        TEXT NOT NULL,
	annotations JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS chat_messages_session_idx ON chat_messages (session_id, id);
`

// PostgresSessionStore persists sessions to chat_sessions and chat_messages.
type PostgresSessionStore struct {
	pool *pgxpool.Pool
}

var _ services.SessionStore = (*PostgresSessionStore)(nil)

// NewPostgresSessionStore connects, pings and applies the schema.
func NewPostgresSessionStore(ctx context.Context, databaseURL string) (*PostgresSessionStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "ping database")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "apply schema")
	}
	return &PostgresSessionStore{pool: pool}, nil
}

func (s *PostgresSessionStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresSessionStore) Close() {
	s.pool.Close()
}

func (s *PostgresSessionStore) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	var (
		rec               models.SessionRecord
		profile, metadata []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, profile, metadata, created_at, updated_at
		FROM chat_sessions WHERE id = $1`, id,
	).Scan(&rec.ID, &profile, &metadata, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "query session", goerr.V("sessionID", id))
	}
	if err := json.Unmarshal(profile, &rec.Profile); err != nil {
		return nil, goerr.Wrap(err, "decode profile", goerr.V("sessionID", id))
	}
	if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
		return nil, goerr.Wrap(err, "decode metadata", goerr.V("sessionID", id))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT role, text, annotations, created_at
		FROM chat_messages WHERE session_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, goerr.Wrap(err, "query messages", goerr.V("sessionID", id))
	}
	defer rows.Close()

	for rows.Next() {
		var role string
		var annotations []byte
		msg := models.StoredMessage{SessionID: id}
		if err := rows.Scan(&role, &msg.Text, &annotations, &msg.Timestamp); err != nil {
			return nil, goerr.Wrap(err, "scan message", goerr.V("sessionID", id))
		}
		msg.Role = models.Role(role)
		if len(annotations) > 0 {
			msg.Annotations = &models.Annotations{}
			if err := json.Unmarshal(annotations, msg.Annotations); err != nil {
				return nil, goerr.Wrap(err, "decode annotations", goerr.V("sessionID", id))
			}
		}
		rec.Messages = append(rec.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "iterate messages", goerr.V("sessionID", id))
	}
	return &rec, nil
}

func (s *PostgresSessionStore) Create(ctx context.Context, id string, profile models.UserProfile, metadata models.SessionMetadata) error {
	p, m, err := encodeSession(profile, metadata)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chat_sessions (id, profile, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET profile = EXCLUDED.profile, metadata = EXCLUDED.metadata, updated_at = now()`,
		id, p, m)
	if err != nil {
		return goerr.Wrap(err, "insert session", goerr.V("sessionID", id))
	}
	return nil
}

func (s *PostgresSessionStore) Update(ctx context.Context, id string, profile models.UserProfile, metadata models.SessionMetadata) error {
	p, m, err := encodeSession(profile, metadata)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE chat_sessions SET profile = $2, metadata = $3, updated_at = $4 WHERE id = $1`,
		id, p, m, time.Now().UTC())
	if err != nil {
		return goerr.Wrap(err, "update session", goerr.V("sessionID", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(ErrSessionNotFound, "update session", goerr.V("sessionID", id))
	}
	return nil
}

func (s *PostgresSessionStore) AppendMessage(ctx context.Context, id string, role models.Role, text string, annotations *models.Annotations) error {
	var raw []byte
	if annotations != nil {
		var err error
		if raw, err = json.Marshal(annotations); err != nil {
			return goerr.Wrap(err, "encode annotations", goerr.V("sessionID", id))
		}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_messages (session_id, role, text, annotations)
		VALUES ($1, $2, $3, $4)`,
		id, string(role), text, raw)
	if err != nil {
		return goerr.Wrap(err, "insert message", goerr.V("sessionID", id))
	}
	return nil
}

func encodeSession(profile models.UserProfile, metadata models.SessionMetadata) ([]byte, []byte, error) {
	p, err := json.Marshal(profile)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "encode profile")
	}
	m, err := json.Marshal(metadata)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "encode metadata")
	}
	return p, m, nil
}
