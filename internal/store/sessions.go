package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/kubev2v/vsphere-inventory-runner/internal/models"
)

// ErrSessionNotFound is returned when a session id has no journal record.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists session and step outcomes in the journal database.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create records a new session.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	_, err := s.db.ExecContext(ctx, queryInsertSession,
		session.ID.String(),
		string(session.Status),
		session.ExitCode,
		session.StartedAt,
	)
	return err
}

// Finish stamps a session's terminal status and exit code.
func (s *SessionStore) Finish(ctx context.Context, id uuid.UUID, status models.SessionStatus, exitCode int) error {
	_, err := s.db.ExecContext(ctx, queryFinishSession, string(status), exitCode, id.String())
	return err
}

// RecordStep records one step outcome.
func (s *SessionStore) RecordStep(ctx context.Context, r *models.StepResult) error {
	_, err := s.db.ExecContext(ctx, queryInsertStepResult,
		r.SessionID.String(),
		r.Position,
		r.Name,
		string(r.Status),
		r.ExitCode,
		r.Duration.Milliseconds(),
		r.StartedAt,
	)
	return err
}

// Get retrieves a single session by id.
func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, queryGetSession, id.String())

	session, err := scanSession(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// StepResults returns the recorded step outcomes of a session, in sequence
// order.
func (s *SessionStore) StepResults(ctx context.Context, id uuid.UUID) ([]models.StepResult, error) {
	rows, err := s.db.QueryContext(ctx, queryListStepResults, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.StepResult
	for rows.Next() {
		var (
			r          models.StepResult
			sessionID  string
			status     string
			durationMS int64
		)
		if err := rows.Scan(&sessionID, &r.Position, &r.Name, &status, &r.ExitCode, &durationMS, &r.StartedAt); err != nil {
			return nil, err
		}
		r.SessionID, err = uuid.Parse(sessionID)
		if err != nil {
			return nil, err
		}
		r.Status, err = models.ParseStepStatus(status)
		if err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByStatus(statuses ...models.SessionStatus) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(statuses) == 0 {
			return b
		}
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		return b.Where(sq.Eq{"status": values})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}

// List returns sessions, most recent first, filtered by the given options.
func (s *SessionStore) List(ctx context.Context, opts ...ListOption) ([]models.Session, error) {
	builder := sq.Select("id", "status", "exit_code", "started_at", "finished_at").
		From("sessions").
		OrderBy("started_at DESC")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

func scanSession(scan func(dest ...any) error) (*models.Session, error) {
	var (
		id       string
		status   string
		session  models.Session
		finished sql.NullTime
	)
	if err := scan(&id, &status, &session.ExitCode, &session.StartedAt, &finished); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	parsedStatus, err := models.ParseSessionStatus(status)
	if err != nil {
		return nil, err
	}

	session.ID = parsedID
	session.Status = parsedStatus
	if finished.Valid {
		session.FinishedAt = finished.Time
	}
	return &session, nil
}
