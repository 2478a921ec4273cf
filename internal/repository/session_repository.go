package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) SaveSession(ctx context.Context, s entity.Session) error {
	q := `
	INSERT INTO sessions (id, active_role, pending_role, active_screen_id, verification_in_progress, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		active_role = EXCLUDED.active_role,
		pending_role = EXCLUDED.pending_role,
		active_screen_id = EXCLUDED.active_screen_id,
		verification_in_progress = EXCLUDED.verification_in_progress,
		updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(
		ctx,
		q,
		s.ID,
		s.ActiveRole,
		s.PendingRole,
		s.ActiveScreenID,
		s.VerificationInProgress,
		s.CreatedAt,
		s.UpdatedAt,
	)

	return err
}

func (r *SessionRepository) SessionByID(ctx context.Context, id uuid.UUID) (entity.Session, error) {
	var s entity.Session

	q := `
		SELECT id, active_role, pending_role, active_screen_id, verification_in_progress, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`

	err := r.db.QueryRow(ctx, q, id).Scan(
		&s.ID,
		&s.ActiveRole,
		&s.PendingRole,
		&s.ActiveScreenID,
		&s.VerificationInProgress,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s, entity.ErrNotFound
		}

		return s, err
	}

	return s, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpiredSessions removes sessions idle since before the given time.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE updated_at < $1`, before)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
