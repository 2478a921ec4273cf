package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
)

type AttemptRepository struct {
	db *pgxpool.Pool
}

func NewAttemptRepository(db *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) SaveAttempt(ctx context.Context, attempt entity.Attempt) error {
	q := `
	INSERT INTO verification_attempts (id, session_id, role, step, success, input_hash, ip_address, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(
		ctx,
		q,
		attempt.ID,
		attempt.SessionID,
		attempt.Role,
		attempt.Step,
		attempt.Success,
		attempt.InputHash,
		attempt.IPAddress,
		attempt.CreatedAt,
	)

	return err
}

func (r *AttemptRepository) CountFailures(ctx context.Context, sessionID uuid.UUID, step entity.AttemptStep, since time.Time) (int, error) {
	var count int

	q := `
		SELECT COUNT(*)
		FROM verification_attempts
		WHERE session_id = $1 AND step = $2 AND success = FALSE AND created_at > $3
	`

	err := r.db.QueryRow(ctx, q, sessionID, step, since).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *AttemptRepository) AttemptsBySession(ctx context.Context, sessionID uuid.UUID) ([]entity.Attempt, error) {
	q := `
		SELECT id, session_id, role, step, success, input_hash, ip_address, created_at
		FROM verification_attempts
		WHERE session_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []entity.Attempt

	for rows.Next() {
		var a entity.Attempt

		err = rows.Scan(&a.ID, &a.SessionID, &a.Role, &a.Step, &a.Success, &a.InputHash, &a.IPAddress, &a.CreatedAt)
		if err != nil {
			return nil, err
		}

		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}
