package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const (
	// DefaultRecent is used when no limit is requested.
	DefaultRecent = 20

	// MaxRecent caps a single history query.
	MaxRecent = 200
)

// Trigger represents a single trigger attempt in the database.
type Trigger struct {
	ID         int64     `json:"id"`
	JobName    string    `json:"job_name"`
	Parameters []string  `json:"parameters"`
	Queued     bool      `json:"queued"`
	QueueID    int64     `json:"queue_id,omitempty"`
	Location   string    `json:"location,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TriggerRepo provides methods for trigger history access.
type TriggerRepo struct {
	db     *sql.DB
	logger *slog.Logger
	retain int
}

// NewTriggerRepo creates a new TriggerRepo instance. A positive retain keeps
// only that many rows.
func NewTriggerRepo(db *sql.DB, logger *slog.Logger, retain int) *TriggerRepo {
	return &TriggerRepo{
		db:     db,
		logger: logger.With("component", "trigger_repo"),
		retain: retain,
	}
}

// Record stores a trigger attempt. Only parameter names are persisted.
func (r *TriggerRepo) Record(ctx context.Context, trigger Trigger) (int64, error) {
	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = time.Now()
	}

	names := trigger.Parameters

	if names == nil {
		names = []string{}
	}

	parameters, err := json.Marshal(names)

	if err != nil {
		return 0, fmt.Errorf("failed to encode parameters for %s: %w", trigger.JobName, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)

	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	insertQuery := `
		INSERT INTO triggers(job_name, parameters, queued, queue_id, location, error_kind, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(
		ctx,
		insertQuery,
		trigger.JobName,
		string(parameters),
		trigger.Queued,
		trigger.QueueID,
		trigger.Location,
		trigger.ErrorKind,
		trigger.Message,
		trigger.CreatedAt.UnixMilli(),
	)

	if err != nil {
		return 0, fmt.Errorf("failed to insert trigger for %s: %w", trigger.JobName, err)
	}

	id, err := result.LastInsertId()

	if err != nil {
		return 0, fmt.Errorf("failed to get trigger id: %w", err)
	}

	if r.retain > 0 {
		pruneQuery := `
			DELETE FROM triggers
			WHERE id NOT IN (SELECT id FROM triggers ORDER BY id DESC LIMIT ?)`

		pruned, err := tx.ExecContext(ctx, pruneQuery, r.retain)

		if err != nil {
			return 0, fmt.Errorf("failed to prune triggers: %w", err)
		}

		if count, err := pruned.RowsAffected(); err == nil && count > 0 {
			r.logger.Debug("pruned trigger history",
				"removed", count,
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

// Recent returns the latest trigger attempts, newest first. An empty job
// name returns attempts for all jobs.
func (r *TriggerRepo) Recent(ctx context.Context, jobName string, limit int) ([]Trigger, error) {
	if limit <= 0 {
		limit = DefaultRecent
	}

	if limit > MaxRecent {
		limit = MaxRecent
	}

	query := `
		SELECT id, job_name, parameters, queued, queue_id, location, error_kind, message, created_at
		FROM triggers`

	args := []any{}

	if jobName != "" {
		query += ` WHERE job_name = ?`
		args = append(args, jobName)
	}

	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)

	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}

	defer rows.Close()

	triggers := make([]Trigger, 0)

	for rows.Next() {
		var (
			trigger    Trigger
			parameters string
			createdAt  int64
		)

		if err := rows.Scan(
			&trigger.ID,
			&trigger.JobName,
			&parameters,
			&trigger.Queued,
			&trigger.QueueID,
			&trigger.Location,
			&trigger.ErrorKind,
			&trigger.Message,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}

		trigger.Parameters = []string{}

		if parameters != "" {
			if err := json.Unmarshal([]byte(parameters), &trigger.Parameters); err != nil {
				return nil, fmt.Errorf("failed to decode parameters of trigger %d: %w", trigger.ID, err)
			}
		}

		trigger.CreatedAt = time.UnixMilli(createdAt)
		triggers = append(triggers, trigger)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating triggers: %w", err)
	}

	return triggers, nil
}
