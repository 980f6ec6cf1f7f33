package repository

import (
	"context"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

type WorkoutRepository struct {
	db DBTX
}

func NewWorkoutRepository(db DBTX) *WorkoutRepository {
	return &WorkoutRepository{db: db}
}

func (r *WorkoutRepository) Create(ctx context.Context, workout model.WorkoutLog) (*model.WorkoutLog, error) {
	query := `
		INSERT INTO workout_logs (user_id, title, notes, duration_mins, performed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, title, notes, duration_mins, performed_at, created_at
	`
	var out model.WorkoutLog
	err := r.db.QueryRow(
		ctx,
		query,
		workout.UserID,
		workout.Title,
		workout.Notes,
		workout.DurationMins,
		workout.PerformedAt,
	).Scan(&out.ID, &out.UserID, &out.Title, &out.Notes, &out.DurationMins, &out.PerformedAt, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *WorkoutRepository) ListByUser(ctx context.Context, userID int64) ([]model.WorkoutLog, error) {
	query := `
		SELECT id, user_id, title, notes, duration_mins, performed_at, created_at
		FROM workout_logs
		WHERE user_id = $1
		ORDER BY performed_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts := make([]model.WorkoutLog, 0)
	for rows.Next() {
		var w model.WorkoutLog
		if err := rows.Scan(&w.ID, &w.UserID, &w.Title, &w.Notes, &w.DurationMins, &w.PerformedAt, &w.CreatedAt); err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}
