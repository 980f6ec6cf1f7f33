package repository

import (
	"context"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

type ExerciseRepository struct {
	db DBTX
}

func NewExerciseRepository(db DBTX) *ExerciseRepository {
	return &ExerciseRepository{db: db}
}

func (r *ExerciseRepository) List(ctx context.Context, limit, offset int) ([]model.Exercise, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM exercises`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, name, muscle_group, description, video_url
		FROM exercises
		ORDER BY name
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exercises := make([]model.Exercise, 0)
	for rows.Next() {
		var ex model.Exercise
		if err := rows.Scan(&ex.ID, &ex.Name, &ex.MuscleGroup, &ex.Description, &ex.VideoURL); err != nil {
			return nil, 0, err
		}
		exercises = append(exercises, ex)
	}
	return exercises, total, rows.Err()
}

func (r *ExerciseRepository) GetByID(ctx context.Context, id int64) (*model.Exercise, error) {
	var ex model.Exercise
	err := r.db.QueryRow(ctx, `
		SELECT id, name, muscle_group, description, video_url
		FROM exercises
		WHERE id = $1
	`, id).Scan(&ex.ID, &ex.Name, &ex.MuscleGroup, &ex.Description, &ex.VideoURL)
	if err != nil {
		return nil, err
	}
	return &ex, nil
}
