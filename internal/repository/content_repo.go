package repository

import (
	"context"

	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// ContentRepository serves the read-only catalog screens: meal plans and
// gym information.
type ContentRepository struct {
	db DBTX
}

func NewContentRepository(db DBTX) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) ListMealPlans(ctx context.Context) ([]model.MealPlan, error) {
	query := `
		SELECT id, title, description, calories, COALESCE(coach_id, 0)
		FROM meal_plans
		ORDER BY title
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]model.MealPlan, 0)
	for rows.Next() {
		var plan model.MealPlan
		if err := rows.Scan(&plan.ID, &plan.Title, &plan.Description, &plan.Calories, &plan.CoachID); err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (r *ContentRepository) ListGyms(ctx context.Context) ([]model.Gym, error) {
	query := `
		SELECT id, name, address, phone, hours
		FROM gyms
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gyms := make([]model.Gym, 0)
	for rows.Next() {
		var gym model.Gym
		if err := rows.Scan(&gym.ID, &gym.Name, &gym.Address, &gym.Phone, &gym.Hours); err != nil {
			return nil, err
		}
		gyms = append(gyms, gym)
	}
	return gyms, rows.Err()
}
