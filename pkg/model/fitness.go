package model

import "time"

type Exercise struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	MuscleGroup string `json:"muscle_group"`
	Description string `json:"description,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
}

type WorkoutLog struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Notes        string    `json:"notes,omitempty"`
	DurationMins int       `json:"duration_mins"`
	PerformedAt  time.Time `json:"performed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

type MealPlan struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Calories    int    `json:"calories"`
	CoachID     int64  `json:"coach_id,omitempty"`
}

type Gym struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone,omitempty"`
	Hours   string `json:"hours,omitempty"`
}
