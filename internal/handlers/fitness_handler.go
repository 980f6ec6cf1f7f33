package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/armin-rsh/FitLinkApp/internal/repository"
	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// FitnessHandler serves the conventional fetch-and-render screens: the
// exercise catalog, the user's workout log, meal plans and gym info.
type FitnessHandler struct {
	exerciseRepo *repository.ExerciseRepository
	workoutRepo  *repository.WorkoutRepository
	contentRepo  *repository.ContentRepository
}

func NewFitnessHandler(
	exerciseRepo *repository.ExerciseRepository,
	workoutRepo *repository.WorkoutRepository,
	contentRepo *repository.ContentRepository,
) *FitnessHandler {
	return &FitnessHandler{
		exerciseRepo: exerciseRepo,
		workoutRepo:  workoutRepo,
		contentRepo:  contentRepo,
	}
}

func (h *FitnessHandler) ListExercises(c *fiber.Ctx) error {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	exercises, total, err := h.exerciseRepo.List(c.Context(), limit, (page-1)*limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load exercises"})
	}

	return c.JSON(fiber.Map{
		"exercises":  exercises,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *FitnessHandler) GetExercise(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise id"})
	}

	exercise, err := h.exerciseRepo.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Exercise not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load exercise"})
	}

	return c.JSON(exercise)
}

func (h *FitnessHandler) ListWorkouts(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	workouts, err := h.workoutRepo.ListByUser(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load workouts"})
	}

	return c.JSON(fiber.Map{"workouts": workouts})
}

func (h *FitnessHandler) LogWorkout(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var workout model.WorkoutLog
	if err := c.BodyParser(&workout); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	workout.UserID = userID
	workout.Title = strings.TrimSpace(workout.Title)
	if workout.Title == "" || workout.DurationMins <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Title and duration are required"})
	}
	if workout.PerformedAt.IsZero() {
		workout.PerformedAt = time.Now().UTC()
	}

	created, err := h.workoutRepo.Create(c.Context(), workout)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to log workout"})
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *FitnessHandler) ListMealPlans(c *fiber.Ctx) error {
	plans, err := h.contentRepo.ListMealPlans(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load meal plans"})
	}

	return c.JSON(fiber.Map{"meal_plans": plans})
}

func (h *FitnessHandler) ListGyms(c *fiber.Ctx) error {
	gyms, err := h.contentRepo.ListGyms(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load gyms"})
	}

	return c.JSON(fiber.Map{"gyms": gyms})
}
