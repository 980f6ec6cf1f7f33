package routes

import (
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/armin-rsh/FitLinkApp/internal/config"
	"github.com/armin-rsh/FitLinkApp/internal/handlers"
	"github.com/armin-rsh/FitLinkApp/internal/middleware"
	"github.com/armin-rsh/FitLinkApp/internal/repository"
	"github.com/armin-rsh/FitLinkApp/internal/services"
	chatws "github.com/armin-rsh/FitLinkApp/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	exerciseRepo := repository.NewExerciseRepository(db)
	workoutRepo := repository.NewWorkoutRepository(db)
	contentRepo := repository.NewContentRepository(db)

	var storageService services.StorageService = services.NewLocalStorageService(cfg.UploadDir, cfg.UploadBaseURL)
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseKey)
	}
	presenceService := services.NewPresenceService(cfg.RedisAddr)

	chatHub := chatws.NewHub(presenceService)
	go chatHub.Run()
	chatService := services.NewChatService(userRepo, messageRepo)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	messageHandler := handlers.NewMessageHandler(chatService, chatHub, cfg.JWTSecret)
	uploadHandler := handlers.NewUploadHandler(storageService)
	contactHandler := handlers.NewContactHandler(userRepo)
	profileHandler := handlers.NewProfileHandler(userRepo, storageService)
	fitnessHandler := handlers.NewFitnessHandler(exerciseRepo, workoutRepo, contentRepo)
	presenceHandler := handlers.NewPresenceHandler(presenceService)

	authLimiter := middleware.NewLimiterStore(30, 10, 5*time.Minute)
	uploadLimiter := middleware.NewLimiterStore(60, 20, 5*time.Minute)

	api := app.Group("/api")

	auth := api.Group("/auth", middleware.RateLimit(authLimiter))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	api.Static("/v1/uploads", cfg.UploadDir)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	users := authProtected.Group("/users")
	users.Get("/me", authHandler.Me)
	users.Put("/me/avatar", middleware.RateLimit(uploadLimiter), profileHandler.UpdateAvatar)
	users.Get("/:id/coach", contactHandler.GetCoach)

	authProtected.Get("/admin", contactHandler.GetAdmin)
	authProtected.Get("/coaches/:id/clients", contactHandler.GetClients)

	messages := authProtected.Group("/messages")
	messages.Get("/:selfId/:peerId", messageHandler.GetHistory)
	messages.Post("", messageHandler.PostMessage)
	messages.Put("/:id", messageHandler.UpdateMessage)
	messages.Delete("/:id", messageHandler.DeleteMessage)

	authProtected.Post("/upload", middleware.RateLimit(uploadLimiter), uploadHandler.Upload)

	exercises := authProtected.Group("/exercises")
	exercises.Get("", fitnessHandler.ListExercises)
	exercises.Get("/:id", fitnessHandler.GetExercise)

	workouts := authProtected.Group("/workouts")
	workouts.Get("", fitnessHandler.ListWorkouts)
	workouts.Post("", fitnessHandler.LogWorkout)

	authProtected.Get("/meal-plans", fitnessHandler.ListMealPlans)
	authProtected.Get("/gyms", fitnessHandler.ListGyms)

	authProtected.Get("/presence/:id", presenceHandler.GetPresence)

	api.Use("/v1/ws", messageHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(messageHandler.HandleWebSocket))
}
