package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/quillpub/quillpub/configs"
	"github.com/quillpub/quillpub/internal/api/handlers"
	"github.com/quillpub/quillpub/internal/api/middleware"
	"github.com/quillpub/quillpub/internal/federation"
	job "github.com/quillpub/quillpub/internal/jobs"
	"github.com/quillpub/quillpub/internal/markup"
	"github.com/quillpub/quillpub/internal/queue"
	"github.com/quillpub/quillpub/internal/repository"
	"github.com/quillpub/quillpub/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	accountRepo := repository.NewAccountRepository(db)
	actorRepo := repository.NewActorRepository(db)
	followRepo := repository.NewFollowRepository(db)
	noteSourceRepo := repository.NewNoteSourceRepository(db)
	noteMediaRepo := repository.NewNoteMediaRepository(db)
	postRepo := repository.NewPostRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mentionRepo := repository.NewMentionRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)

	r2Service := service.NewR2Service(*cfg)
	mediaService := service.NewMediaService(noteMediaRepo, r2Service)
	mentionResolver := markup.NewMentionResolver(actorRepo)
	postLoader := service.NewPostLoader(postRepo, actorRepo, postMediaRepo, mentionRepo)

	objectBuilder := federation.NewObjectBuilder(cfg.Origin + "/media")
	transport := queue.NewEnqueuer(client)
	dispatcher := federation.NewDispatcher(cfg.Origin, cfg.CanonicalOrigin, transport)

	syncService := service.NewSyncService(cfg.Origin,
		accountRepo, actorRepo, followRepo, noteSourceRepo, noteMediaRepo,
		postRepo, postMediaRepo, mentionRepo, timelineRepo,
		mediaService, mentionResolver, objectBuilder, dispatcher, postLoader)
	noteService := service.NewNoteService(accountRepo, actorRepo, followRepo, noteSourceRepo, noteMediaRepo, postRepo, postLoader)
	recommendService := service.NewRecommendService(actorRepo)
	feedService := service.NewFeedService(postRepo, timelineRepo, actorRepo, followRepo, postLoader, recommendService)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	note := handlers.NewNoteHandler(syncService, noteService, accountRepo, noteSourceRepo, postRepo)
	timeline := handlers.NewTimelineHandler(feedService, accountRepo)

	app.Get("/timeline", authMiddleware.OptionalAccount(), timeline.GetTimeline)
	app.Get("/@:username/:id", authMiddleware.OptionalAccount(), note.GetNote)

	api := app.Group("/api")
	api.Use(authMiddleware.RequireAccount())
	api.Post("/notes", note.CreateNote)
	api.Put("/notes/:id", note.UpdateNote)

	// cron jobs
	mediaSweepJob := job.NewMediaSweepJob(noteMediaRepo, r2Service)

	// queue
	queueW := queue.NewQueue(followRepo, actorRepo)

	c := cron.New()
	c.AddFunc("@every 01h00m00s", mediaSweepJob.Sweep)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeDeliverActivity, queueW.HandleDeliverActivityTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
