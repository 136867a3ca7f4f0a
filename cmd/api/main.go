package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/akulagin/bankcards/internal/config"
	"github.com/akulagin/bankcards/internal/handler"
	"github.com/akulagin/bankcards/internal/middleware"
	"github.com/akulagin/bankcards/internal/models"
	"github.com/akulagin/bankcards/internal/repository"
	"github.com/akulagin/bankcards/internal/service"
	"github.com/akulagin/bankcards/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	cipher, err := repository.NewNumberCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Fatalf("Failed to initialize card number cipher: %v", err)
	}
	cards := repository.NewCardRepository(db, cipher)
	users := repository.NewUserRepository(db)

	var notifier service.Notifier
	if sender := email.NewSender(cfg, logger); sender != nil {
		notifier = sender
	}

	cardSvc := service.NewCardService(cards, users, notifier, logger)
	adminSvc := service.NewAdminCardService(cards, users, logger)
	userSvc := service.NewUserService(users, cfg, logger)
	sweeper := service.NewSweeper(cards, users, notifier, logger)
	h := handler.NewHandler(cardSvc, adminSvc, userSvc, logger)

	// Schedule the daily expiry sweep
	scheduler := cron.New()
	if _, err := scheduler.AddJob(cfg.SweepSchedule, sweeper); err != nil {
		logger.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestID(logger))

	// Public routes
	r.HandleFunc("/login", h.Login).Methods("POST")

	// User routes
	userRouter := r.PathPrefix("/api/v1/user").Subrouter()
	userRouter.Use(middleware.AuthMiddleware(cfg))
	userRouter.HandleFunc("/cards", h.GetMyCards).Methods("GET")
	userRouter.HandleFunc("/cards/transfer", h.Transfer).Methods("POST")
	userRouter.HandleFunc("/cards/{id}/block", h.BlockMyCard).Methods("PATCH")

	// Admin routes
	adminRouter := r.PathPrefix("/api/v1/admin").Subrouter()
	adminRouter.Use(middleware.AuthMiddleware(cfg), middleware.RequireRole(models.RoleAdmin))
	adminRouter.HandleFunc("/users", h.RegisterUser).Methods("POST")
	adminRouter.HandleFunc("/users", h.GetAllUsers).Methods("GET")
	adminRouter.HandleFunc("/cards", h.GetAllCards).Methods("GET")
	adminRouter.HandleFunc("/cards", h.CreateCard).Methods("POST")
	adminRouter.HandleFunc("/cards/{id}/status", h.ChangeCardStatus).Methods("PATCH")
	adminRouter.HandleFunc("/cards/{id}", h.DeleteCard).Methods("DELETE")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
