package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zeygath/th-2024/internal/api"
	"github.com/Zeygath/th-2024/internal/api/middleware"
	"github.com/Zeygath/th-2024/internal/app/service"
	"github.com/Zeygath/th-2024/internal/app/worker"
	"github.com/Zeygath/th-2024/internal/common/security"
	"github.com/Zeygath/th-2024/internal/domain/model"
	"github.com/Zeygath/th-2024/internal/domain/repository"
	"github.com/Zeygath/th-2024/internal/platform/config"
	"github.com/Zeygath/th-2024/internal/platform/database"
	"github.com/Zeygath/th-2024/internal/platform/logging"
	"github.com/Zeygath/th-2024/internal/platform/mail"
	"github.com/Zeygath/th-2024/internal/platform/queue"
	"github.com/Zeygath/th-2024/internal/platform/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig
	logging.Setup("th-2024-api", cfg.LogLevel)
	logrus.Info("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	if cfg.AutoMigrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := database.Migrate(migrateCtx, database.DB); err != nil {
			cancel()
			logrus.WithError(err).Fatal("Database migration failed")
		}
		cancel()
	}

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()

	// 5. Object storage
	store, closeStore := newObjectStore(cfg)
	defer closeStore()
	signer := storage.NewURLSigner(cfg.StorageSigningKey, cfg.PublicBaseURL, cfg.SignedURLTTL)

	// 6. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	adminRepo := repository.NewPgAdminRepository(database.DB)
	riddleRepo := repository.NewPgRiddleRepository(database.DB)
	progressRepo := repository.NewPgProgressRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	leaderboardRepo := repository.NewPgLeaderboardRepository(database.DB)
	settingsRepo := repository.NewPgSettingsRepository(database.DB)

	// 7. Initialize Services
	scoreQueue := queue.NewScoreQueue(queue.RDB, cfg.ScoreQueueName)
	denylist := queue.NewTokenDenylist(queue.RDB)
	locker := queue.NewRedisLocker(queue.RDB, time.Duration(cfg.SubmissionLockTTLSeconds)*time.Second)

	settingsService := service.NewSettingsService(settingsRepo, cfg.GameStartAt)
	identityService := service.NewIdentityService(userRepo, adminRepo)
	authService := service.NewAuthService(userRepo, identityService, denylist, mail.NewLogMailer(), cfg.AppBaseURL, database.DB)
	progressionService := service.NewProgressionService(riddleRepo, progressRepo, settingsService,
		model.HintDelays{Hint1: cfg.Hint1Delay, Hint2: cfg.Hint2Delay})
	submissionService := service.NewSubmissionService(submissionRepo, progressionService, settingsService, locker, store,
		cfg.AnswerTrimWhitespace, database.DB)
	moderationService := service.NewModerationService(submissionRepo, signer, scoreQueue)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo)
	riddleService := service.NewRiddleService(riddleRepo, store, signer)

	// 8. Score worker (as a goroutine)
	scoreWorker := worker.NewScoreWorker(scoreQueue, submissionRepo, leaderboardRepo, cfg.ScorePointsPerApproval)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		scoreWorker.Start(workerCtx)
	}()

	// 9. Initialize Router & HTTP Server
	router := api.NewRouter(api.Services{
		Auth:        authService,
		Settings:    settingsService,
		Leaderboard: leaderboardService,
		Progression: progressionService,
		Submissions: submissionService,
		Moderation:  moderationService,
		Riddles:     riddleService,
		Objects:     store,
		URLVerifier: signer,
	}, middleware.NewAuth(identityService, denylist), api.RouterOptions{
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second, // uploads
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logrus.Infof("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatalf("Could not listen on %s", cfg.APIPort)
		}
	}()

	<-stop // Wait for interrupt signal

	logrus.Info("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logrus.Warn("Score worker did not stop in time")
	}

	logrus.Info("Server and worker stopped gracefully.")
}

// newObjectStore picks the storage backend named by STORAGE_DRIVER.
func newObjectStore(cfg *config.Config) (storage.ObjectStore, func()) {
	switch cfg.StorageDriver {
	case "local":
		store, err := storage.NewLocalStore(cfg.StorageLocalDir)
		if err != nil {
			logrus.WithError(err).Fatal("Could not initialise local storage")
		}
		logrus.WithField("dir", cfg.StorageLocalDir).Info("Using local object storage")
		return store, func() {}
	case "ftp":
		store := storage.NewFTPStore(cfg.FTPHost, cfg.FTPPort, cfg.FTPUser, cfg.FTPPassword, cfg.FTPRoot)
		logrus.WithField("host", cfg.FTPHost).Info("Using FTP object storage")
		return store, func() {
			if err := store.Close(); err != nil {
				logrus.WithError(err).Warn("FTP connection close failed")
			}
		}
	default:
		logrus.Fatalf("Unknown STORAGE_DRIVER %q (want ftp or local)", cfg.StorageDriver)
		return nil, nil
	}
}
