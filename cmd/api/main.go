package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/prizedraw-engine/api/routes"
	"github.com/ArowuTest/prizedraw-engine/internal/config"
	"github.com/ArowuTest/prizedraw-engine/internal/handlers"
	"github.com/ArowuTest/prizedraw-engine/internal/jobs"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories"
	mongorepo "github.com/ArowuTest/prizedraw-engine/internal/repositories/mongodb"
	"github.com/ArowuTest/prizedraw-engine/internal/repositories/redislock"
	"github.com/ArowuTest/prizedraw-engine/internal/services"
	"github.com/ArowuTest/prizedraw-engine/pkg/jwt"
	mongodb "github.com/ArowuTest/prizedraw-engine/pkg/mongodb"
	"github.com/ArowuTest/prizedraw-engine/pkg/smsgateway"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB.URI)
	if err != nil {
		cancel()
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		cancel()
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	locker, closeLocker, err := newLocker(ctx, cfg, db)
	cancel()
	if err != nil {
		slog.Error("Failed to set up prize locker", "error", err, "driver", cfg.Lock.Driver)
		os.Exit(1)
	}
	defer closeLocker()

	membershipRepo := mongorepo.NewMembershipRepository(db)
	notificationRepo := mongorepo.NewNotificationRepository(db)
	notifier := services.NewSMSNotifier(notificationRepo, membershipRepo, newGateway(cfg))

	drawService := services.NewDrawService(services.DrawServiceDeps{
		DrawRepo:       mongorepo.NewDrawRepository(db),
		PrizeRepo:      mongorepo.NewPrizeRepository(db),
		EntryRepo:      mongorepo.NewEntryRepository(db),
		MembershipRepo: membershipRepo,
		WinnerRepo:     mongorepo.NewWinnerRepository(db),
		RolloverRepo:   mongorepo.NewRolloverRepository(db),
		AuditRepo:      mongorepo.NewAuditRepository(db),
		Locker:         locker,
		Notifier:       notifier,
		Selector: services.SelectorConfig{
			ClaimWindow: cfg.Engine.ClaimWindow,
			LockTTL:     cfg.Engine.LockTTL,
			LockWait:    cfg.Engine.LockWait,
		},
	})

	var scheduler *jobs.Scheduler
	if cfg.Engine.SweepEnabled {
		scheduler, err = jobs.NewScheduler(cfg.Engine.Timezone)
		if err == nil {
			err = scheduler.Add(cfg.Engine.SweepSchedule, jobs.NewExpirySweepJob(drawService.Sweeper(), 10*time.Minute))
		}
		if err != nil {
			slog.Error("Failed to schedule expiry sweep", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
	}

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		DrawHandler:         handlers.NewDrawHandler(drawService),
		NotificationHandler: handlers.NewNotificationHandler(notificationRepo),
		Tokens:              jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port, "lockDriver", cfg.Lock.Driver, "smsGateway", cfg.SMS.Gateway)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	notifier.Wait()
	slog.Info("Server exiting")
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
	if lvl > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
}

// newLocker picks the prize lock backend; the returned func releases it
func newLocker(ctx context.Context, cfg *config.Config, db *mongo.Database) (repositories.PrizeLocker, func(), error) {
	if cfg.Lock.Driver == "redis" {
		locker, err := redislock.NewPrizeLocker(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return locker, func() {
			if err := locker.Close(); err != nil {
				slog.Error("Error closing Redis client", "error", err)
			}
		}, nil
	}
	return mongorepo.NewLockRepository(db), func() {}, nil
}

func newGateway(cfg *config.Config) smsgateway.Gateway {
	if cfg.SMS.Gateway == "http" {
		return smsgateway.NewHTTPGateway(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.SenderID)
	}
	return smsgateway.NewMockGateway("mock")
}
