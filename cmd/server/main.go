package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/time/rate"

	_ "voting-service/docs"
	"voting-service/internal/config"
	"voting-service/internal/domain/category"
	"voting-service/internal/domain/poll"
	"voting-service/internal/domain/user"
	"voting-service/internal/domain/vote"
	api "voting-service/internal/http"
	"voting-service/internal/metrics"
	"voting-service/internal/platform/database"
	jwtpkg "voting-service/internal/platform/jwt"
	"voting-service/internal/repository/postgres"
	"voting-service/internal/worker"
)

// @title           Voting Service API
// @version         1.0
// @description     Poll and vote admission service
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	metrics.Register()

	db, err := database.NewPostgres(cfg.DB_DSN)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	pollRepo := postgres.NewPollRepo(db)
	voteRepo := postgres.NewVoteRepo(db)
	catRepo := postgres.NewCategoryRepo(db)

	userSvc := user.NewService(userRepo)
	pollSvc := poll.NewService(pollRepo)
	voteSvc := vote.NewService(pollRepo, voteRepo, metrics.VoteRecorder{})
	catSvc := category.NewService(catRepo)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, cfg.JWTIssuer)

	voteCh := make(chan worker.VoteEvent, 100)
	statsWorker := worker.NewStatsWorker(voteCh, logger)

	voteRate := api.VoteRate{
		Limit: rate.Every(time.Minute / time.Duration(cfg.VoteRatePerMin)),
		Burst: cfg.VoteRateBurst,
	}

	router := api.NewRouter(userSvc, pollSvc, voteSvc, catSvc, jwtMgr, voteCh, db, voteRate)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go statsWorker.Run(ctx)

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server shutdown error: %v", err)
	}

	logger.Info("server stopped")
}
