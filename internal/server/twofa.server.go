package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"twofa-service/internal/config"
	"twofa-service/internal/handler"
	"twofa-service/internal/rate"
	"twofa-service/internal/repository"
	"twofa-service/internal/router"
	"twofa-service/internal/service/auth"
	"twofa-service/internal/service/login"
	"twofa-service/internal/service/smscode"
	"twofa-service/internal/service/smssender"
	"twofa-service/internal/service/totp"
	"twofa-service/internal/session"
	"twofa-service/pkg/cache"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Server struct {
	Cfg   config.Config
	DB    *pgxpool.Pool
	Cache *cache.Cache

	smsSvc *smscode.Service
	http   *http.Server
}

func NewServer(cfg config.Config) *Server {
	dbpool, err := pgxpool.New(context.Background(), cfg.DBConnString)
	if err != nil {
		log.Fatalf("[FATAL] failed to connect to DB: %v", err)
	}

	c := cache.NewCache([]string{cfg.RedisAddr}, cfg.RedisPass, false)
	if err := c.Ping(context.Background()); err != nil {
		log.Printf("[WARN] failed to connect to Redis: %v", err)
	}

	sender, err := smssender.New(smssender.Config{
		Provider: cfg.SmsProvider,
		BaseURL:  cfg.SmsBaseURL,
		UserID:   cfg.SmsUserID,
		Password: cfg.SmsPassword,
		SenderID: cfg.SmsSenderID,
		APIKey:   cfg.SmsAPIKey,
	})
	if err != nil {
		log.Fatalf("[FATAL] sms sender init failed: %v", err)
	}

	userRepo := repository.NewUserRepository(dbpool)
	totpRepo := repository.NewTotpRepository(dbpool)
	smsRepo := repository.NewSmsCodeRepository(dbpool)

	limiter := rate.NewLimiter(c, cfg.RateWindow, cfg.RateMax, cfg.RateCooldown)
	sessions := session.NewRedisStore(c, cfg.SessionTTL)

	authSvc := auth.NewService(userRepo)
	totpSvc := totp.NewService(totpRepo, userRepo, cfg.TotpIssuer)
	smsSvc := smscode.NewService(smsRepo, userRepo, sender, limiter)
	coordinator := login.NewCoordinator(authSvc, totpSvc, smsSvc, userRepo, sessions)

	authHandler := handler.NewAuthHandler(coordinator, authSvc, totpSvc, smsSvc, sessions)

	r := chi.NewRouter()
	router.SetupRoutes(r, authHandler, cfg.CORSOrigins)

	return &Server{
		Cfg:    cfg,
		DB:     dbpool,
		Cache:  c,
		smsSvc: smsSvc,
		http: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: r,
		},
	}
}

// Run starts the HTTP listener and the expired-code sweep, then blocks until
// a shutdown signal.
func (s *Server) Run() error {
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go s.runCleanupSweep(sweepCtx)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutdown signal received")

		stopSweep()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}

		if err := s.Cache.Close(); err != nil {
			log.Printf("Error closing Redis: %v", err)
		}
		s.DB.Close()
	}()

	log.Printf("twofa-service listening at %s", s.Cfg.HTTPAddr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// runCleanupSweep periodically garbage-collects expired SMS codes. Nothing
// user-facing depends on it; verification filters on expiry itself.
func (s *Server) runCleanupSweep(ctx context.Context) {
	ticker := time.NewTicker(s.Cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.smsSvc.CleanupExpired(ctx)
			if err != nil {
				log.Printf("[WARN] expired code cleanup failed: %v", err)
				continue
			}
			if deleted > 0 {
				log.Printf("Cleaned up %d expired SMS codes", deleted)
			}
		}
	}
}
