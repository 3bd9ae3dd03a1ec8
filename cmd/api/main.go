package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"preboard/internal/admitcard"
	"preboard/internal/api"
	"preboard/internal/blob"
	"preboard/internal/config"
	"preboard/internal/httpmiddleware"
	"preboard/internal/identity"
	"preboard/internal/schedule"
	"preboard/internal/store"
	"preboard/internal/student"
	"preboard/internal/workflow"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if db == nil {
		return err
	}
	defer db.Close()
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	} else if err := store.Migrate(ctx, db.Client); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if redisClient == nil {
		log.Println("redis not configured, caches disabled")
	}

	table, err := schedule.Load(cfg.ScheduleFile)
	if err != nil {
		return err
	}
	var crest []byte
	if cfg.CrestFile != "" {
		if crest, err = admitcard.LoadCrest(cfg.CrestFile); err != nil {
			log.Printf("warning: crest not loaded, using default: %v", err)
		}
	}
	renderer := admitcard.New(table, crest)

	cdn := blob.New(cfg.CloudinaryName, cfg.CloudinaryKey, cfg.CloudinarySecret, cfg.CloudinaryFolder)
	if cdn.Configured() {
		log.Println("Cloudinary configured:", cfg.CloudinaryName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	students := student.NewService(student.NewRepository(db.Client), student.NewClassCache(redisClient.Cache(), 5*time.Minute))
	sessions := workflow.NewRegistry(students, cdn, renderer, cfg.SessionTTL)
	go sessions.Run(ctx)

	tokens := identity.TokenConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	users := identity.NewStore(db.Client)
	roles := identity.NewRoleChecker(users, redisClient.Cache(), cfg.RoleCacheTTL, cfg.RoleCheckTimeout)
	ids := identity.NewSessions(users, roles, tokens)
	defer ids.Close()
	unsubscribe := ids.Subscribe(func(e identity.Event) {
		log.Printf("auth: %s %s (%s)", e.Kind, e.Email, e.UserID)
	})
	defer unsubscribe()

	limiter := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	go pruneLimiter(ctx, limiter)

	srv := api.New(api.Deps{
		Students:    students,
		Sessions:    sessions,
		Identity:    ids,
		Roles:       roles,
		Blobs:       cdn,
		Renderer:    renderer,
		Limiter:     limiter,
		Tokens:      tokens,
		CORSOrigins: cfg.CORSOrigins,
		Health: map[string]api.HealthCheck{
			"db":    db.Healthy,
			"redis": redisClient.Healthy,
		},
	})

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func pruneLimiter(ctx context.Context, l *httpmiddleware.SimpleTokenBucket) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Prune(10 * time.Minute); n > 0 {
				log.Printf("rate limiter: pruned %d idle clients", n)
			}
		}
	}
}
