package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kemojs/mydigitalmenu/internal/auth"
	"github.com/kemojs/mydigitalmenu/internal/billing"
	"github.com/kemojs/mydigitalmenu/internal/config"
	"github.com/kemojs/mydigitalmenu/internal/db"
	"github.com/kemojs/mydigitalmenu/internal/menu"
	"github.com/kemojs/mydigitalmenu/internal/ocr"
	"github.com/kemojs/mydigitalmenu/internal/onboarding"
	"github.com/kemojs/mydigitalmenu/internal/restaurant"
	"github.com/kemojs/mydigitalmenu/internal/router"
	"github.com/kemojs/mydigitalmenu/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───────────────────────── ENV ─────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ───────────────────────── STORAGE ─────────────────────────
	store, closeStore, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer closeStore()

	// ───────────────────────── REPOS ─────────────────────────
	var (
		userRepo       auth.UserRepository
		restaurantRepo restaurant.Repository
		sessionRepo    onboarding.Repository
		accountRepo    billing.AccountRepository
	)
	if cfg.DatabaseURL != "" {
		pgDB, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pgDB.Close()

		userRepo = auth.NewPostgresUserRepository(pgDB)
		restaurantRepo = restaurant.NewPostgresRepository(pgDB)
		sessionRepo = onboarding.NewPostgresRepository(pgDB)
		accountRepo = billing.NewPostgresAccountRepository(pgDB)
	} else {
		log.Println("DATABASE_URL not set, using in-memory repositories")
		userRepo = auth.NewInMemoryUserRepository()
		restaurantRepo = restaurant.NewInMemoryRepository()
		sessionRepo = onboarding.NewInMemoryRepository()
		accountRepo = billing.NewInMemoryAccountRepository()
	}

	// ───────────────────────── OCR ─────────────────────────
	var recognizers onboarding.Recognizers
	if hasBinary("tesseract") {
		recognizers.Local = ocr.NewTesseract(cfg.OCRLanguages)
	} else {
		log.Println("tesseract not found, CLIENT scans disabled")
	}
	if cfg.GeminiAPIKey != "" {
		recognizers.Remote = ocr.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
	} else {
		log.Println("GEMINI_API_KEY not set, SERVER scans disabled")
	}

	// ───────────────────────── SERVICES ─────────────────────────
	authService := auth.NewService(userRepo)
	restaurantService := restaurant.NewService(restaurantRepo)
	onboardingService := onboarding.NewService(
		sessionRepo,
		store,
		menu.NewStructurer(cfg.DefaultCurrency, cfg.DefaultLocale),
		recognizers,
		restaurantService,
		onboarding.Config{
			OCRTimeout:     cfg.OCRTimeout,
			OCRGrace:       ocr.DefaultGrace,
			MaxUploadBytes: cfg.OCRMaxUploadBytes,
			Languages:      cfg.OCRLanguages,
		},
	)

	handlers := router.Handlers{
		Auth:       auth.NewHandler(authService, cfg.IsProduction()),
		Onboarding: onboarding.NewHandler(onboardingService),
		Restaurant: restaurant.NewHandler(restaurantService),
	}
	if cfg.Stripe.SecretKey != "" {
		provider := billing.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
		billingService := billing.NewService(accountRepo, provider, priceIDs(cfg.Stripe.PriceIDs), cfg.AppURL)
		handlers.Billing = billing.NewHandler(billingService)
	} else {
		log.Println("STRIPE_SECRET_KEY not set, billing disabled")
	}

	// ───────────────────────── START ─────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg.CORSOrigins, handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("API running at http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := onboardingService.Shutdown(shutdownCtx); err != nil {
		log.Printf("ocr shutdown: %v", err)
	}
}

func newImageStore(ctx context.Context, c config.Storage) (storage.ImageStore, func(), error) {
	noop := func() {}
	switch c.Driver {
	case "r2":
		s, err := storage.NewR2Client(ctx, storage.R2Config{
			Endpoint:      c.R2Endpoint,
			AccessKey:     c.R2AccessKey,
			SecretKey:     c.R2SecretKey,
			Bucket:        c.R2Bucket,
			PublicBaseURL: c.R2PublicBaseURL,
		})
		return s, noop, err
	case "gcs":
		var creds []byte
		if c.GCSCredentialsFile != "" {
			b, err := os.ReadFile(c.GCSCredentialsFile)
			if err != nil {
				return nil, noop, err
			}
			creds = b
		}
		s, err := storage.NewGCSClient(ctx, c.GCSBucket, creds)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		log.Println("using in-memory image storage")
		return storage.NewMemoryStore(), noop, nil
	}
}

func priceIDs(raw map[string]map[string]string) billing.PriceIDs {
	out := make(billing.PriceIDs, len(raw))
	for plan, periods := range raw {
		p := billing.Plan(plan)
		out[p] = make(map[billing.Period]string, len(periods))
		for period, id := range periods {
			out[p][billing.Period(period)] = id
		}
	}
	return out
}

func hasBinary(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
