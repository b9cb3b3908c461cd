package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"autoapply-engine/internal/config"
	"autoapply-engine/internal/events"
	"autoapply-engine/internal/httpapi"
	"autoapply-engine/internal/letter"
	"autoapply-engine/internal/mail"
	"autoapply-engine/internal/replywatch"
	"autoapply-engine/internal/runner"
	"autoapply-engine/internal/scheduler"
	"autoapply-engine/internal/secrets"
	"autoapply-engine/internal/source"
	"autoapply-engine/internal/source/adzuna"
	"autoapply-engine/internal/source/francetravail"
	"autoapply-engine/internal/source/hellowork"
	"autoapply-engine/internal/source/jooble"
	"autoapply-engine/internal/store"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments use the environment directly
	_ = godotenv.Load()

	dataDir := os.Getenv("AUTOAPPLY_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// one engine per data dir: two instances would race the daily quota
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock: %v", err)
	}
	if !locked {
		log.Fatalf("another engine instance already owns %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		config.OverlayEnv(&cfg)
		normalized, vr := config.NormalizeAndValidate(cfg)
		for _, warn := range vr.Warnings {
			log.Printf("[config] warning: %s", warn)
		}
		if !vr.OK() {
			for _, e := range vr.Errors {
				log.Printf("[config] error: %s", e)
			}
		}
		return normalized, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	if missing := secrets.MissingForConfig(cfg); len(missing) > 0 {
		log.Printf("[secrets] missing: %v (affected features degrade or stay off)", missing)
	}

	db, err := store.Open(filepath.Join(dataDir, "autoapply.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatal(err)
	}
	// a crash can leave running=1 behind; nothing is in flight this early
	if n, err := db.ResetRunMarkers(context.Background()); err != nil {
		log.Fatal(err)
	} else if n > 0 {
		log.Printf("[store] cleared %d stale run marker(s)", n)
	}

	hub := events.NewHub()

	// connectors in configuration order: the first one to return a listing
	// owns it on external-id collisions
	limiter := source.NewHostLimiter(2, 4)
	var connectors []source.Connector
	if cfg.Sources.FranceTravail.Enabled {
		connectors = append(connectors, francetravail.New(francetravail.Config{
			ClientID:     cfg.Sources.FranceTravail.ClientID,
			ClientSecret: secrets.Optional(secrets.NameFranceTravailSecret),
		}, limiter))
	}
	if cfg.Sources.Adzuna.Enabled {
		connectors = append(connectors, adzuna.New(adzuna.Config{
			AppID:  cfg.Sources.Adzuna.AppID,
			AppKey: secrets.Optional(secrets.NameAdzunaAppKey),
		}, limiter))
	}
	if cfg.Sources.Jooble.Enabled {
		connectors = append(connectors, jooble.New(jooble.Config{
			APIKey: secrets.Optional(secrets.NameJoobleKey),
		}, limiter))
	}
	if cfg.Sources.HelloWork.Enabled {
		connectors = append(connectors, hellowork.New(hellowork.Config{}, limiter))
	}
	agg := source.NewAggregator(connectors...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gen letter.Generator
	if cfg.Generator.Enabled {
		g, err := letter.NewGoogleAI(ctx, secrets.Optional(secrets.NameGeneratorAPIKey), cfg.Generator.Model)
		if err != nil {
			log.Printf("[generator] disabled: %v (falling back to template letters)", err)
		} else {
			gen = g
		}
	}

	fromAddr := cfg.SMTP.FromAddr
	if fromAddr == "" {
		fromAddr = cfg.SMTP.Username
	}
	sender := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: secrets.Optional(secrets.NameSMTPPassword),
	})
	identity := mail.Identity{Name: cfg.SMTP.FromName, Address: fromAddr}

	eng := &runner.Runner{
		Store:     db,
		Fetcher:   agg,
		Generator: gen,
		Sender:    sender,
		Identity:  identity,
		Events:    hub,
	}

	triggerToken := secrets.TriggerToken()
	if triggerToken == "" {
		log.Printf("[httpapi] AUTOAPPLY_TRIGGER_TOKEN not set; /run/scheduled is open")
	}

	runStatus := &atomic.Value{}
	runStatus.Store(httpapi.RunStatus{})

	mux := httpapi.NewMux(httpapi.Deps{
		Store:        db,
		Hub:          hub,
		Runner:       eng,
		TriggerToken: triggerToken,
		RunStatus:    runStatus,
		CfgVal:       &cfgVal,
		UserCfgPath:  userCfgPath,
		LoadCfg:      loadCfg,
	})

	// daily sweep from inside the process; external cron can still hit
	// /run/scheduled instead
	if cfg.Scheduler.Enabled {
		cronJob, err := scheduler.StartCron(ctx, cfg.Scheduler.Cron, "scheduler", func(ctx context.Context) error {
			results := eng.RunAll(ctx, "")
			log.Printf("[scheduler] %s", runner.Summarize(results))
			return nil
		})
		if err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		defer cronJob.Stop()
	}

	if cfg.Replies.Enabled {
		watcher := &replywatch.Watcher{
			Config: replywatch.Config{
				Host:     cfg.Replies.IMAPHost,
				Port:     cfg.Replies.IMAPPort,
				Username: cfg.Replies.Username,
				Password: secrets.Optional(secrets.NameIMAPPassword),
				Mailbox:  cfg.Replies.Mailbox,
			},
			Store: db,
		}
		go scheduler.Every(ctx, time.Duration(cfg.Replies.PollSeconds)*time.Second, "replywatch", watcher.Poll)
	}

	port := cfg.App.Port
	if port == 0 {
		port = 8787
	}
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	shutdownToken, err := randomToken(16)
	if err != nil {
		log.Fatal(err)
	}
	// a supervisor reads the token from the data dir to stop us cleanly
	if err := os.WriteFile(filepath.Join(dataDir, "shutdown.token"), []byte(shutdownToken), 0o600); err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.RequestID,
			httpapi.Recover,
			httpapi.AccessLog,
			httpapi.Cors,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&shutdownToken, srv))

	log.Printf("engine listening on http://%s (data=%s)", addr, dataDir)
	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Printf("engine stopped")
}
