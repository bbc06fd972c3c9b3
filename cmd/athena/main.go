package main

import (
	"context"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hray3182/Athena/internal/ai"
	"github.com/hray3182/Athena/internal/api"
	"github.com/hray3182/Athena/internal/config"
	"github.com/hray3182/Athena/internal/database"
	"github.com/hray3182/Athena/internal/event"
	"github.com/hray3182/Athena/internal/metrics"
	"github.com/hray3182/Athena/internal/notify"
	"github.com/hray3182/Athena/internal/page"
	"github.com/hray3182/Athena/internal/repository"
	"github.com/hray3182/Athena/internal/telegram"
	"github.com/hray3182/Athena/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "athena.yaml", "optional YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	loc := cfg.Location()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Settings storage
	var settings notify.KV
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := database.New(ctx, cfg.DatabaseURI)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("Connected to database")

		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Database migrations completed")
		settings = repository.NewSettingsRepository(db)

	case config.DriverMongo:
		repo, err := repository.NewMongoSettingsRepository(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer repo.Close()
		log.Println("Connected to MongoDB")
		settings = repo

	default:
		log.Println("No database configured, settings are kept in memory")
		settings = repository.NewMemorySettingsRepository()
	}

	// Worker cache storage
	var cache worker.Store = worker.NewMemoryStore()
	if cfg.RedisURL != "" {
		redisStore, err := worker.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		log.Println("Worker cache stored in Redis")
		cache = redisStore
	}

	publisher, err := event.NewPublisher(cfg.RabbitMQURI)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	frontend := parseURL(cfg.FrontendURL)
	hub := page.NewHub()

	// Telegram renders notifications in the background (optional)
	var (
		tgAPI    *tgbotapi.BotAPI
		renderer *telegram.Renderer
		prompter *telegram.Prompter
	)
	var workerRenderer worker.Renderer
	var gatePrompter notify.Prompter
	if cfg.TelegramToken != "" {
		tgAPI, err = tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			log.Fatalf("Failed to create Telegram API: %v", err)
		}
		renderer = telegram.NewRenderer(tgAPI, cfg.TelegramChatID, parseURL(cfg.PublicURL))
		prompter = telegram.NewPrompter(tgAPI, cfg.TelegramChatID)
		workerRenderer, gatePrompter = renderer, prompter
	} else {
		log.Println("Telegram not configured, notifications only reach open pages")
	}

	w := worker.New(workerRenderer, hub, cache, frontend, publisher, m)

	gate, err := notify.NewGate(ctx, settings, gatePrompter)
	if err != nil {
		log.Fatalf("Failed to load permission state: %v", err)
	}
	deliverer := notify.NewDeliverer(gate, w, hub, publisher, m)

	opts := []notify.SchedulerOption{notify.WithLocation(loc)}
	if cfg.AIAPIKey != "" {
		opts = append(opts, notify.WithComposer(ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)))
		log.Printf("AI client initialized (model: %s)", cfg.AIModel)
	} else {
		log.Println("AI client not configured, motivation comes from the built-in pool")
	}

	reminders := notify.NewRegistry()
	m.TrackRegistry(reminders.Len)
	scheduler := notify.NewScheduler(reminders, deliverer, opts...)
	defer scheduler.Stop()
	manager := notify.NewManager(ctx, reminders, scheduler, gate, settings, notify.ChangeObservers{publisher, m})

	if err := manager.Restore(ctx); err != nil {
		log.Printf("Failed to restore reminders: %v", err)
	}

	if tgAPI != nil {
		go w.Run(ctx)
		go func() {
			if _, err := w.KeepRegistering(ctx, 5*time.Second, 5*time.Minute); err != nil {
				log.Printf("Worker inactive, delivering to open pages only: %v", err)
			}
		}()

		b := telegram.New(tgAPI, cfg.TelegramChatID, manager, renderer, prompter, w, loc)
		go func() {
			if err := b.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("Bot error: %v", err)
			}
		}()
	}

	server := api.New(api.Options{
		Manager:   manager,
		Deliverer: deliverer,
		Worker:    w,
		Hub:       hub,
		Frontend:  frontend,
		Transport: worker.NewCachingTransport(frontend, cache),
		Gatherer:  registry,
		Origins:   cfg.Origins(),
		Location:  loc,
	})

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	if err := server.Run(ctx, cfg.HTTPAddr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func parseURL(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		log.Fatalf("Invalid URL %q: %v", raw, err)
	}
	return u
}
