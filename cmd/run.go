package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"leveler/bot"
	"leveler/config"
	"leveler/database"
	"leveler/events"
	"leveler/infrastructure"
	"leveler/infrastructure/observability"
	"leveler/repository"
	"leveler/service"
)

const shutdownTimeout = 10 * time.Second

// ConfigureLogging applies the configured level and format to the global logger
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Invalid log level %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.Info("Starting leveler bot...")

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("Closing database connection...")
		db.Close()
	}()
	log.Info("Database connection established successfully")

	// Initialize metrics
	log.Info("Initializing metrics...")
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
			log.Errorf("Error shutting down metrics: %v", err)
		}
	}()

	// Initialize event bus and unit of work factory
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize the leveling core
	log.Info("Initializing services...")
	engine, err := service.NewLevelingEngine(cfg.LevelMultiplier)
	if err != nil {
		return fmt.Errorf("failed to create leveling engine: %w", err)
	}
	serializer := service.NewMutationSerializer()
	defer serializer.Close()

	cooldowns := service.NewCooldownGate()
	stopJanitor := cooldowns.StartJanitor(ctx, cfg.CooldownPruneInterval, cfg.LargestCooldown())
	defer stopJanitor()

	levelingService := service.NewLevelingService(uowFactory, serializer, engine, cooldowns, service.LevelingSettings{
		MessageXP:        service.XPRange{Min: cfg.XPPerMessageMin, Max: cfg.XPPerMessageMax},
		ReactionXP:       service.XPRange{Min: cfg.XPPerReactionMin, Max: cfg.XPPerReactionMax},
		MessageCooldown:  cfg.MessageCooldown,
		ReactionCooldown: cfg.ReactionCooldown,
	}, metrics)
	settingsService := service.NewGuildSettingsService(uowFactory, serializer)
	log.Info("Services initialized successfully")

	// Outbound event publishing
	publisher, closePublisher, err := newEventPublisher(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer closePublisher()
	infrastructure.ForwardEvents(eventBus, publisher, events.EventTypeLevelUp, events.EventTypeLeaderChanged)

	// Initialize Discord bot
	log.Info("Initializing Discord bot...")
	discordBot, err := bot.New(bot.Config{
		Token:           cfg.DiscordToken,
		ActivityTimeout: cfg.ActivityTimeout,
	}, levelingService, settingsService)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}

	// Top-rank tracking: every committed XP change queues a check for its guild
	tracker := service.NewTopRankTracker(uowFactory, serializer, discordBot.Gateway(), eventBus, metrics, cfg.ExternalCallTimeout)
	checkQueue := service.NewCheckQueue(cfg.CheckQueueSize, cfg.CheckWorkers, func(ctx context.Context, guildID int64) {
		if _, err := tracker.CheckAndUpdate(ctx, guildID); err != nil {
			log.WithError(err).WithField("guildID", guildID).Error("Top rank check failed")
		}
	}, metrics)
	checkQueue.Start(ctx)
	defer checkQueue.Stop()

	eventBus.Subscribe(events.EventTypeXPChanged, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.XPChangedEvent); ok {
			checkQueue.Enqueue(e.GuildID)
		}
	})

	if err := discordBot.Open(ctx); err != nil {
		return fmt.Errorf("failed to open Discord bot: %w", err)
	}
	log.Info("Discord bot connected successfully")

	stopSweep := tracker.StartPeriodicSweep(ctx, cfg.TopCheckInterval)
	defer func() {
		// Stop inbound events before the sweep; the remaining deferred
		// cleanup drains the queue and closes the database last
		if err := discordBot.Close(); err != nil {
			log.Errorf("Error closing Discord bot: %v", err)
		}
		stopSweep()
	}()

	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down bot...")
	return nil
}

// newEventPublisher connects to NATS when servers are configured, otherwise
// events stay in process
func newEventPublisher(ctx context.Context, cfg *config.Config, metrics *observability.MetricsProvider) (infrastructure.EventPublisher, func(), error) {
	if cfg.NATSServers == "" {
		log.Info("NATS not configured, outbound events disabled")
		return infrastructure.NewNoopEventPublisher(), func() {}, nil
	}

	log.Info("Connecting to NATS...")
	client := infrastructure.NewNATSClient(cfg.NATSServers, cfg.OTelServiceName)
	if err := client.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := infrastructure.EnsureLevelingStream(client, mapper); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to ensure leveling stream: %w", err)
	}
	log.Info("NATS event publishing enabled")

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Errorf("Error closing NATS client: %v", err)
		}
	}
	return infrastructure.NewNATSEventPublisher(client, mapper, metrics), closeFn, nil
}
