package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"discord-automod/automod"
	"discord-automod/config"
	"discord-automod/database"
	"discord-automod/grpc"
	"discord-automod/metrics"
	"discord-automod/sanction"
	"discord-automod/utils"
	"discord-automod/violations"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Bot encapsulates the bot's state.
type Bot struct {
	Session  *discordgo.Session
	Commands map[string]*discordgo.ApplicationCommand
	Engine   *automod.Engine
	Tracker  *violations.Tracker
	Auth     *utils.Auth
	Audit    *utils.AuditLogger
	Status   *database.StatusManager
	Logger   *zap.Logger

	backend   database.ViolationBackend
	scheduler *cron.Cron
	watcher   *config.FileWatcher
	metrics   *metrics.Server
	health    *grpc.HealthServer
	closers   []func() error
	reloadMu  sync.Mutex
}

// NewBot creates the session, opens violation storage and builds the
// automod engine from the loaded configuration.
func NewBot(ctx context.Context, logger *zap.Logger) (*Bot, error) {
	token := config.Token()
	if token == "" {
		return nil, errors.New("no bot token provided, set BOT_TOKEN in .env or config.yaml")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	storage, err := config.Storage()
	if err != nil {
		return nil, err
	}
	backend, err := database.Open(ctx, storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open violation storage: %w", err)
	}

	commands, err := config.Commands()
	if err != nil {
		backend.Close()
		return nil, err
	}

	b := &Bot{
		Session:  dg,
		Commands: make(map[string]*discordgo.ApplicationCommand),
		Tracker:  violations.NewTracker(backend, logger),
		Audit:    utils.NewAuditLogger(dg, config.AdminChannelID(), logger),
		Status:   database.NewStatusManager(storage.StatusFile, backend.Driver()),
		Logger:   logger,
		backend:  backend,
	}

	snap, err := config.BuildSnapshot(logger)
	if snap == nil {
		backend.Close()
		return nil, fmt.Errorf("failed to build moderation snapshot: %w", err)
	}
	if err != nil {
		logger.Warn("Moderation files could not be fully loaded, continuing degraded", zap.Error(err))
	}

	executor := sanction.NewExecutor(dg, b.Audit, logger)
	b.Engine = automod.NewEngine(automod.NewPolicy(b.Tracker, logger), executor, snap, logger)
	b.Auth = utils.NewAuth(commands, func() string {
		return b.Engine.Snapshot().Settings.StaffRoleID
	})

	return b, nil
}

// RegisterCommands registers the provided slash command definitions.
func (b *Bot) RegisterCommands(defs []*discordgo.ApplicationCommand) {
	for _, def := range defs {
		b.Commands[def.Name] = def
	}
}

// OnStop registers fn to run after the gateway session is closed.
func (b *Bot) OnStop(fn func() error) {
	b.closers = append(b.closers, fn)
}

// Health returns the gRPC health server, nil when disabled.
func (b *Bot) Health() *grpc.HealthServer {
	return b.health
}

// Reload rebuilds the moderation snapshot and activates it. On any error
// the previous snapshot stays active.
func (b *Bot) Reload() (*automod.Snapshot, error) {
	b.reloadMu.Lock()
	defer b.reloadMu.Unlock()

	snap, err := config.BuildSnapshot(b.Logger)
	if err != nil {
		b.Audit.Error("config", "reload", fmt.Sprintf("Reload failed, keeping snapshot %d: %v", b.Engine.Snapshot().Version, err))
		return nil, err
	}
	next := b.Engine.Reload(snap)
	b.Audit.Info("config", "reload", fmt.Sprintf("Moderation snapshot %d active with %d banned terms", next.Version, next.Rules.TermCount()))
	return next, nil
}

// Start registers handlers, opens the gateway connection and starts the
// background services.
func (b *Bot) Start(ctx context.Context, registerHandlers func(*Bot)) error {
	registerHandlers(b)

	if err := b.open(ctx); err != nil {
		return err
	}
	b.Engine.SetSelfID(b.Session.State.User.ID)

	for _, def := range b.Commands {
		if _, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", def); err != nil {
			b.Logger.Warn("Cannot create slash command", zap.String("command", def.Name), zap.Error(err))
		}
	}

	if err := b.startScheduler(config.Scheduler().Compaction); err != nil {
		return err
	}
	b.startWatchers()

	if addr := viper.GetString("metrics.listen"); addr != "" {
		b.metrics = metrics.Serve(addr, b.Logger)
	}
	if addr := viper.GetString("grpc.health_listen"); addr != "" {
		h, err := grpc.NewHealthServer(addr, b.Logger)
		if err != nil {
			b.Logger.Warn("Health server disabled", zap.Error(err))
		} else {
			b.health = h
			h.SetServing(true)
		}
	}

	b.Audit.Info("bot", "start", fmt.Sprintf("Automod running with %s storage", b.backend.Driver()))
	return nil
}

// open connects to the gateway, retrying with exponential backoff.
func (b *Bot) open(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxElapsedTime = 2 * time.Minute

	op := func() error {
		err := b.Session.Open()
		if errors.Is(err, discordgo.ErrWSAlreadyOpen) {
			return nil
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		b.Logger.Warn("Gateway connection failed, retrying", zap.Error(err), zap.Duration("next", next))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}
	return nil
}

func (b *Bot) startWatchers() {
	config.WatchConfig(func() {
		if _, err := b.Reload(); err != nil {
			b.Logger.Error("Reload after config change failed", zap.Error(err))
		}
	}, b.Logger)

	files := config.WatchedFiles(b.Engine.Snapshot().Settings)
	if len(files) == 0 {
		return
	}
	w, err := config.WatchFiles(files, func() {
		if _, err := b.Reload(); err != nil {
			b.Logger.Error("Reload after moderation file change failed", zap.Error(err))
		}
	}, b.Logger)
	if err != nil {
		b.Logger.Warn("Moderation files are not watched", zap.Error(err))
		return
	}
	b.watcher = w
}

// Stop gracefully shuts everything down.
func (b *Bot) Stop() {
	if b.health != nil {
		b.health.Close()
	}
	b.stopScheduler()
	if b.watcher != nil {
		b.watcher.Close()
	}
	if b.Session != nil {
		b.Session.Close()
	}
	for _, fn := range b.closers {
		if err := fn(); err != nil {
			b.Logger.Warn("Shutdown hook failed", zap.Error(err))
		}
	}
	if b.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.metrics.Close(ctx)
	}
	if err := b.backend.Close(); err != nil {
		b.Logger.Warn("Failed to close violation storage", zap.Error(err))
	}
	b.Logger.Info("Bot stopped gracefully")
}

// Run is the main entry point of the bot. It blocks until SIGINT/SIGTERM.
func Run(logger *zap.Logger, registerHandlers func(*Bot), commands []*discordgo.ApplicationCommand) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	b, err := NewBot(ctx, logger)
	if err != nil {
		return fmt.Errorf("error initializing bot: %w", err)
	}
	b.RegisterCommands(commands)

	if err := b.Start(ctx, registerHandlers); err != nil {
		b.Stop()
		return fmt.Errorf("error starting bot: %w", err)
	}

	logger.Info("Bot is now running, press CTRL-C to exit")
	<-ctx.Done()

	b.Stop()
	return nil
}
