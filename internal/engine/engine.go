// Package engine is the composition root. It wires the store, persistence,
// event bus, repositories, and services into a single Engine value that owns
// their lifecycles; nothing in here is a package-level singleton, so tests
// and multi-context scenarios can run several engines side by side.
package engine

import (
	"context"
	"fmt"

	"confide/internal/config"
	"confide/internal/events"
	"confide/internal/middleware"
	"confide/internal/persist"
	"confide/internal/repository"
	"confide/internal/service"
	"confide/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Engine owns a fully wired application instance: one store, one persister,
// one event bus, and the services built on top of them.
type Engine struct {
	cfg *config.Config

	db        *gorm.DB
	rdb       *redis.Client
	persister *persist.Persister
	bus       *events.Bus
	poller    *events.Poller

	users         *service.UserService
	posts         *service.PostService
	chats         *service.ChatService
	notifications *service.NotificationService

	// degraded is set when the durable medium is unreachable; the engine
	// keeps working from memory and cross-context sync is disabled.
	degraded bool
}

// New constructs an engine from configuration. Call Init before use.
func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Init opens the store, restores the last persisted image if one exists,
// and starts the cross-context event machinery. When the durable medium is
// unreachable the engine comes up in degraded mode with in-memory
// persistence and no cross-context sync.
func (e *Engine) Init(ctx context.Context) error {
	db, err := store.Open(e.cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	e.db = db

	var blobs persist.BlobStore
	e.rdb = persist.NewRedisClient(e.cfg.RedisURL)
	if e.rdb != nil {
		blobs = persist.NewRedisBlobStore(e.rdb)
	} else {
		e.degraded = true
		blobs = persist.NewMemoryBlobStore()
		middleware.Logger.WarnContext(ctx, "durable medium unreachable, running in degraded memory mode")
	}
	e.persister = persist.NewPersister(blobs, e.cfg.StoreSlot, db)

	if img := e.persister.LoadImage(ctx); img != nil && !img.Empty() {
		if err := store.Restore(ctx, db, img); err != nil {
			return fmt.Errorf("restoring persisted image: %w", err)
		}
		middleware.Logger.InfoContext(ctx, "restored persisted image",
			"users", len(img.Users), "posts", len(img.Posts), "messages", len(img.Messages))
	}

	// A nil redis client gives a bus that only dispatches in-context.
	e.bus = events.New(e.rdb, e.cfg.EventSlot, e.cfg.EventChannel)
	if err := e.bus.Start(ctx); err != nil {
		return fmt.Errorf("starting event bus: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	chatRepo := repository.NewChatRepository(db)

	e.users = service.NewUserService(userRepo, followRepo, notifRepo, e.persister)
	e.posts = service.NewPostService(postRepo, commentRepo, notifRepo, e.persister)
	e.chats = service.NewChatService(chatRepo, userRepo, e.persister, e.bus)
	e.notifications = service.NewNotificationService(notifRepo, e.persister)

	// Polling backstop: even if every broadcast is lost, contexts converge
	// within one interval by re-adopting the durable image and replaying
	// the newest ring entry.
	e.poller = events.NewPoller(e.cfg.PollInterval(), e.reconcile)
	e.poller.Start(ctx)

	return nil
}

// reconcile pulls state persisted by other contexts into the local store,
// then replays any missed event record. Derived reads such as unread counts
// reflect the adopted image immediately; the event replay only tells
// subscribers something happened.
func (e *Engine) reconcile(ctx context.Context) {
	if img := e.persister.LoadImageIfChanged(ctx); img != nil {
		if err := store.Replace(ctx, e.db, img); err != nil {
			middleware.Logger.WarnContext(ctx, "image resync failed", "error", err)
		}
	}
	e.bus.Reconcile(ctx)
}

// DB exposes the underlying store, primarily for tests and seeding.
func (e *Engine) DB() *gorm.DB { return e.db }

// Bus exposes the event bus for subscribers such as websocket sessions.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Persister exposes the snapshot persister.
func (e *Engine) Persister() *persist.Persister { return e.persister }

// Degraded reports whether the engine is running without a durable medium.
func (e *Engine) Degraded() bool { return e.degraded }

// Users returns the user service.
func (e *Engine) Users() *service.UserService { return e.users }

// Posts returns the post service.
func (e *Engine) Posts() *service.PostService { return e.posts }

// Chats returns the chat service.
func (e *Engine) Chats() *service.ChatService { return e.chats }

// Notifications returns the notification service.
func (e *Engine) Notifications() *service.NotificationService { return e.notifications }

// Close checkpoints one last time and releases every resource the engine owns.
func (e *Engine) Close(ctx context.Context) error {
	if e.poller != nil {
		e.poller.Stop()
	}
	if e.persister != nil {
		e.persister.Checkpoint(ctx)
	}
	if e.bus != nil {
		e.bus.Close()
	}
	if e.rdb != nil {
		if err := e.rdb.Close(); err != nil {
			middleware.Logger.WarnContext(ctx, "closing redis client", "error", err)
		}
	}
	if e.db != nil {
		sqlDB, err := e.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
