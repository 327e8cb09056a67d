package persist

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sync"
	"time"

	"confide/internal/middleware"
	"confide/internal/observability"
	"confide/internal/store"

	"gorm.io/gorm"
)

// Persister owns the store's durable image slot. The in-memory store stays
// the source of truth for the session; durability is best-effort, so a
// failed save is logged and swallowed rather than surfaced to the write
// path that triggered it.
type Persister struct {
	blobs BlobStore
	slot  string
	db    *gorm.DB
	log   *slog.Logger

	// digest of the last image bytes this context saved or applied, so
	// LoadImageIfChanged only reports images produced elsewhere.
	mu     sync.Mutex
	digest [sha256.Size]byte
	seen   bool
}

// NewPersister returns a Persister for the given slot.
func NewPersister(blobs BlobStore, slot string, db *gorm.DB) *Persister {
	return &Persister{
		blobs: blobs,
		slot:  slot,
		db:    db,
		log:   middleware.Logger,
	}
}

// LoadImage reads the stored image. An empty slot is a normal cold start.
// Unreadable bytes are treated as corruption: the slot is cleared and the
// caller builds fresh state instead of seeing the parse failure.
func (p *Persister) LoadImage(ctx context.Context) *store.Image {
	data, err := p.blobs.Load(ctx, p.slot)
	if err != nil {
		p.log.Warn("image load failed, starting fresh", slog.String("error", err.Error()))
		return nil
	}
	if data == nil {
		return nil
	}

	img, err := store.DecodeImage(data)
	if err != nil {
		observability.SnapshotRecoveries.Inc()
		p.log.Warn("discarding corrupt store image", slog.String("error", err.Error()))
		if clearErr := p.blobs.Clear(ctx, p.slot); clearErr != nil {
			p.log.Warn("failed to clear corrupt image", slog.String("error", clearErr.Error()))
		}
		return nil
	}
	p.markSeen(data)
	return img
}

// LoadImageIfChanged reads the stored image and returns it only when the
// bytes differ from the last image this context saved or applied. This is
// the polling resync primitive: another context's checkpoint shows up here,
// our own checkpoints do not.
func (p *Persister) LoadImageIfChanged(ctx context.Context) *store.Image {
	data, err := p.blobs.Load(ctx, p.slot)
	if err != nil || data == nil {
		return nil
	}

	sum := sha256.Sum256(data)
	p.mu.Lock()
	same := p.seen && sum == p.digest
	p.mu.Unlock()
	if same {
		return nil
	}

	img, err := store.DecodeImage(data)
	if err != nil {
		// A half-written image heals on a later poll; unlike startup we
		// have good local state, so don't clear the slot.
		p.log.Warn("skipping unreadable store image during resync", slog.String("error", err.Error()))
		return nil
	}

	p.mu.Lock()
	p.digest = sum
	p.seen = true
	p.mu.Unlock()
	return img
}

func (p *Persister) markSeen(data []byte) {
	sum := sha256.Sum256(data)
	p.mu.Lock()
	p.digest = sum
	p.seen = true
	p.mu.Unlock()
}

// SaveImage writes the image to the durable slot. On quota exhaustion the
// prior image is cleared and the write retried exactly once; a second
// failure is logged and swallowed.
func (p *Persister) SaveImage(ctx context.Context, img *store.Image) {
	data, err := store.EncodeImage(img)
	if err != nil {
		observability.SnapshotSaveFailures.WithLabelValues("encode").Inc()
		p.log.Error("image encode failed", slog.String("error", err.Error()))
		return
	}

	start := time.Now()
	err = p.blobs.Save(ctx, p.slot, data)
	if err != nil && IsQuotaExceeded(err) {
		if clearErr := p.blobs.Clear(ctx, p.slot); clearErr != nil {
			p.log.Warn("failed to clear slot after quota error", slog.String("error", clearErr.Error()))
		}
		err = p.blobs.Save(ctx, p.slot, data)
	}
	if err != nil {
		reason := "medium"
		if IsQuotaExceeded(err) {
			reason = "quota"
		}
		observability.SnapshotSaveFailures.WithLabelValues(reason).Inc()
		p.log.Warn("image save failed, in-memory state remains authoritative",
			slog.String("reason", reason), slog.String("error", err.Error()))
		return
	}
	p.markSeen(data)
	observability.ObserveSnapshotSave(start)
}

// Checkpoint exports the current store state and saves it durably. Called
// by the facade after every write that matters; never fails the caller.
func (p *Persister) Checkpoint(ctx context.Context) {
	span, ctx := observability.NewSpan(ctx, "persist.checkpoint")
	defer span.End()

	img, err := store.Export(ctx, p.db)
	if err != nil {
		span.SetError(err)
		observability.SnapshotSaveFailures.WithLabelValues("export").Inc()
		p.log.Error("store export failed", slog.String("error", err.Error()))
		return
	}
	p.SaveImage(ctx, img)
}
