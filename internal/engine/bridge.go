package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/walterlow/snapit/internal/logging"
	"github.com/walterlow/snapit/internal/project"
)

const destroyTimeout = 10 * time.Second

// Bridge owns the single render engine instance for a session and mediates
// every native call. At most one instance is alive at any time: Initialize
// destroys the prior instance before creating the next one.
//
// Concurrent Initialize calls are serialized on an internal mutex with
// last-writer-wins semantics: each call destroys whatever instance is
// current when it acquires the lock, so back-to-back initializes always
// leave exactly one live instance, bound to the most recently submitted
// project.
type Bridge struct {
	engine Engine
	logger *slog.Logger

	mu       sync.Mutex
	instance *Instance

	initializing atomic.Int32
}

// NewBridge creates a Bridge around an engine implementation.
func NewBridge(eng Engine, logger *slog.Logger) *Bridge {
	return &Bridge{engine: eng, logger: logger}
}

// IsInitializing reports whether at least one Initialize call is in flight.
func (b *Bridge) IsInitializing() bool {
	return b.initializing.Load() > 0
}

// HasInstance reports whether an instance is currently alive.
func (b *Bridge) HasInstance() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.instance != nil
}

// InstanceID returns the live instance id, or "" if none exists.
func (b *Bridge) InstanceID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.instance == nil {
		return ""
	}
	return b.instance.ID
}

// Metadata returns the live instance metadata, or nil if none exists.
func (b *Bridge) Metadata() *InstanceMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.instance == nil {
		return nil
	}
	md := b.instance.Metadata
	return &md
}

// Initialize creates an engine instance from a sanitized snapshot of the
// given project, tearing down any existing instance first. A destroy
// failure is logged but does not abort the creation.
func (b *Bridge) Initialize(ctx context.Context, p *project.Project) (*Instance, error) {
	b.initializing.Add(1)
	defer b.initializing.Add(-1)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.instance != nil {
		if err := b.engine.DestroyInstance(ctx, b.instance.ID); err != nil {
			b.logger.Warn("failed to destroy previous instance",
				"instance_id", b.instance.ID, "error", err)
		}
		b.instance = nil
	}

	snapshot := project.SanitizeForTransport(p)

	inst, err := b.engine.CreateInstance(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	b.instance = inst
	b.logger.Info("render instance created",
		"instance_id", inst.ID,
		"project_id", p.ID,
		"duration_ms", inst.Metadata.DurationMs,
	)
	return inst, nil
}

// Destroy tears down the live instance. Idempotent: calling it with no
// instance is a no-op.
func (b *Bridge) Destroy(ctx context.Context) error {
	b.mu.Lock()
	inst := b.instance
	b.instance = nil
	b.mu.Unlock()

	if inst == nil {
		return nil
	}

	if err := b.engine.DestroyInstance(ctx, inst.ID); err != nil {
		return fmt.Errorf("destroy instance %s: %w", inst.ID, err)
	}
	b.logger.Info("render instance destroyed", "instance_id", inst.ID)
	return nil
}

// DestroyAsync tears down the live instance without waiting for the engine
// acknowledgement. Used by session teardown, which accepts the benign race
// where a late destroy response arrives after state has already been reset.
func (b *Bridge) DestroyAsync() {
	b.mu.Lock()
	inst := b.instance
	b.instance = nil
	b.mu.Unlock()

	if inst == nil {
		return
	}

	log := logging.WithInstanceID(b.logger, inst.ID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
		defer cancel()
		if err := b.engine.DestroyInstance(ctx, inst.ID); err != nil {
			log.Warn("async instance destroy failed", "error", err)
			return
		}
		log.Debug("async instance destroy completed")
	}()
}

// RenderFrame requests the frame at the given timestamp from the live
// instance. Returns ErrNoInstance when none exists; any engine failure is
// returned for the caller to log and treat as "no frame available".
func (b *Bridge) RenderFrame(ctx context.Context, timestampMs int64) (*Frame, error) {
	id := b.InstanceID()
	if id == "" {
		return nil, ErrNoInstance
	}

	frame, err := b.engine.RenderFrame(ctx, id, timestampMs)
	if err != nil {
		return nil, fmt.Errorf("render frame at %dms: %w", timestampMs, err)
	}
	return frame, nil
}

// Play starts engine playback. No-op if no instance exists.
func (b *Bridge) Play(ctx context.Context) error {
	id := b.InstanceID()
	if id == "" {
		return nil
	}
	return b.engine.Play(ctx, id)
}

// Pause stops engine playback. No-op if no instance exists.
func (b *Bridge) Pause(ctx context.Context) error {
	id := b.InstanceID()
	if id == "" {
		return nil
	}
	return b.engine.Pause(ctx, id)
}

// Seek moves the engine playhead. No-op if no instance exists.
func (b *Bridge) Seek(ctx context.Context, timestampMs int64) error {
	id := b.InstanceID()
	if id == "" {
		return nil
	}
	return b.engine.Seek(ctx, id, timestampMs)
}

// OwnsEvent reports whether a playback event belongs to the live instance.
// Events addressed to a destroyed instance are dropped by the caller.
func (b *Bridge) OwnsEvent(ev PlaybackEvent) bool {
	id := b.InstanceID()
	return id != "" && ev.InstanceID == id
}
