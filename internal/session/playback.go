package session

import (
	"context"

	"github.com/walterlow/snapit/internal/engine"
	"github.com/walterlow/snapit/internal/project"
)

// Seek clamps the target to the timeline, updates the local playhead
// immediately (optimistic, fractional milliseconds preserved), and issues
// the engine seek asynchronously without blocking on the round trip. The
// next engine event supersedes the optimistic state.
func (s *Session) Seek(timeMs project.Millis) {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return
	}
	clamped := s.project.ClampToDuration(timeMs)
	s.currentTimeMs = clamped
	s.seeking = true
	s.mu.Unlock()

	s.dispatch(func(ctx context.Context) error {
		return s.bridge.Seek(ctx, clamped.Int64())
	}, "seek")
}

// CurrentTimeMs returns the local playhead position.
func (s *Session) CurrentTimeMs() project.Millis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTimeMs
}

// IsPlaying reports the local playing flag.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// SetPlaying flips the local flag and issues play or pause to the engine.
func (s *Session) SetPlaying(playing bool) {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return
	}
	s.playing = playing
	s.mu.Unlock()

	if playing {
		s.dispatch(s.bridge.Play, "play")
	} else {
		s.dispatch(s.bridge.Pause, "pause")
	}
}

// TogglePlayback flips between playing and paused.
func (s *Session) TogglePlayback() {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return
	}
	target := !s.playing
	s.mu.Unlock()

	s.SetPlaying(target)
}

// HandleEngineEvent is the single authoritative handler for playback events
// pushed by the engine. It overwrites frame, time, and playing state
// atomically from the event payload; events addressed to a stale instance
// are dropped.
func (s *Session) HandleEngineEvent(ev engine.PlaybackEvent) {
	if !s.bridge.OwnsEvent(ev) {
		s.logger.Debug("dropping event for stale instance", "instance_id", ev.InstanceID)
		return
	}

	s.mu.Lock()
	s.currentFrame = ev.Frame
	s.currentTimeMs = project.Millis(ev.TimestampMs)
	s.playing = ev.State == engine.StatePlaying
	s.seeking = false
	s.mu.Unlock()
}

// RenderFrame requests the frame at the current playhead. A render failure
// is logged and reported as no frame available, never fatal to the session.
func (s *Session) RenderFrame(ctx context.Context) *engine.Frame {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return nil
	}
	ts := s.currentTimeMs.Int64()
	s.mu.Unlock()

	frame, err := s.bridge.RenderFrame(ctx, ts)
	if err != nil {
		s.logger.Warn("frame unavailable", "timestamp_ms", ts, "error", err)
		return nil
	}
	return frame
}

// dispatch issues an engine command in the background with a bounded
// timeout. Failures are logged; playback commands never surface errors to
// the caller.
func (s *Session) dispatch(cmd func(context.Context) error, name string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := cmd(ctx); err != nil {
			s.logger.Warn("engine command failed", "command", name, "error", err)
		}
	}()
}
