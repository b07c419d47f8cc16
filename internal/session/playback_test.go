package session

import (
	"context"
	"testing"

	"github.com/walterlow/snapit/internal/engine"
	"github.com/walterlow/snapit/internal/project"
)

func TestSeekClamps(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"negative", -100, 0},
		{"zero", 0, 0},
		{"fractional preserved", 1234.56, 1234.56},
		{"at duration", 10000, 10000},
		{"past duration", 99999, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newLoadedSession(t, 10000)
			s.Seek(project.Millis(tt.in))
			if got := float64(s.CurrentTimeMs()); got != tt.want {
				t.Errorf("CurrentTimeMs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeekSetsSeekingFlag(t *testing.T) {
	s, _ := newLoadedSession(t, 10000)

	s.Seek(2000)
	if !s.Status().Seeking {
		t.Error("seeking = false immediately after Seek")
	}
}

func TestTogglePlaybackTwiceRestores(t *testing.T) {
	s, _ := newLoadedSession(t, 10000)

	if s.IsPlaying() {
		t.Fatal("playing before any toggle")
	}
	s.TogglePlayback()
	if !s.IsPlaying() {
		t.Error("playing = false after first toggle")
	}
	s.TogglePlayback()
	if s.IsPlaying() {
		t.Error("playing = true after second toggle")
	}
}

func TestHandleEngineEventReconciles(t *testing.T) {
	s, _ := newLoadedSession(t, 10000)
	instID := s.Bridge().InstanceID()

	s.Seek(9000) // optimistic local state

	s.HandleEngineEvent(engine.PlaybackEvent{
		InstanceID:  instID,
		Frame:       120,
		TimestampMs: 2000,
		State:       engine.StatePlaying,
	})

	st := s.Status()
	if st.CurrentTimeMs != 2000 {
		t.Errorf("currentTimeMs = %v, want engine's 2000", st.CurrentTimeMs)
	}
	if st.CurrentFrame != 120 {
		t.Errorf("currentFrame = %d, want 120", st.CurrentFrame)
	}
	if !st.Playing {
		t.Error("playing = false, want engine's playing state")
	}
	if st.Seeking {
		t.Error("seeking flag survived engine event")
	}
}

func TestHandleEngineEventDropsStaleInstance(t *testing.T) {
	s, _ := newLoadedSession(t, 10000)
	s.Seek(5000)

	s.HandleEngineEvent(engine.PlaybackEvent{
		InstanceID:  "destroyed-long-ago",
		Frame:       1,
		TimestampMs: 42,
		State:       engine.StatePlaying,
	})

	if got := s.CurrentTimeMs(); got != 5000 {
		t.Errorf("currentTimeMs = %v, want 5000 (stale event dropped)", got)
	}
	if s.IsPlaying() {
		t.Error("stale event flipped the playing flag")
	}
}

func TestRenderFrame(t *testing.T) {
	s, _ := newLoadedSession(t, 10000)
	s.Seek(1000)

	frame := s.RenderFrame(context.Background())
	if frame == nil {
		t.Fatal("RenderFrame() = nil with live instance")
	}
	if frame.TimestampMs != 1000 {
		t.Errorf("frame timestamp = %d, want 1000", frame.TimestampMs)
	}
}

func TestRenderFrameNoProject(t *testing.T) {
	s, _ := newTestSession(t)
	if frame := s.RenderFrame(context.Background()); frame != nil {
		t.Errorf("RenderFrame() = %+v, want nil", frame)
	}
}

func TestPlaybackNoopsWithoutProject(t *testing.T) {
	s, _ := newTestSession(t)

	s.Seek(1000)
	s.TogglePlayback()
	s.SetPlaying(true)

	if s.CurrentTimeMs() != 0 || s.IsPlaying() {
		t.Error("playback state mutated with no project")
	}
}
