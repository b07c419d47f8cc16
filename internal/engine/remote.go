package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/walterlow/snapit/internal/project"
)

// EngineError represents an error response from the render engine host.
type EngineError struct {
	StatusCode int
	Body       string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx) are
// considered permanent.
func (e *EngineError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// RemoteEngine talks to a GPU render engine host over HTTP. Commands are
// JSON request/response; playback events arrive on a streamed NDJSON
// subscription pumped into the PlaybackEvents channel.
type RemoteEngine struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	events chan PlaybackEvent
}

// NewRemoteEngine creates a client for the engine host at baseURL.
func NewRemoteEngine(baseURL, token string, logger *slog.Logger) *RemoteEngine {
	return &RemoteEngine{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
		events: make(chan PlaybackEvent, stubEventBufferSize),
	}
}

func (e *RemoteEngine) CreateInstance(ctx context.Context, p *project.Project) (*Instance, error) {
	var inst Instance
	if err := e.post(ctx, "/api/v1/instances", p, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (e *RemoteEngine) DestroyInstance(ctx context.Context, instanceID string) error {
	req, err := e.newRequest(ctx, http.MethodDelete, "/api/v1/instances/"+instanceID, nil)
	if err != nil {
		return err
	}
	return e.do(req, nil)
}

func (e *RemoteEngine) RenderFrame(ctx context.Context, instanceID string, timestampMs int64) (*Frame, error) {
	body := map[string]int64{"timestamp_ms": timestampMs}
	var frame Frame
	if err := e.post(ctx, "/api/v1/instances/"+instanceID+"/frame", body, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

func (e *RemoteEngine) Play(ctx context.Context, instanceID string) error {
	return e.post(ctx, "/api/v1/instances/"+instanceID+"/play", nil, nil)
}

func (e *RemoteEngine) Pause(ctx context.Context, instanceID string) error {
	return e.post(ctx, "/api/v1/instances/"+instanceID+"/pause", nil, nil)
}

func (e *RemoteEngine) Seek(ctx context.Context, instanceID string, timestampMs int64) error {
	body := map[string]int64{"timestamp_ms": timestampMs}
	return e.post(ctx, "/api/v1/instances/"+instanceID+"/seek", body, nil)
}

type exportRequest struct {
	Project    *project.Project `json:"project"`
	OutputPath string           `json:"output_path"`
}

func (e *RemoteEngine) Export(ctx context.Context, p *project.Project, outputPath string, onProgress func(ExportProgress)) (*ExportResult, error) {
	req, err := e.newRequest(ctx, http.MethodPost, "/api/v1/export", exportRequest{Project: p, OutputPath: outputPath})
	if err != nil {
		return nil, err
	}

	// Exports outlive the default client timeout; ctx governs the stream.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &EngineError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// The export endpoint streams NDJSON progress lines and terminates with
	// a result line.
	var result *ExportResult
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var line struct {
			Progress *ExportProgress `json:"progress,omitempty"`
			Result   *ExportResult   `json:"result,omitempty"`
			Error    string          `json:"error,omitempty"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			e.logger.Warn("unparseable export stream line", "error", err)
			continue
		}
		if line.Error != "" {
			return nil, fmt.Errorf("export failed: %s", line.Error)
		}
		if line.Progress != nil && onProgress != nil {
			onProgress(*line.Progress)
		}
		if line.Result != nil {
			result = line.Result
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("export stream: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("export stream ended without a result")
	}
	return result, nil
}

type autoZoomRequest struct {
	Project *project.Project `json:"project"`
	Config  *AutoZoomConfig  `json:"config,omitempty"`
}

func (e *RemoteEngine) GenerateAutoZoom(ctx context.Context, p *project.Project, cfg *AutoZoomConfig) (*project.Project, error) {
	var out project.Project
	if err := e.post(ctx, "/api/v1/autozoom", autoZoomRequest{Project: p, Config: cfg}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *RemoteEngine) PlaybackEvents() <-chan PlaybackEvent {
	return e.events
}

// Subscribe opens the engine's playback event stream and pumps events into
// the PlaybackEvents channel until ctx is cancelled. It reconnects with a
// short delay after stream errors.
func (e *RemoteEngine) Subscribe(ctx context.Context) {
	for {
		if err := e.streamEvents(ctx); err != nil && ctx.Err() == nil {
			e.logger.Warn("playback event stream dropped, reconnecting", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (e *RemoteEngine) streamEvents(ctx context.Context) error {
	req, err := e.newRequest(ctx, http.MethodGet, "/api/v1/events", nil)
	if err != nil {
		return err
	}

	// No client timeout on the long-lived stream; ctx cancellation ends it.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &EngineError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var ev PlaybackEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			e.logger.Warn("unparseable playback event", "error", err)
			continue
		}
		select {
		case e.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (e *RemoteEngine) post(ctx context.Context, path string, body, out any) error {
	req, err := e.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return e.do(req, out)
}

func (e *RemoteEngine) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	return req, nil
}

func (e *RemoteEngine) do(req *http.Request, out any) error {
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &EngineError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
