// Package hooks calls external enrichment endpoints with cleaned transcripts
// and folds their answers (speaker identities, corrected text) back into the
// result.
package hooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cleanscribe/cleanscribe/pkg/events"
	"github.com/cleanscribe/cleanscribe/pkg/urlvalidation"
)

const maxHookResponseBytes = 1 << 20

// Executor posts enrichment requests to configured hook endpoints.
type Executor struct {
	client       *http.Client
	publisher    *events.Publisher
	validateOpts []urlvalidation.Option
}

// NewExecutor creates a new hook executor.
func NewExecutor(publisher *events.Publisher, validateOpts ...urlvalidation.Option) *Executor {
	return &Executor{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		publisher:    publisher,
		validateOpts: validateOpts,
	}
}

// Execute sends the cleaned transcript to the hook endpoint and decodes its
// answer. Failures surface as errors and as error events on the bus.
func (e *Executor) Execute(ctx context.Context, cfg HookConfig, req HookRequest) (*HookResponse, error) {
	if err := urlvalidation.CheckEndpoint(cfg.URL, e.validateOpts...); err != nil {
		return nil, fmt.Errorf("hook URL validation: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := e.buildRequest(ctx, cfg, req)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		e.emitError(ctx, req.RecordingID, err.Error())
		return nil, fmt.Errorf("hook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxHookResponseBytes))
	// Drain remainder for connection reuse.
	io.Copy(io.Discard, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read hook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errMsg := fmt.Sprintf("hook returned HTTP %d: %s", resp.StatusCode, string(respBody))
		e.emitError(ctx, req.RecordingID, errMsg)
		return nil, fmt.Errorf("%s", errMsg)
	}

	var hookResp HookResponse
	if err := json.Unmarshal(respBody, &hookResp); err != nil {
		return nil, fmt.Errorf("unmarshal hook response: %w", err)
	}

	if e.publisher != nil {
		_ = e.publisher.Emit(ctx, events.TranscriptEnriched, req.RecordingID, &events.TranscriptEnrichedData{
			HookURL:    cfg.URL,
			StatusCode: resp.StatusCode,
			Renamed:    len(hookResp.Renames),
		})
	}
	return &hookResp, nil
}

// buildRequest marshals the payload and applies the configured auth scheme
// plus any extra headers.
func (e *Executor) buildRequest(ctx context.Context, cfg HookConfig, req HookRequest) (*http.Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal hook request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create hook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	switch cfg.AuthType {
	case "bearer":
		httpReq.Header.Set("Authorization", "Bearer "+cfg.AuthSecret)
	case "hmac":
		mac := hmac.New(sha256.New, []byte(cfg.AuthSecret))
		mac.Write(body)
		httpReq.Header.Set("X-Hook-Signature", fmt.Sprintf("sha256=%x", mac.Sum(nil)))
	}
	for k, v := range cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func (e *Executor) emitError(ctx context.Context, recordingID, msg string) {
	if e.publisher == nil {
		return
	}
	_ = e.publisher.Emit(ctx, events.SystemError, recordingID, &events.SystemErrorData{
		Stage: "enrich_hook",
		Error: msg,
	})
}
