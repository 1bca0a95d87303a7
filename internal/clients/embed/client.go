package embed

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/yungbote/socialreel-backend/internal/pkg/httpx"
	"github.com/yungbote/socialreel-backend/internal/platform/envutil"
	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

// Client talks to the vision-embedding sidecar: one JPEG frame in, one
// fixed-length feature vector out. Deterministic for a given frame and
// model version.
type Client interface {
	EmbedFrame(ctx context.Context, frameJPEG []byte) ([]float32, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("EMBED_SERVICE_URL"))
	if baseURL == "" {
		return nil, fmt.Errorf("missing EMBED_SERVICE_URL")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeoutSec := envutil.Int("EMBED_TIMEOUT_SECONDS", 60)
	if timeoutSec <= 0 {
		timeoutSec = 60
	}
	maxRetries := envutil.Int("EMBED_MAX_RETRIES", 3)
	if maxRetries < 0 {
		maxRetries = 3
	}

	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	return &client{
		log:        log.With("service", "EmbedClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type embedHTTPError struct {
	StatusCode int
	Body       string
}

func (e *embedHTTPError) Error() string {
	return fmt.Sprintf("embed http %d: %s", e.StatusCode, e.Body)
}

func (e *embedHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) EmbedFrame(ctx context.Context, frameJPEG []byte) ([]float32, error) {
	if len(frameJPEG) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	payload := map[string]any{
		"image_b64": base64.StdEncoding.EncodeToString(frameJPEG),
	}

	var out struct {
		Vector []float32 `json:"vector"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/embed", payload, &out); err != nil {
		return nil, err
	}
	if len(out.Vector) == 0 {
		return nil, fmt.Errorf("embed service returned empty vector")
	}
	return out.Vector, nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &embedHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			return json.Unmarshal(raw, out)
		}
		lastErr = err

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			break
		}
		sleepFor := httpx.RetryAfterDuration(resp, backoff, 30*time.Second)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(httpx.JitterSleep(sleepFor)):
		}
		backoff *= 2
	}
	return lastErr
}
