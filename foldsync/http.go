// CLAUDE:SUMMARY HTTP Transport implementation — JSON snapshots with Bearer token, 404 mapped to empty.
package foldsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// BaseURL of the relay, e.g. "https://relay.example.com".
	BaseURL string
	// Token is the Bearer token sent with every request. The transport
	// itself does not treat an empty token as an error; the Engine's
	// authorization gate decides whether sync runs at all.
	Token string
	// Timeout for each HTTP call. Default: 30s. A hung call must fail the
	// sync round rather than leave the in-progress indicator up forever.
	Timeout time.Duration
	// UserAgent sent with requests.
	UserAgent string
}

func (c *HTTPConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "repli/1.0"
	}
}

// HTTPTransport exchanges snapshots with the relay over JSON/HTTP.
type HTTPTransport struct {
	client *http.Client
	config HTTPConfig
}

// NewHTTPTransport creates a transport for the relay at cfg.BaseURL.
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	cfg.defaults()
	return &HTTPTransport{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

func (t *HTTPTransport) foldURL(siteKey string) string {
	return t.config.BaseURL + "/api/fold/" + url.PathEscape(siteKey)
}

func (t *HTTPTransport) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.config.UserAgent)
	if t.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.config.Token)
	}
	return t.client.Do(req)
}

// Fetch retrieves the stored snapshot for siteKey. A 404 means the remote
// has nothing stored yet and yields an empty snapshot.
func (t *HTTPTransport) Fetch(ctx context.Context, siteKey string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.foldURL(siteKey), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := t.do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &Snapshot{
			Values:       map[string]int64{},
			LastModified: map[string]int64{},
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	snap := &Snapshot{}
	if err := json.Unmarshal(body, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Push stores the full snapshot for siteKey on the relay.
func (t *HTTPTransport) Push(ctx context.Context, siteKey string, snap *Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.foldURL(siteKey), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.do(req)
	if err != nil {
		return fmt.Errorf("http put: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return nil
}
