package rules

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GentleMercenary/ofnotify/internal/observability"
)

const maxDocumentSize = 1 << 20

// Provider fetches the rule document over HTTP. When a snapshot path is
// configured it issues conditional GETs against the snapshot's mtime and
// falls back to the snapshot if the remote fetch fails but the snapshot
// still parses.
type Provider struct {
	client       *http.Client
	url          string
	snapshotPath string
}

type ProviderOption func(*Provider)

// WithSnapshot persists each fetched document to path and enables the
// conditional-GET / local-fallback behavior.
func WithSnapshot(path string) ProviderOption {
	return func(p *Provider) {
		p.snapshotPath = strings.TrimSpace(path)
	}
}

func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.client = client
	}
}

func NewProvider(url string, opts ...ProviderOption) (*Provider, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rules: provider url required")
	}
	p := &Provider{
		client: &http.Client{Timeout: 30 * time.Second},
		url:    url,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Fetch retrieves the current rule document.
func (p *Provider) Fetch(ctx context.Context) (Rules, error) {
	local, localModified, haveLocal := p.readSnapshot()

	remote, err := p.fetchRemote(ctx, localModified, haveLocal)
	if err == nil {
		observability.RecordRuleFetch("ok")
		return remote, nil
	}
	if haveLocal {
		if err == errNotModified {
			log.Debug().Msg("rules: remote not modified, snapshot current")
			observability.RecordRuleFetch("not_modified")
		} else {
			log.Warn().Err(err).Msg("rules: remote fetch failed, using local snapshot")
			observability.RecordRuleFetch("fallback")
		}
		return local, nil
	}
	observability.RecordRuleFetch("error")
	return Rules{}, err
}

func (p *Provider) fetchRemote(ctx context.Context, localModified time.Time, haveLocal bool) (Rules, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Rules{}, fmt.Errorf("rules: build request: %w", err)
	}
	if haveLocal && !localModified.IsZero() {
		req.Header.Set("If-Modified-Since", localModified.UTC().Format(http.TimeFormat))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Rules{}, fmt.Errorf("rules: fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if haveLocal && resp.StatusCode == http.StatusNotModified {
		return Rules{}, errNotModified
	}
	if resp.StatusCode != http.StatusOK {
		return Rules{}, fmt.Errorf("rules: fetch failed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return Rules{}, fmt.Errorf("rules: read body: %w", err)
	}
	parsed, err := Parse(body)
	if err != nil {
		return Rules{}, err
	}

	p.writeSnapshot(body, resp.Header.Get("Last-Modified"))
	return parsed, nil
}

// errNotModified is internal to the provider: a 304 means the local
// snapshot is still current, so Fetch resolves it via the fallback path.
var errNotModified = fmt.Errorf("rules: remote not modified")

func (p *Provider) readSnapshot() (Rules, time.Time, bool) {
	if p.snapshotPath == "" {
		return Rules{}, time.Time{}, false
	}
	data, err := os.ReadFile(p.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", p.snapshotPath).Msg("rules: snapshot unreadable")
		}
		return Rules{}, time.Time{}, false
	}
	parsed, err := Parse(data)
	if err != nil {
		log.Warn().Err(err).Str("path", p.snapshotPath).Msg("rules: snapshot unparseable")
		return Rules{}, time.Time{}, false
	}
	var modified time.Time
	if info, err := os.Stat(p.snapshotPath); err == nil {
		modified = info.ModTime()
	}
	return parsed, modified, true
}

func (p *Provider) writeSnapshot(body []byte, lastModified string) {
	if p.snapshotPath == "" {
		return
	}
	if err := os.WriteFile(p.snapshotPath, body, 0o644); err != nil {
		log.Warn().Err(err).Str("path", p.snapshotPath).Msg("rules: snapshot write failed")
		return
	}
	if lastModified == "" {
		return
	}
	if t, err := http.ParseTime(lastModified); err == nil {
		_ = os.Chtimes(p.snapshotPath, t, t)
	}
}
