package sidekick

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matryer/try"
	"github.com/twmb/murmur3"

	"github.com/hlxsites/sidekick-config/api"
	"github.com/hlxsites/sidekick-config/engine"
	"github.com/hlxsites/sidekick-config/util"
)

// RedirectConfigManager resolves redirect-backed configs: it fetches the
// remote config document, validates it, and substitutes it into the stored
// record. Exactly one hop is followed; a remote document carrying its own
// redirect is not chased further, so redirect cycles cannot form.
//
// Fetches honour ETags. For hosts that serve no ETag, a murmur3 fingerprint
// of the document body stands in for change detection.
type RedirectConfigManager struct {
	httpClient *http.Client
	options    *Options

	// source lists the configs to watch when polling; onUpdate fires for
	// each config whose remote document changed.
	source   func(ctx context.Context) ([]api.Config, error)
	onUpdate func(cfg api.Config)

	mu    sync.Mutex
	cache map[string]*remoteDocument

	ticker      *time.Ticker
	pollingStop chan bool
	polling     bool
}

type remoteDocument struct {
	etag        string
	fingerprint uint64
	config      api.Config
}

func newRedirectConfigManager(options *Options) *RedirectConfigManager {
	return &RedirectConfigManager{
		httpClient:  options.httpClient(),
		options:     options,
		cache:       map[string]*remoteDocument{},
		pollingStop: make(chan bool, 2),
	}
}

// Resolve returns cfg with its redirect target applied. Configs without a
// redirect come back unchanged.
func (m *RedirectConfigManager) Resolve(ctx context.Context, cfg api.Config) (api.Config, error) {
	resolved, _, err := m.resolve(ctx, cfg)
	return resolved, err
}

func (m *RedirectConfigManager) resolve(ctx context.Context, cfg api.Config) (api.Config, bool, error) {
	if cfg.Redirect == "" {
		return cfg, false, nil
	}
	remote, changed, err := m.fetchDocument(ctx, cfg.Redirect)
	if err != nil {
		return cfg, false, err
	}
	return mergeRemote(cfg, *remote), changed, nil
}

func (m *RedirectConfigManager) fetchDocument(ctx context.Context, url string) (*api.Config, bool, error) {
	m.mu.Lock()
	cached := m.cache[url]
	m.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("X-Request-Id", uuid.New().String())
	if cached != nil && cached.etag != "" {
		req.Header.Set("If-None-Match", cached.etag)
	}

	var resp *http.Response
	err = try.Do(func(attempt int) (bool, error) {
		var reqErr error
		resp, reqErr = m.httpClient.Do(req)
		if reqErr != nil {
			return attempt < 2, reqErr
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt < 2 {
				util.Warnf("Retrying config fetch. Status: %s", resp.Status)
			}
			return attempt < 2, fmt.Errorf("config document fetch failed: %s", resp.Status)
		}
		return false, nil
	})
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// handled below
	case http.StatusNotModified:
		if cached != nil {
			return &cached.config, false, nil
		}
		return nil, false, fmt.Errorf("unexpected 304 for %s without a cached document", url)
	default:
		return nil, false, fmt.Errorf("unexpected response code %d fetching config document %s", resp.StatusCode, url)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}

	fingerprint := murmur3.Sum64(raw)
	if cached != nil && cached.fingerprint == fingerprint {
		return &cached.config, false, nil
	}

	remote, result := engine.ValidateConfigJSON(raw)
	if !result.Valid {
		return nil, false, fmt.Errorf("config document %s: %w", url, result.Err())
	}
	if remote.Redirect != "" {
		// Single hop only. Dropping the nested pointer also makes a
		// self-referencing document harmless.
		util.Warnf("config document %s redirects again (to %s); ignoring the nested redirect", url, remote.Redirect)
		remote.Redirect = ""
	}

	changed := cached != nil && cached.fingerprint != fingerprint
	m.mu.Lock()
	m.cache[url] = &remoteDocument{
		etag:        resp.Header.Get("Etag"),
		fingerprint: fingerprint,
		config:      remote,
	}
	m.mu.Unlock()
	util.Debugf("config document %s fetched (etag=%q)", url, resp.Header.Get("Etag"))
	return &remote, changed, nil
}

// StartPolling re-fetches every redirect-backed config from source on the
// configured interval and reports changed configs through onUpdate.
func (m *RedirectConfigManager) StartPolling(source func(ctx context.Context) ([]api.Config, error), onUpdate func(cfg api.Config)) {
	if m.options.ConfigPollingInterval == 0 || m.polling {
		return
	}
	m.source = source
	m.onUpdate = onUpdate
	m.polling = true
	m.ticker = time.NewTicker(m.options.ConfigPollingInterval)

	go func() {
		for {
			select {
			case <-m.pollingStop:
				util.Warnf("Stopping config polling.")
				m.ticker.Stop()
				return
			case <-m.ticker.C:
				m.refreshAll(context.Background())
			}
		}
	}()
}

// refreshAll resolves every watched config once, firing onUpdate for each
// changed one. Used by the polling loop and by realtime update events.
func (m *RedirectConfigManager) refreshAll(ctx context.Context) {
	if m.source == nil {
		return
	}
	configs, err := m.source(ctx)
	if err != nil {
		util.Warnf("Error listing configs for refresh: %s", err)
		return
	}
	for _, cfg := range configs {
		if cfg.Redirect == "" {
			continue
		}
		resolved, changed, err := m.resolve(ctx, cfg)
		if err != nil {
			util.Warnf("Error refreshing config %s: %s", cfg.ID(), err)
			continue
		}
		if changed && m.onUpdate != nil {
			m.onUpdate(resolved)
		}
	}
}

func (m *RedirectConfigManager) Close() {
	if m.polling {
		m.pollingStop <- true
		m.polling = false
	}
}

// mergeRemote substitutes a fetched config document into a stored record.
// The remote document wins for everything it sets, except the content
// source identity and the redirect pointer, which always stay local.
func mergeRemote(local api.Config, remote api.Config) api.Config {
	merged := remote
	merged.Owner = local.Owner
	merged.Repo = local.Repo
	merged.Ref = local.Ref
	merged.Redirect = local.Redirect
	if merged.Project == "" {
		merged.Project = local.Project
	}
	if len(merged.Mountpoints) == 0 {
		merged.Mountpoints = local.Mountpoints
	}
	if merged.Host == "" {
		merged.Host = local.Host
	}
	return merged
}
