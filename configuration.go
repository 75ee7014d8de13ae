package sidekick

import (
	"net/http"
	"time"

	"github.com/hlxsites/sidekick-config/engine"
	"github.com/hlxsites/sidekick-config/util"
)

// Options configures a Client. The zero value works; CheckDefaults fills in
// anything left unset.
type Options struct {
	// ShareHost is the only host share URLs are trusted from.
	ShareHost string

	// RequestTimeout bounds each remote config document fetch.
	RequestTimeout time.Duration

	// ConfigPollingInterval is how often redirect-backed configs are
	// re-fetched when polling is started. Zero disables polling.
	ConfigPollingInterval time.Duration

	// RealtimeURI is the SSE endpoint announcing config document changes.
	// Empty disables realtime updates.
	RealtimeURI string

	// DisableRealtimeUpdates keeps the SSE channel closed even when
	// RealtimeURI is set.
	DisableRealtimeUpdates bool

	// Storage backs the repository. Defaults to in-memory storage.
	Storage engine.Storage

	// Logger replaces the module logger.
	Logger util.Logger
}

func (o *Options) CheckDefaults() {
	if o.ShareHost == "" {
		o.ShareHost = engine.DefaultShareHost
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = time.Second * 10
	}
	if o.ConfigPollingInterval != 0 && o.ConfigPollingInterval < time.Second {
		util.Warnf("ConfigPollingInterval cannot be less than 1 second. Defaulting to 1 minute.")
		o.ConfigPollingInterval = time.Minute
	}
	if o.Storage == nil {
		o.Storage = engine.NewMemoryStorage()
	}
}

func (o *Options) httpClient() *http.Client {
	// Set an explicit timeout so that we don't wait forever on a request
	return &http.Client{Timeout: o.RequestTimeout}
}
