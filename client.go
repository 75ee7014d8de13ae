package sidekick

import (
	"context"
	"fmt"

	"github.com/hlxsites/sidekick-config/api"
	"github.com/hlxsites/sidekick-config/engine"
	"github.com/hlxsites/sidekick-config/util"
)

// Client is the single entry point an embedding host needs: it owns the
// config repository, the redirect resolver and the optional realtime
// channel. In most cases there should be only one, shared, Client.
type Client struct {
	options       *Options
	repository    *engine.Repository
	configManager *RedirectConfigManager
	sseManager    *SSEManager
}

// NewClient wires up a client. A nil options uses defaults everywhere.
func NewClient(options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	options.CheckDefaults()
	if options.Logger != nil {
		util.SetLogger(options.Logger)
	}

	c := &Client{
		options:       options,
		repository:    engine.NewRepository(options.Storage),
		configManager: newRedirectConfigManager(options),
	}

	sseManager, err := newSSEManager(c.configManager, options)
	if err != nil {
		return nil, err
	}
	c.sseManager = sseManager

	if options.ConfigPollingInterval > 0 {
		c.configManager.StartPolling(c.repository.Configs, c.storeResolved)
	}
	if err := c.sseManager.Start(); err != nil {
		util.Warnf("Realtime updates unavailable: %s", err)
	}
	return c, nil
}

// Repository exposes the config store adapter for hosts that need the full
// operation surface.
func (c *Client) Repository() *engine.Repository {
	return c.repository
}

// Configs returns the stored config list.
func (c *Client) Configs(ctx context.Context) ([]api.Config, error) {
	return c.repository.Configs(ctx)
}

// AddConfig assembles and stores a manually entered config. It returns
// false when the input is invalid or the config already exists; the error
// carries the reason for user-facing messaging.
func (c *Client) AddConfig(ctx context.Context, in engine.AssembleInput) (bool, error) {
	return c.repository.AddConfig(ctx, in)
}

// AddFromShareURL stores the config encoded in a share link.
func (c *Client) AddFromShareURL(ctx context.Context, rawURL string) (bool, error) {
	share := engine.ParseShareURL(rawURL, c.options.ShareHost)
	if share == nil {
		return false, fmt.Errorf("%w: %q", engine.ErrInvalidShareURL, rawURL)
	}
	return c.repository.AddConfig(ctx, engine.AssembleInput{
		GitURL:  share.GitURL,
		Project: share.Project,
	})
}

// EditConfig re-assembles the config at index over the edited form fields.
func (c *Client) EditConfig(ctx context.Context, index int, in engine.AssembleInput) error {
	return c.repository.EditConfig(ctx, index, in)
}

// DeleteConfig removes the config at index.
func (c *Client) DeleteConfig(ctx context.Context, index int) error {
	return c.repository.DeleteConfig(ctx, index)
}

// ClearConfigs irreversibly wipes a storage partition. Callers are expected
// to have confirmed with the user first.
func (c *Client) ClearConfigs(ctx context.Context, partition engine.Partition) error {
	return c.repository.ClearConfigs(ctx, partition)
}

// ExportConfigs snapshots the stored list into an export envelope.
func (c *Client) ExportConfigs(ctx context.Context) (api.ExportEnvelope, error) {
	return c.repository.ExportConfigs(ctx)
}

// ImportConfigs replaces the stored list with a previously exported backup.
func (c *Client) ImportConfigs(ctx context.Context, raw []byte) error {
	return c.repository.ImportConfigs(ctx, raw)
}

// ResolveConfig applies the config's redirect target, if any.
func (c *Client) ResolveConfig(ctx context.Context, cfg api.Config) (api.Config, error) {
	return c.configManager.Resolve(ctx, cfg)
}

// ResolvePlugins resolves a config (following its redirect) and computes the
// ordered, filtered plugin set for the given environment and path.
func (c *Client) ResolvePlugins(ctx context.Context, cfg api.Config, environment string, path string) ([]engine.ResolvedPlugin, error) {
	resolved, err := c.configManager.Resolve(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return engine.ResolvePlugins(resolved.Plugins, environment, path), nil
}

// storeResolved persists a freshly resolved redirect config back into the
// stored list so later surfaces see the updated plugins.
func (c *Client) storeResolved(cfg api.Config) {
	ctx := context.Background()
	configs, err := c.repository.Configs(ctx)
	if err != nil {
		util.Warnf("Error loading configs after remote update: %s", err)
		return
	}
	for i, existing := range configs {
		if existing.ID() == cfg.ID() {
			if err := c.repository.ReplaceConfig(ctx, i, cfg); err != nil {
				util.Warnf("Error storing updated config %s: %s", cfg.ID(), err)
			}
			return
		}
	}
}

// Close stops polling and the realtime channel.
func (c *Client) Close() {
	c.configManager.Close()
	c.sseManager.Close()
}
