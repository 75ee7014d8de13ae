package engine

import (
	"fmt"
	"strings"

	"github.com/hlxsites/sidekick-config/api"
)

// AssembleInput is the manual entry form: a GitHub URL plus user-entered
// fields. DevMode is a session-scoped flag stored next to, not inside, the
// persisted config.
type AssembleInput struct {
	GitURL      string
	Project     string
	Mountpoints []string
	Host        string
	DevMode     bool
}

// Assemble combines the parsed GitHub URL, user-entered fields and defaults
// into one canonical config record. Mountpoints default to ["/"], absent
// arrays become empty sequences, and the draft is schema validated before
// being returned. Invalid input fails with ErrInvalidGitURL or a
// SchemaViolationError; nothing is silently dropped or coerced.
func Assemble(in AssembleInput) (api.Config, error) {
	gh := ParseGitHubURL(in.GitURL)
	if gh == nil {
		return api.Config{}, fmt.Errorf("%w: %q", ErrInvalidGitURL, in.GitURL)
	}

	mountpoints := make([]string, 0, len(in.Mountpoints))
	for _, mountpoint := range in.Mountpoints {
		if trimmed := strings.TrimSpace(mountpoint); trimmed != "" {
			mountpoints = append(mountpoints, trimmed)
		}
	}
	if len(mountpoints) == 0 {
		mountpoints = []string{"/"}
	}

	cfg := api.Config{
		Owner:       gh.Owner,
		Repo:        gh.Repo,
		Ref:         gh.Ref,
		Project:     strings.TrimSpace(in.Project),
		Mountpoints: mountpoints,
		Host:        strings.TrimSpace(in.Host),
		Plugins:     []api.Plugin{},
	}

	if err := ValidateConfig(&cfg).Err(); err != nil {
		return api.Config{}, err
	}
	return cfg, nil
}

func hasMountpoints(mountpoints []string) bool {
	for _, mountpoint := range mountpoints {
		if strings.TrimSpace(mountpoint) != "" {
			return true
		}
	}
	return false
}

// AssembleShare assembles a config from a parsed share URL. The embedded
// GitHub URL goes through the same validation as manual entry.
func AssembleShare(share *ShareURL) (api.Config, error) {
	if share == nil {
		return api.Config{}, ErrInvalidShareURL
	}
	return Assemble(AssembleInput{
		GitURL:  share.GitURL,
		Project: share.Project,
	})
}

// MergeEdit re-runs assembly over an existing config with edited form
// fields. Fields the edit form does not expose survive the edit: plugins
// fetched from a prior redirect resolution, hosts computed remotely, layout
// hints and the redirect pointer are carried over from the existing record.
func MergeEdit(existing api.Config, edited AssembleInput) (api.Config, error) {
	cfg, err := Assemble(edited)
	if err != nil {
		return api.Config{}, err
	}

	// An edit form with no mountpoints keeps the existing ones instead of
	// falling back to the ["/"] default an add would get.
	if !hasMountpoints(edited.Mountpoints) && len(existing.Mountpoints) > 0 {
		cfg.Mountpoints = existing.Mountpoints
	}

	cfg.Plugins = existing.Plugins
	cfg.PreviewHost = existing.PreviewHost
	cfg.LiveHost = existing.LiveHost
	cfg.PushDown = existing.PushDown
	cfg.PushDownSelector = existing.PushDownSelector
	cfg.Redirect = existing.Redirect

	if err := ValidateConfig(&cfg).Err(); err != nil {
		return api.Config{}, err
	}
	return cfg, nil
}
