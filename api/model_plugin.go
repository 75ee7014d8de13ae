package api

// Environments a plugin can be limited to. EnvAny matches every environment.
const (
	EnvAny     = "any"
	EnvDev     = "dev"
	EnvAdmin   = "admin"
	EnvEdit    = "edit"
	EnvPreview = "preview"
	EnvLive    = "live"
	EnvProd    = "prod"
)

// Plugin is one declarative button or container shown conditionally by
// environment and path. A plugin needs an action: at least one of URL, Event
// or IsContainer. Container plugins host nested plugins that reference them
// via ContainerID.
type Plugin struct {
	ID           string            `json:"id" validate:"required"`
	Title        string            `json:"title,omitempty"`
	URL          string            `json:"url,omitempty" validate:"omitempty,url"`
	Event        string            `json:"event,omitempty"`
	IsContainer  bool              `json:"isContainer,omitempty"`
	ContainerID  string            `json:"containerId,omitempty"`
	Environments []string          `json:"environments,omitempty" validate:"omitempty,dive,oneof=any dev admin edit preview live prod"`
	IncludePaths []string          `json:"includePaths,omitempty"`
	ExcludePaths []string          `json:"excludePaths,omitempty"`
	IsPalette    bool              `json:"isPalette,omitempty"`
	PaletteRect  string            `json:"paletteRect,omitempty"`
	PassConfig   bool              `json:"passConfig,omitempty"`
	PassReferrer bool              `json:"passReferrer,omitempty"`
	TitleI18n    map[string]string `json:"titleI18n,omitempty"`
}

// HasAction reports whether the plugin satisfies the "has an action"
// constraint. Satisfying more than one is permitted, satisfying none is a
// schema violation.
func (p Plugin) HasAction() bool {
	return p.URL != "" || p.Event != "" || p.IsContainer
}

// MatchesEnvironment reports whether the plugin is a candidate in the given
// environment. An empty environment list is equivalent to ["any"].
func (p Plugin) MatchesEnvironment(environment string) bool {
	if len(p.Environments) == 0 {
		return true
	}
	for _, env := range p.Environments {
		if env == EnvAny || env == environment {
			return true
		}
	}
	return false
}
