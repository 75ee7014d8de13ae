package api

import "reflect"

// Config is one project's sidekick settings: a GitHub-backed content source
// plus the hosts, mountpoints and plugins resolved for it. The JSON shape is
// the wire format for remote config documents and for export/import backups.
//
// Host fields are validated in their ASCII form. Internationalized hostnames
// must be supplied as punycode (xn--), the way they appear in URLs on the
// wire; raw Unicode labels are rejected.
type Config struct {
	Owner            string   `json:"owner,omitempty"`
	Repo             string   `json:"repo,omitempty"`
	Ref              string   `json:"ref,omitempty"`
	Project          string   `json:"project,omitempty"`
	Mountpoints      []string `json:"mountpoints"`
	Host             string   `json:"host,omitempty" validate:"omitempty,hostname_rfc1123"`
	PreviewHost      string   `json:"previewHost,omitempty" validate:"omitempty,hostname_rfc1123"`
	LiveHost         string   `json:"liveHost,omitempty" validate:"omitempty,hostname_rfc1123"`
	PushDown         bool     `json:"pushDown,omitempty"`
	PushDownSelector string   `json:"pushDownSelector,omitempty"`
	Plugins          []Plugin `json:"plugins,omitempty" validate:"omitempty,dive"`
	Redirect         string   `json:"redirect,omitempty" validate:"omitempty,url"`
}

// ID returns the identity of the config's content source. Two configs with
// the same ID point at the same (owner, repo, ref) triple and may not
// coexist in a stored config list.
func (c Config) ID() string {
	return c.Owner + "/" + c.Repo + "/" + c.Ref
}

func (c Config) Equals(c2 Config) bool {
	return reflect.DeepEqual(c, c2)
}
