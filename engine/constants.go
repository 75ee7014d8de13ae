package engine

// Version of the configuration engine, recorded in export envelopes.
const Version = "1.0.0"

// Storage keys shared with the browser extension surfaces. The key names are
// part of the storage contract and survive across releases, so state written
// by one surface stays readable by all of them.
const (
	KeyConfigs      = "hlxSidekickConfigs"
	KeyPushDown     = "hlxSidekickPushDown"
	KeyDevMode      = "hlxSidekickDevMode"
	KeyBranchName   = "hlxSidekickBranchName"
	KeyAdminVersion = "hlxSidekickAdminVersion"
	KeyHelpContent  = "hlxSidekickHelpContent"

	keyOptionPrefix = "hlxSidekickOption-"
)

// OptionKey returns the storage key holding the collapsed/expanded state of
// one options-page section.
func OptionKey(sectionID string) string {
	return keyOptionPrefix + sectionID
}

const (
	// DefaultRef is assumed when a GitHub URL carries no /tree/<ref> suffix.
	DefaultRef = "main"

	// DefaultShareHost is the only host share URLs are trusted from.
	DefaultShareHost = "www.hlx.live"

	// ShareToolPath is the path prefix of the sidekick tool page on the
	// share host.
	ShareToolPath = "/tools/sidekick/"

	// InnerHostSuffix is appended when synthesizing a preview hostname from
	// an (owner, repo, ref) triple.
	InnerHostSuffix = "hlx.page"

	// ExportName identifies this engine in export envelopes.
	ExportName = "hlx-sidekick"
)
