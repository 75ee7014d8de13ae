package api

// ExportInfo describes the tool that produced a backup.
type ExportInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Date    string `json:"date"`
}

// ExportEnvelope is the import/export file format: a snapshot of the stored
// config list plus provenance. Importing an envelope replaces the stored
// list wholesale.
type ExportEnvelope struct {
	Info    ExportInfo `json:"info"`
	Configs []Config   `json:"configs"`
}
