package sidekick

import (
	"github.com/hlxsites/sidekick-config/api"
	"github.com/hlxsites/sidekick-config/engine"
	"github.com/hlxsites/sidekick-config/util"
)

type Config = api.Config
type Plugin = api.Plugin
type ExportEnvelope = api.ExportEnvelope
type ExportInfo = api.ExportInfo

type AssembleInput = engine.AssembleInput
type FieldError = engine.FieldError
type GitHubURL = engine.GitHubURL
type Partition = engine.Partition
type Repository = engine.Repository
type ResolvedPlugin = engine.ResolvedPlugin
type SchemaViolationError = engine.SchemaViolationError
type ShareURL = engine.ShareURL
type Storage = engine.Storage
type ValidationResult = engine.ValidationResult

type Logger = util.Logger
type DiscardLogger = util.DiscardLogger

const (
	PartitionSync  = engine.PartitionSync
	PartitionLocal = engine.PartitionLocal
)

var (
	ErrInvalidGitURL   = engine.ErrInvalidGitURL
	ErrInvalidShareURL = engine.ErrInvalidShareURL
	ErrDuplicateConfig = engine.ErrDuplicateConfig
)

func SetLogger(log Logger) { util.SetLogger(log) }
