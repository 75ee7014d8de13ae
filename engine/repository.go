package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hlxsites/sidekick-config/api"
	"github.com/hlxsites/sidekick-config/util"
)

// Repository owns the stored config list and the auxiliary settings. Every
// mutation funnels through it so the ordering and uniqueness invariants are
// enforced in one place instead of being scattered across event handlers.
//
// Each operation is one logical read-modify-write against the external
// store. The store itself has no lock, so a second surface mutating
// concurrently can still race; the repository tolerates that with
// last-write-wins semantics and defensive bounds checks rather than trying
// to prevent it.
type Repository struct {
	storage Storage
	mu      sync.Mutex
}

func NewRepository(storage Storage) *Repository {
	return &Repository{storage: storage}
}

// Configs returns the stored config list. An absent key yields an empty
// list, not an error.
func (r *Repository) Configs(ctx context.Context) ([]api.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadConfigs(ctx)
}

// AddConfig assembles the candidate and appends it to the stored list.
// It returns false without persisting anything when assembly fails or when
// the (owner, repo, ref) triple is already present; the error tells the
// caller which. The session dev-mode flag from the form is persisted to the
// local partition first, so a failed add never leaves the config stored.
func (r *Repository) AddConfig(ctx context.Context, in AssembleInput) (bool, error) {
	cfg, err := Assemble(in)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	configs, err := r.loadConfigs(ctx)
	if err != nil {
		return false, err
	}
	for _, existing := range configs {
		if existing.ID() == cfg.ID() {
			return false, ErrDuplicateConfig
		}
	}
	if err := r.setValue(ctx, PartitionLocal, KeyDevMode, in.DevMode); err != nil {
		return false, err
	}
	if err := r.saveConfigs(ctx, append(configs, cfg)); err != nil {
		return false, err
	}
	return true, nil
}

// EditConfig replaces the config at index with the re-assembled merge of the
// existing record and the edited form fields. Like AddConfig it persists the
// form's dev-mode flag, and writes it before the list.
func (r *Repository) EditConfig(ctx context.Context, index int, in AssembleInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	configs, err := r.loadConfigs(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(configs) {
		return &IndexOutOfRangeError{Index: index, Length: len(configs)}
	}

	merged, err := MergeEdit(configs[index], in)
	if err != nil {
		return err
	}
	for i, existing := range configs {
		if i != index && existing.ID() == merged.ID() {
			return ErrDuplicateConfig
		}
	}
	if err := r.setValue(ctx, PartitionLocal, KeyDevMode, in.DevMode); err != nil {
		return err
	}
	configs[index] = merged
	return r.saveConfigs(ctx, configs)
}

// ReplaceConfig swaps the config at index for an already-validated record,
// e.g. one freshly resolved from its redirect target.
func (r *Repository) ReplaceConfig(ctx context.Context, index int, cfg api.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	configs, err := r.loadConfigs(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(configs) {
		return &IndexOutOfRangeError{Index: index, Length: len(configs)}
	}
	configs[index] = cfg
	return r.saveConfigs(ctx, configs)
}

// DeleteConfig removes the config at index. A stale index, e.g. after a
// concurrent delete from another surface, fails with IndexOutOfRangeError.
func (r *Repository) DeleteConfig(ctx context.Context, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	configs, err := r.loadConfigs(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(configs) {
		return &IndexOutOfRangeError{Index: index, Length: len(configs)}
	}
	configs = append(configs[:index], configs[index+1:]...)
	return r.saveConfigs(ctx, configs)
}

// ClearConfigs wipes the given partition, including the config list and, in
// the sync partition, the auxiliary settings. Irreversible; the caller is
// expected to have obtained explicit user confirmation.
func (r *Repository) ClearConfigs(ctx context.Context, partition Partition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.storage.Clear(ctx, partition); err != nil {
		return &StoreFailure{Op: "clear", Partition: partition, Err: err}
	}
	util.Infof("cleared %s partition", partition)
	return nil
}

// ExportConfigs snapshots the stored list into the export envelope. No
// validation is re-run; already-stored configs are assumed valid.
func (r *Repository) ExportConfigs(ctx context.Context) (api.ExportEnvelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	configs, err := r.loadConfigs(ctx)
	if err != nil {
		return api.ExportEnvelope{}, err
	}
	return api.ExportEnvelope{
		Info: api.ExportInfo{
			Name:    ExportName,
			Version: Version,
			Date:    time.Now().UTC().Format(time.RFC3339),
		},
		Configs: configs,
	}, nil
}

// ImportConfigs parses raw as an export envelope and replaces the stored
// list wholesale. Records are deliberately not re-validated so a prior
// export round-trips verbatim even if the schema has since tightened; a
// stale record simply never matches at resolution time. Malformed JSON
// fails with ImportParseError and nothing is applied.
func (r *Repository) ImportConfigs(ctx context.Context, raw []byte) error {
	var envelope api.ExportEnvelope
	if err := util.Decode(raw, &envelope); err != nil {
		return &ImportParseError{Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	configs := envelope.Configs
	if configs == nil {
		configs = []api.Config{}
	}
	if err := r.saveConfigs(ctx, configs); err != nil {
		return err
	}
	util.Infof("imported %d configs from %s %s backup", len(configs), envelope.Info.Name, envelope.Info.Version)
	return nil
}

// Auxiliary settings. Push-down mode syncs across devices; dev mode, branch
// and admin version overrides are session-scoped and stay on the device.

func (r *Repository) PushDown(ctx context.Context) (bool, error) {
	var pushDown bool
	err := r.getValue(ctx, PartitionSync, KeyPushDown, &pushDown)
	return pushDown, err
}

func (r *Repository) SetPushDown(ctx context.Context, pushDown bool) error {
	return r.setValue(ctx, PartitionSync, KeyPushDown, pushDown)
}

func (r *Repository) DevMode(ctx context.Context) (bool, error) {
	var devMode bool
	err := r.getValue(ctx, PartitionLocal, KeyDevMode, &devMode)
	return devMode, err
}

func (r *Repository) SetDevMode(ctx context.Context, devMode bool) error {
	return r.setValue(ctx, PartitionLocal, KeyDevMode, devMode)
}

func (r *Repository) BranchName(ctx context.Context) (string, error) {
	var branch string
	err := r.getValue(ctx, PartitionLocal, KeyBranchName, &branch)
	return branch, err
}

func (r *Repository) SetBranchName(ctx context.Context, branch string) error {
	return r.setValue(ctx, PartitionLocal, KeyBranchName, branch)
}

func (r *Repository) AdminVersion(ctx context.Context) (string, error) {
	var version string
	err := r.getValue(ctx, PartitionLocal, KeyAdminVersion, &version)
	return version, err
}

func (r *Repository) SetAdminVersion(ctx context.Context, version string) error {
	return r.setValue(ctx, PartitionLocal, KeyAdminVersion, version)
}

// AcknowledgedHelpTopics returns the help topic ids the user has dismissed.
func (r *Repository) AcknowledgedHelpTopics(ctx context.Context) ([]string, error) {
	var topics []string
	if err := r.getValue(ctx, PartitionSync, KeyHelpContent, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// AcknowledgeHelpTopic records a dismissed help topic. Idempotent.
func (r *Repository) AcknowledgeHelpTopic(ctx context.Context, topicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var topics []string
	if err := r.getValue(ctx, PartitionSync, KeyHelpContent, &topics); err != nil {
		return err
	}
	for _, topic := range topics {
		if topic == topicID {
			return nil
		}
	}
	return r.setValue(ctx, PartitionSync, KeyHelpContent, append(topics, topicID))
}

// SectionOption returns the stored UI state of one options-page section.
func (r *Repository) SectionOption(ctx context.Context, sectionID string) (bool, error) {
	var open bool
	err := r.getValue(ctx, PartitionSync, OptionKey(sectionID), &open)
	return open, err
}

func (r *Repository) SetSectionOption(ctx context.Context, sectionID string, open bool) error {
	return r.setValue(ctx, PartitionSync, OptionKey(sectionID), open)
}

func (r *Repository) loadConfigs(ctx context.Context) ([]api.Config, error) {
	raw, err := r.storage.Get(ctx, PartitionSync, KeyConfigs)
	if err != nil {
		return nil, &StoreFailure{Op: "get", Partition: PartitionSync, Key: KeyConfigs, Err: err}
	}
	if raw == nil {
		return []api.Config{}, nil
	}
	var configs []api.Config
	if err := util.Decode(raw, &configs); err != nil {
		return nil, &StoreFailure{Op: "get", Partition: PartitionSync, Key: KeyConfigs, Err: err}
	}
	return configs, nil
}

func (r *Repository) saveConfigs(ctx context.Context, configs []api.Config) error {
	raw, err := json.Marshal(configs)
	if err != nil {
		return err
	}
	if err := r.storage.Set(ctx, PartitionSync, KeyConfigs, raw); err != nil {
		return &StoreFailure{Op: "set", Partition: PartitionSync, Key: KeyConfigs, Err: err}
	}
	return nil
}

func (r *Repository) getValue(ctx context.Context, partition Partition, key string, v interface{}) error {
	raw, err := r.storage.Get(ctx, partition, key)
	if err != nil {
		return &StoreFailure{Op: "get", Partition: partition, Key: key, Err: err}
	}
	if raw == nil {
		return nil
	}
	if err := util.Decode(raw, v); err != nil {
		return &StoreFailure{Op: "get", Partition: partition, Key: key, Err: err}
	}
	return nil
}

func (r *Repository) setValue(ctx context.Context, partition Partition, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := r.storage.Set(ctx, partition, key, raw); err != nil {
		return &StoreFailure{Op: "set", Partition: partition, Key: key, Err: err}
	}
	return nil
}
