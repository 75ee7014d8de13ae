package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlxsites/sidekick-config/api"
)

func newTestRepository() *Repository {
	return NewRepository(NewMemoryStorage())
}

func TestRepository_AddConfig(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	added, err := repo.AddConfig(ctx, AssembleInput{
		GitURL:  "https://github.com/acme/site",
		Project: "Acme",
	})
	require.NoError(t, err)
	require.True(t, added)

	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, "acme/site/main", configs[0].ID())
}

func TestRepository_AddConfig_duplicateRejected(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	in := AssembleInput{GitURL: "https://github.com/acme/site", Project: "Acme"}
	added, err := repo.AddConfig(ctx, in)
	require.NoError(t, err)
	require.True(t, added)

	// Same triple, different display name: rejected, list unchanged.
	in.Project = "Acme Again"
	added, err = repo.AddConfig(ctx, in)
	require.ErrorIs(t, err, ErrDuplicateConfig)
	require.False(t, added)

	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, "Acme", configs[0].Project)

	// A different ref is a different triple.
	added, err = repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/site/tree/develop"})
	require.NoError(t, err)
	require.True(t, added)
}

func TestRepository_AddConfig_invalidInput(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	added, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://example.com/a/b"})
	require.ErrorIs(t, err, ErrInvalidGitURL)
	require.False(t, added)

	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Empty(t, configs)
}

func TestRepository_AddConfig_persistsDevMode(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.AddConfig(ctx, AssembleInput{
		GitURL:  "https://github.com/acme/site",
		DevMode: true,
	})
	require.NoError(t, err)

	devMode, err := repo.DevMode(ctx)
	require.NoError(t, err)
	require.True(t, devMode)
}

func TestRepository_AddConfig_devModeFailureLeavesNothing(t *testing.T) {
	ctx := context.Background()
	storage := &keyFailingStorage{MemoryStorage: NewMemoryStorage(), failKey: KeyDevMode}
	repo := NewRepository(storage)

	added, err := repo.AddConfig(ctx, AssembleInput{
		GitURL:  "https://github.com/acme/site",
		DevMode: true,
	})
	require.False(t, added)
	var storeFailure *StoreFailure
	require.True(t, errors.As(err, &storeFailure))

	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Empty(t, configs)

	// Nothing was stored, so a retry must not be rejected as a duplicate.
	storage.failKey = ""
	added, err = repo.AddConfig(ctx, AssembleInput{
		GitURL:  "https://github.com/acme/site",
		DevMode: true,
	})
	require.NoError(t, err)
	require.True(t, added)
}

func TestRepository_EditConfig(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/site", Project: "Acme"})
	require.NoError(t, err)

	err = repo.EditConfig(ctx, 0, AssembleInput{
		GitURL:  "https://github.com/acme/site/tree/develop",
		Project: "Acme Dev",
	})
	require.NoError(t, err)

	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Equal(t, "acme/site/develop", configs[0].ID())
	require.Equal(t, "Acme Dev", configs[0].Project)

	err = repo.EditConfig(ctx, 5, AssembleInput{GitURL: "https://github.com/acme/site"})
	var outOfRange *IndexOutOfRangeError
	require.True(t, errors.As(err, &outOfRange))
}

func TestRepository_EditConfig_persistsDevMode(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/site"})
	require.NoError(t, err)

	err = repo.EditConfig(ctx, 0, AssembleInput{
		GitURL:  "https://github.com/acme/site",
		DevMode: true,
	})
	require.NoError(t, err)

	devMode, err := repo.DevMode(ctx)
	require.NoError(t, err)
	require.True(t, devMode)
}

func TestRepository_EditConfig_duplicateTriple(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/site"})
	require.NoError(t, err)
	_, err = repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/docs"})
	require.NoError(t, err)

	err = repo.EditConfig(ctx, 1, AssembleInput{GitURL: "https://github.com/acme/site"})
	require.ErrorIs(t, err, ErrDuplicateConfig)
}

func TestRepository_DeleteConfig(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/site"})
	require.NoError(t, err)
	_, err = repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/docs"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteConfig(ctx, 0))

	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, "docs", configs[0].Repo)

	// Stale index after the concurrent shrink.
	err = repo.DeleteConfig(ctx, 1)
	var outOfRange *IndexOutOfRangeError
	require.True(t, errors.As(err, &outOfRange))
	require.Equal(t, 1, outOfRange.Index)
	require.Equal(t, 1, outOfRange.Length)
}

func TestRepository_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/site", Project: "Acme"})
	require.NoError(t, err)
	_, err = repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/megacorp/www/tree/develop"})
	require.NoError(t, err)

	envelope, err := repo.ExportConfigs(ctx)
	require.NoError(t, err)
	require.Equal(t, ExportName, envelope.Info.Name)
	require.Equal(t, Version, envelope.Info.Version)
	require.NotEmpty(t, envelope.Info.Date)
	require.Len(t, envelope.Configs, 2)

	raw, err := json.Marshal(envelope)
	require.NoError(t, err)

	other := newTestRepository()
	require.NoError(t, other.ImportConfigs(ctx, raw))

	restored, err := other.Configs(ctx)
	require.NoError(t, err)
	require.Equal(t, envelope.Configs, restored)
}

func TestRepository_ImportConfigs_replacesList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/old/gone"})
	require.NoError(t, err)

	raw := []byte(`{"info":{"name":"hlx-sidekick","version":"0.9.0","date":"2021-05-01T00:00:00Z"},"configs":[{"owner":"acme","repo":"site","ref":"main","mountpoints":["/"]}]}`)
	require.NoError(t, repo.ImportConfigs(ctx, raw))

	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, "acme/site/main", configs[0].ID())
}

func TestRepository_ImportConfigs_noRevalidation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	// A hand-edited backup with a record the schema would reject today is
	// still imported verbatim; the record just never resolves anything.
	raw := []byte(`{"info":{"name":"hlx-sidekick","version":"0.1.0","date":""},"configs":[{"owner":"acme","repo":"site","ref":"main","mountpoints":["/"],"plugins":[{"id":"broken"}]}]}`)
	require.NoError(t, repo.ImportConfigs(ctx, raw))

	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Empty(t, ResolvePlugins(configs[0].Plugins, api.EnvPreview, "/"))
}

func TestRepository_ImportConfigs_malformed(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/site"})
	require.NoError(t, err)

	err = repo.ImportConfigs(ctx, []byte(`{"info":`))
	var parseErr *ImportParseError
	require.True(t, errors.As(err, &parseErr))

	// Nothing was applied.
	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
}

func TestRepository_ClearConfigs(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	_, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/site"})
	require.NoError(t, err)
	require.NoError(t, repo.SetPushDown(ctx, true))
	require.NoError(t, repo.SetDevMode(ctx, true))

	require.NoError(t, repo.ClearConfigs(ctx, PartitionSync))

	configs, err := repo.Configs(ctx)
	require.NoError(t, err)
	require.Empty(t, configs)

	pushDown, err := repo.PushDown(ctx)
	require.NoError(t, err)
	require.False(t, pushDown)

	// Local partition untouched.
	devMode, err := repo.DevMode(ctx)
	require.NoError(t, err)
	require.True(t, devMode)
}

func TestRepository_auxiliarySettings(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	branch, err := repo.BranchName(ctx)
	require.NoError(t, err)
	require.Empty(t, branch)

	require.NoError(t, repo.SetBranchName(ctx, "feature/new-nav"))
	branch, err = repo.BranchName(ctx)
	require.NoError(t, err)
	require.Equal(t, "feature/new-nav", branch)

	require.NoError(t, repo.SetAdminVersion(ctx, "5.1.2"))
	version, err := repo.AdminVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, "5.1.2", version)

	require.NoError(t, repo.SetSectionOption(ctx, "advanced", true))
	open, err := repo.SectionOption(ctx, "advanced")
	require.NoError(t, err)
	require.True(t, open)
}

func TestRepository_helpTopics(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository()

	topics, err := repo.AcknowledgedHelpTopics(ctx)
	require.NoError(t, err)
	require.Empty(t, topics)

	require.NoError(t, repo.AcknowledgeHelpTopic(ctx, "v5-release"))
	require.NoError(t, repo.AcknowledgeHelpTopic(ctx, "v5-release"))
	require.NoError(t, repo.AcknowledgeHelpTopic(ctx, "palette-intro"))

	topics, err = repo.AcknowledgedHelpTopics(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"v5-release", "palette-intro"}, topics)
}

type failingStorage struct {
	*MemoryStorage
	failSet bool
}

func (s *failingStorage) Set(ctx context.Context, partition Partition, key string, value []byte) error {
	if s.failSet {
		return errors.New("disk full")
	}
	return s.MemoryStorage.Set(ctx, partition, key, value)
}

type keyFailingStorage struct {
	*MemoryStorage
	failKey string
}

func (s *keyFailingStorage) Set(ctx context.Context, partition Partition, key string, value []byte) error {
	if s.failKey != "" && key == s.failKey {
		return errors.New("disk full")
	}
	return s.MemoryStorage.Set(ctx, partition, key, value)
}

func TestRepository_storeFailurePropagated(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{MemoryStorage: NewMemoryStorage(), failSet: true}
	repo := NewRepository(storage)

	added, err := repo.AddConfig(ctx, AssembleInput{GitURL: "https://github.com/acme/site"})
	require.False(t, added)
	var storeFailure *StoreFailure
	require.True(t, errors.As(err, &storeFailure))
	require.Equal(t, "set", storeFailure.Op)
}
