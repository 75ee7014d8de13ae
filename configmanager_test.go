package sidekick

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/hlxsites/sidekick-config/api"
	"github.com/hlxsites/sidekick-config/engine"
)

const testRedirectURL = "https://www.acme.com/tools/sidekick/config.json"

const testRemoteDocument = `{
	"project": "Acme Production",
	"host": "www.acme.com",
	"previewHost": "preview.acme.com",
	"mountpoints": ["https://drive.google.com/drive/folders/x"],
	"plugins": [
		{"id": "assets", "url": "https://assets.acme.com/picker", "isPalette": true, "environments": ["edit"]},
		{"id": "publish", "event": "publish", "excludePaths": ["/drafts/**"]}
	]
}`

func testRedirectConfig() api.Config {
	return api.Config{
		Owner:       "acme",
		Repo:        "site",
		Ref:         "main",
		Project:     "Acme",
		Mountpoints: []string{"/"},
		Redirect:    testRedirectURL,
	}
}

func newTestConfigManager() *RedirectConfigManager {
	options := &Options{}
	options.CheckDefaults()
	return newRedirectConfigManager(options)
}

func TestRedirectConfigManager_Resolve_success(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testRedirectURL,
		func(req *http.Request) (*http.Response, error) {
			require.NotEmpty(t, req.Header.Get("X-Request-Id"))
			resp := httpmock.NewStringResponse(200, testRemoteDocument)
			resp.Header.Set("Etag", "TESTING")
			return resp, nil
		},
	)

	manager := newTestConfigManager()
	resolved, err := manager.Resolve(context.Background(), testRedirectConfig())
	require.NoError(t, err)

	// Identity and the redirect pointer stay local, the rest is remote.
	require.Equal(t, "acme", resolved.Owner)
	require.Equal(t, "site", resolved.Repo)
	require.Equal(t, "main", resolved.Ref)
	require.Equal(t, testRedirectURL, resolved.Redirect)
	require.Equal(t, "Acme Production", resolved.Project)
	require.Equal(t, "www.acme.com", resolved.Host)
	require.Equal(t, "preview.acme.com", resolved.PreviewHost)
	require.Len(t, resolved.Plugins, 2)
}

func TestRedirectConfigManager_Resolve_noRedirect(t *testing.T) {
	manager := newTestConfigManager()
	cfg := api.Config{Owner: "acme", Repo: "site", Ref: "main"}
	resolved, err := manager.Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, cfg, resolved)
}

func TestRedirectConfigManager_Resolve_notModifiedUsesCache(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testRedirectURL,
		func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("If-None-Match") == "TESTING" {
				return httpmock.NewStringResponse(304, ""), nil
			}
			resp := httpmock.NewStringResponse(200, testRemoteDocument)
			resp.Header.Set("Etag", "TESTING")
			return resp, nil
		},
	)

	manager := newTestConfigManager()
	first, err := manager.Resolve(context.Background(), testRedirectConfig())
	require.NoError(t, err)
	second, err := manager.Resolve(context.Background(), testRedirectConfig())
	require.NoError(t, err)
	require.True(t, first.Equals(second))
	require.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestRedirectConfigManager_Resolve_retries500(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder("GET", testRedirectURL,
		func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return httpmock.NewStringResponse(500, "Internal Server Error"), nil
			}
			return httpmock.NewStringResponse(200, testRemoteDocument), nil
		},
	)

	manager := newTestConfigManager()
	resolved, err := manager.Resolve(context.Background(), testRedirectConfig())
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Len(t, resolved.Plugins, 2)
}

func TestRedirectConfigManager_Resolve_persistent500(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testRedirectURL,
		httpmock.NewStringResponder(500, "Internal Server Error"))

	manager := newTestConfigManager()
	_, err := manager.Resolve(context.Background(), testRedirectConfig())
	require.Error(t, err)
	require.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestRedirectConfigManager_Resolve_invalidDocument(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testRedirectURL,
		httpmock.NewStringResponder(200, `{"plugins":[{"id":"broken"}]}`))

	manager := newTestConfigManager()
	_, err := manager.Resolve(context.Background(), testRedirectConfig())
	var violation *engine.SchemaViolationError
	require.True(t, errors.As(err, &violation))
}

func TestRedirectConfigManager_Resolve_nestedRedirectIgnored(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testRedirectURL,
		httpmock.NewStringResponder(200, `{"mountpoints":["/"],"redirect":"`+testRedirectURL+`"}`))

	manager := newTestConfigManager()
	resolved, err := manager.Resolve(context.Background(), testRedirectConfig())
	require.NoError(t, err)
	// One hop only: the stored pointer survives, the nested one is dropped,
	// and no second fetch happened.
	require.Equal(t, testRedirectURL, resolved.Redirect)
	require.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestRedirectConfigManager_refreshAll_firesOnChange(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	document := `{"mountpoints":["/"],"project":"Version One"}`
	httpmock.RegisterResponder("GET", testRedirectURL,
		func(req *http.Request) (*http.Response, error) {
			return httpmock.NewStringResponse(200, document), nil
		},
	)

	manager := newTestConfigManager()
	var updates []api.Config
	manager.source = func(ctx context.Context) ([]api.Config, error) {
		return []api.Config{testRedirectConfig()}, nil
	}
	manager.onUpdate = func(cfg api.Config) {
		updates = append(updates, cfg)
	}

	// First refresh primes the cache, no update fires.
	manager.refreshAll(context.Background())
	require.Empty(t, updates)

	// Unchanged document: fingerprint matches, still no update.
	manager.refreshAll(context.Background())
	require.Empty(t, updates)

	document = `{"mountpoints":["/"],"project":"Version Two"}`
	manager.refreshAll(context.Background())
	require.Len(t, updates, 1)
	require.Equal(t, "Version Two", updates[0].Project)
}

func TestMergeRemote_localFallbacks(t *testing.T) {
	local := testRedirectConfig()
	merged := mergeRemote(local, api.Config{})
	require.Equal(t, "Acme", merged.Project)
	require.Equal(t, []string{"/"}, merged.Mountpoints)
	require.Equal(t, local.Redirect, merged.Redirect)
}
