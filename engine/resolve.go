package engine

import "github.com/hlxsites/sidekick-config/api"

// ResolvedPlugin is one visible plugin. Children holds the plugins nested
// under a container that survived filtering.
type ResolvedPlugin struct {
	api.Plugin
	Children []api.Plugin
}

// ResolvePlugins computes the ordered, filtered set of plugins to display
// for the active environment and current path. Declared order is preserved;
// there is no sorting.
//
// Per plugin:
//  1. Environment filter: candidate iff "any" is in environments or the
//     active environment is.
//  2. Path filter: a non-empty includePaths list is authoritative — the
//     plugin shows only when the path matches an include pattern, and
//     excludePaths is ignored entirely. With no includePaths the plugin
//     shows unless the path matches an exclude pattern.
//  3. Containers are filtered like any other plugin. A child whose container
//     is missing or was filtered out surfaces top-level, at its declared
//     position.
func ResolvePlugins(plugins []api.Plugin, environment string, path string) []ResolvedPlugin {
	path = normalizePath(path)

	var survivors []api.Plugin
	containerIDs := make(map[string]bool)
	for _, plugin := range plugins {
		if !plugin.MatchesEnvironment(environment) {
			continue
		}
		if !pathVisible(plugin, path) {
			continue
		}
		survivors = append(survivors, plugin)
		if plugin.IsContainer {
			containerIDs[plugin.ID] = true
		}
	}

	nested := func(plugin api.Plugin) bool {
		return plugin.ContainerID != "" && !plugin.IsContainer && containerIDs[plugin.ContainerID]
	}

	// Top-level entries first, in declared order. Orphaned children (no
	// surviving container) stay top-level at their declared position.
	containers := make(map[string]*ResolvedPlugin)
	var resolved []*ResolvedPlugin
	for _, plugin := range survivors {
		if nested(plugin) {
			continue
		}
		entry := &ResolvedPlugin{Plugin: plugin}
		resolved = append(resolved, entry)
		if plugin.IsContainer {
			containers[plugin.ID] = entry
		}
	}

	for _, plugin := range survivors {
		if nested(plugin) {
			container := containers[plugin.ContainerID]
			container.Children = append(container.Children, plugin)
		}
	}

	out := make([]ResolvedPlugin, len(resolved))
	for i, entry := range resolved {
		out[i] = *entry
	}
	return out
}

func pathVisible(plugin api.Plugin, path string) bool {
	if len(plugin.IncludePaths) > 0 {
		return MatchAnyPath(plugin.IncludePaths, path)
	}
	return !MatchAnyPath(plugin.ExcludePaths, path)
}
