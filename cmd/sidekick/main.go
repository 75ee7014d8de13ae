package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	sidekick "github.com/hlxsites/sidekick-config"
	"github.com/hlxsites/sidekick-config/api"
	"github.com/hlxsites/sidekick-config/engine"
	"github.com/hlxsites/sidekick-config/sqlitestore"
)

var (
	dbPath      string
	project     string
	mountpoints []string
	host        string
	devMode     bool
	shareURL    string
)

func main() {
	// Optional .env for SIDEKICK_* overrides; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "sidekick",
		Short:         "Manage and resolve sidekick project configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnv("SIDEKICK_DB", defaultDBPath()), "Database path")

	addCmd := &cobra.Command{
		Use:   "add [giturl]",
		Short: "Add a project config from a GitHub URL or a share URL",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAdd,
	}
	addCmd.Flags().StringVar(&project, "project", "", "Display name")
	addCmd.Flags().StringSliceVar(&mountpoints, "mountpoint", nil, "Content mountpoint (repeatable)")
	addCmd.Flags().StringVar(&host, "host", "", "Production hostname")
	addCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")
	addCmd.Flags().StringVar(&shareURL, "share", "", "Share URL instead of a GitHub URL")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored configs",
		RunE:  runList,
	}

	removeCmd := &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the config at the given position",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemove,
	}

	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export all configs as a JSON backup (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all configs with a previously exported backup",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	resolveCmd := &cobra.Command{
		Use:   "resolve <index> <environment> <path>",
		Short: "Show the plugins visible for an environment and path",
		Args:  cobra.ExactArgs(3),
		RunE:  runResolve,
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a config document against the schema",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	rootCmd.AddCommand(addCmd, listCmd, removeCmd, exportCmd, importCmd, resolveCmd, validateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newClient() (*sidekick.Client, func(), error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, err
	}
	store, err := sqlitestore.New(dbPath)
	if err != nil {
		return nil, nil, err
	}
	client, err := sidekick.NewClient(&sidekick.Options{
		ShareHost: os.Getenv("SIDEKICK_SHARE_HOST"),
		Storage:   store,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
		store.Close()
	}
	return client, cleanup, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	var added bool
	switch {
	case shareURL != "":
		added, err = client.AddFromShareURL(ctx, shareURL)
	case len(args) == 1:
		added, err = client.AddConfig(ctx, engine.AssembleInput{
			GitURL:      args[0],
			Project:     project,
			Mountpoints: mountpoints,
			Host:        host,
			DevMode:     devMode,
		})
	default:
		return fmt.Errorf("either a GitHub URL argument or --share is required")
	}
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("config was not added")
	}
	fmt.Println("Config added.")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	configs, err := client.Configs(cmd.Context())
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		fmt.Println("No configs stored.")
		return nil
	}
	for i, cfg := range configs {
		name := cfg.Project
		if name == "" {
			name = cfg.ID()
		}
		fmt.Printf("%3d  %-30s %s\n", i, name, engine.ComputeInnerHost(cfg.Owner, cfg.Repo, cfg.Ref))
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be a number: %q", args[0])
	}
	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := client.DeleteConfig(cmd.Context(), index); err != nil {
		return err
	}
	fmt.Println("Config removed.")
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	envelope, err := client.ExportConfigs(cmd.Context())
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return os.WriteFile(args[0], raw, 0o644)
	}
	fmt.Println(string(raw))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := client.ImportConfigs(cmd.Context(), raw); err != nil {
		return err
	}
	fmt.Println("Configs imported.")
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be a number: %q", args[0])
	}
	environment, path := args[1], args[2]

	client, cleanup, err := newClient()
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	configs, err := client.Configs(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(configs) {
		return fmt.Errorf("no config at index %d", index)
	}

	resolved, err := client.ResolvePlugins(ctx, configs[index], environment, path)
	if err != nil {
		return err
	}
	if len(resolved) == 0 {
		fmt.Printf("No plugins visible in %q at %q.\n", environment, path)
		return nil
	}
	for _, plugin := range resolved {
		fmt.Println(pluginLine(plugin.Plugin, 0))
		for _, child := range plugin.Children {
			fmt.Println(pluginLine(child, 1))
		}
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	_, result := engine.ValidateConfigJSON(raw)
	if result.Valid {
		fmt.Println("Document is valid.")
		return nil
	}
	for _, fieldErr := range result.Errors {
		fmt.Println(" -", fieldErr.Error())
	}
	return fmt.Errorf("%d schema violations", len(result.Errors))
}

func pluginLine(plugin api.Plugin, depth int) string {
	action := "event:" + plugin.Event
	switch {
	case plugin.IsContainer:
		action = "container"
	case plugin.URL != "":
		action = plugin.URL
	}
	return fmt.Sprintf("%s%-20s %s", strings.Repeat("  ", depth+1), plugin.ID, action)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sidekick.db"
	}
	return filepath.Join(home, ".config", "sidekick", "sidekick.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
