package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/civicmatch/civic-match/internal/api"
	"github.com/civicmatch/civic-match/internal/auth"
	"github.com/civicmatch/civic-match/internal/cache"
	"github.com/civicmatch/civic-match/internal/config"
	"github.com/civicmatch/civic-match/internal/database"
	"github.com/civicmatch/civic-match/internal/logger"
	"github.com/civicmatch/civic-match/internal/requester"
	"github.com/civicmatch/civic-match/internal/server"
	"github.com/civicmatch/civic-match/internal/services"
	"github.com/civicmatch/civic-match/internal/tui"
	"github.com/civicmatch/civic-match/internal/web"
	"github.com/civicmatch/civic-match/internal/worker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "civic-match",
	Short: "Civic Match web server",
	Long: `Civic Match connects civic-tech founders. This binary serves the API, the UI shell
and the caching worker that keeps the app available offline.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clean the caching worker's stores",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cache stores and their entry counts",
	RunE:  runCacheList,
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete every cache store except the current version",
	RunE:  runCacheSweep,
}

var cacheBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse a cache store interactively and evict entries",
	RunE:  runCacheBrowse,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	config.InitFlags(rootCmd.PersistentFlags())
	cacheSweepCmd.Flags().String("keep", "", "Store to keep (defaults to worker.cache_version)")
	cacheBrowseCmd.Flags().String("store", "", "Store to browse (defaults to worker.cache_version)")

	cacheCmd.AddCommand(cacheListCmd, cacheSweepCmd, cacheBrowseCmd)
	rootCmd.AddCommand(serveCmd, cacheCmd)
	// plain `civic-match` runs the server
	rootCmd.RunE = runServe
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("\nCaught panic: %v\n", r)
			pterm.Error.Printf("%s\n", debug.Stack())
			os.Exit(2)
		}
	}()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var srv *server.Server
	app := fx.New(
		fx.WithLogger(logger.NewFxLogger),
		config.Module(cfg),
		cache.Module,
		requester.Module,
		worker.Module,
		database.Module,
		services.Module,
		auth.Module,
		api.Module,
		web.Module,
		server.Module,
		fx.Populate(&srv),
	)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	serveErr := srv.Start(ctx)
	if serveErr != nil {
		logger.Error("Server stopped", zap.Error(serveErr))
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warn("Failed to stop cleanly", zap.Error(err))
	}
	return serveErr
}

func openStorage(cmd *cobra.Command) (*config.Config, cache.Storage, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	storage, err := cache.NewStorage(&cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	return cfg, storage, nil
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	cfg, storage, err := openStorage(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()

	ctx := cmd.Context()
	names, err := storage.Names(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		pterm.Info.Println("No cache stores")
		return nil
	}

	data := pterm.TableData{{"Store", "Entries", "Current"}}
	for _, name := range names {
		store, err := storage.Open(ctx, name)
		if err != nil {
			return err
		}
		keys, err := store.Keys(ctx)
		if err != nil {
			return err
		}
		current := ""
		if name == cfg.Worker.CacheVersion {
			current = pterm.LightGreen("yes")
		}
		data = append(data, []string{name, pterm.Sprint(len(keys)), current})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func runCacheSweep(cmd *cobra.Command, _ []string) error {
	cfg, storage, err := openStorage(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()

	keep, _ := cmd.Flags().GetString("keep")
	if keep == "" {
		keep = cfg.Worker.CacheVersion
	}

	deleted, err := worker.SweepStale(cmd.Context(), storage, keep)
	for _, name := range deleted {
		pterm.Success.Printfln("Deleted %s", name)
	}
	if err != nil {
		return err
	}
	pterm.Info.Printfln("Kept %s, deleted %s stores.", pterm.LightGreen(keep), pterm.White(len(deleted)))
	return nil
}

func runCacheBrowse(cmd *cobra.Command, _ []string) error {
	cfg, storage, err := openStorage(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()

	ctx := cmd.Context()
	name, _ := cmd.Flags().GetString("store")
	if name == "" {
		name = cfg.Worker.CacheVersion
	}
	exists, err := storage.Has(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		pterm.Warning.Printfln("Cache store %s does not exist", name)
		return nil
	}

	stores, err := tui.LoadStores(ctx, storage, cfg.Worker.CacheVersion)
	if err != nil {
		return err
	}
	store, err := storage.Open(ctx, name)
	if err != nil {
		return err
	}
	entries, err := tui.LoadEntries(ctx, store)
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewAppModel(name, stores, entries, cfg.Worker.Origin, cfg.Worker.CacheVersion), tea.WithAltScreen())
	m, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running browser: %w", err)
	}

	finalModel := m.(tui.AppModel)
	if !finalModel.IsFinished() {
		return nil
	}
	evicted := 0
	for _, key := range finalModel.Evictions() {
		if _, err := store.Delete(ctx, key); err != nil {
			pterm.Error.Printfln("Failed to evict %s: %v", key, err)
			continue
		}
		evicted++
	}
	pterm.Info.Printfln("Evicted %s entries out of %s.",
		pterm.LightGreen(evicted),
		pterm.White(len(entries)))
	return nil
}
