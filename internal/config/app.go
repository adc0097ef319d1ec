package config

import (
	"time"

	"github.com/spf13/viper"
)

// Defaults for the application settings.
const (
	DefaultDatabasePath  = "~/.local/share/payflow/payflow.db"
	DefaultWorkspaceRoot = "~/.local/share/payflow/workspaces"
	DefaultConcurrency   = 4
	DefaultWatchDebounce = 500 * time.Millisecond
)

// App holds the settings shared by every command.
type App struct {
	DatabasePath  string
	WorkspaceRoot string
	Concurrency   int
	WatchDebounce time.Duration
}

// SetDefaults registers the application defaults with Viper.
func SetDefaults() {
	viper.SetDefault("database.path", DefaultDatabasePath)
	viper.SetDefault("workspace.root", DefaultWorkspaceRoot)
	viper.SetDefault("pipeline.concurrency", DefaultConcurrency)
	viper.SetDefault("pipeline.watch_debounce", DefaultWatchDebounce)
}

// LoadApp reads the application settings from Viper with paths expanded.
func LoadApp() App {
	app := App{
		DatabasePath:  ExpandPath(viper.GetString("database.path")),
		WorkspaceRoot: ExpandPath(viper.GetString("workspace.root")),
		Concurrency:   viper.GetInt("pipeline.concurrency"),
		WatchDebounce: viper.GetDuration("pipeline.watch_debounce"),
	}
	if app.DatabasePath == "" {
		app.DatabasePath = ExpandPath(DefaultDatabasePath)
	}
	if app.WorkspaceRoot == "" {
		app.WorkspaceRoot = ExpandPath(DefaultWorkspaceRoot)
	}
	if app.Concurrency < 1 {
		app.Concurrency = DefaultConcurrency
	}
	if app.WatchDebounce <= 0 {
		app.WatchDebounce = DefaultWatchDebounce
	}
	return app
}
