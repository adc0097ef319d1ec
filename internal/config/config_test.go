package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/payflow/internal/engine"
	"github.com/Veraticus/payflow/internal/sheets"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func clearSheetsEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID",
		"GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
		"GOOGLE_SHEETS_SPREADSHEET_ID",
		"GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PAYFLOW_TEST_DIR", "/srv/payroll")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "payflow.db"), ExpandPath("~/payflow.db"))
	assert.Equal(t, "/srv/payroll/ws", ExpandPath("$PAYFLOW_TEST_DIR/ws"))
	assert.Equal(t, "relative/path", ExpandPath("relative/path"))
}

func TestLoadSheetsConfig(t *testing.T) {
	resetViper(t)
	clearSheetsEnv(t)

	viper.Set("sheets.service_account_path", "$PAYFLOW_TEST_KEYS/key.json")
	viper.Set("sheets.spreadsheet_name", "March Payroll")
	viper.Set("sheets.batch_size", 200)
	viper.Set("sheets.formatting", false)
	t.Setenv("PAYFLOW_TEST_KEYS", "/etc/payflow")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "sheet-from-env")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "Ignored")

	config, err := LoadSheetsConfig()
	require.NoError(t, err)
	assert.Equal(t, "/etc/payflow/key.json", config.ServiceAccountPath)
	assert.Equal(t, "March Payroll", config.SpreadsheetName)
	assert.Equal(t, "sheet-from-env", config.SpreadsheetID)
	assert.Equal(t, 200, config.BatchSize)
	assert.False(t, config.EnableFormatting)
	assert.Equal(t, 3, config.RetryAttempts)
}

func TestLoadSheetsConfigWithoutCredentials(t *testing.T) {
	resetViper(t)
	clearSheetsEnv(t)

	_, err := LoadSheetsConfig()
	assert.ErrorIs(t, err, sheets.ErrNoAuth)
}

func TestLoadTaxTable(t *testing.T) {
	resetViper(t)

	table, err := LoadTaxTable()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultTaxTable(), table)

	path := filepath.Join(t.TempDir(), "flat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_threshold: 1000\nbrackets:\n  - rate: 0.1\n"), 0o600))
	viper.Set("tax.table_path", path)

	table, err = LoadTaxTable()
	require.NoError(t, err)
	assert.Equal(t, "100", table.Tax(decimal.NewFromInt(2000), decimal.Zero).String())

	require.NoError(t, os.WriteFile(path, []byte("brackets:\n  - rate: lots\n"), 0o600))
	_, err = LoadTaxTable()
	assert.ErrorIs(t, err, engine.ErrInvalidTaxTable)

	viper.Set("tax.table_path", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = LoadTaxTable()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadApp(t *testing.T) {
	resetViper(t)
	SetDefaults()

	app := LoadApp()
	assert.Equal(t, ExpandPath(DefaultDatabasePath), app.DatabasePath)
	assert.Equal(t, ExpandPath(DefaultWorkspaceRoot), app.WorkspaceRoot)
	assert.Equal(t, DefaultConcurrency, app.Concurrency)
	assert.Equal(t, DefaultWatchDebounce, app.WatchDebounce)

	viper.Set("database.path", "/tmp/payflow.db")
	viper.Set("pipeline.concurrency", 0)
	viper.Set("pipeline.watch_debounce", "2s")

	app = LoadApp()
	assert.Equal(t, "/tmp/payflow.db", app.DatabasePath)
	assert.Equal(t, DefaultConcurrency, app.Concurrency)
	assert.Equal(t, 2*time.Second, app.WatchDebounce)
}
