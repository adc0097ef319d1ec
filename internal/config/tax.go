package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/payflow/internal/engine"
	"github.com/spf13/viper"
)

// LoadTaxTable returns the tax table named by tax.table_path, or the
// built-in table when none is configured.
func LoadTaxTable() (engine.TaxTable, error) {
	path := ExpandPath(viper.GetString("tax.table_path"))
	if path == "" {
		return engine.DefaultTaxTable(), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- tax table path comes from local config
	if err != nil {
		return engine.TaxTable{}, fmt.Errorf("failed to read tax table: %w", err)
	}
	table, err := engine.ParseTaxTable(data)
	if err != nil {
		return engine.TaxTable{}, fmt.Errorf("failed to parse tax table %s: %w", path, err)
	}
	slog.Debug("Loaded tax table", "path", path, "brackets", len(table.Brackets))
	return table, nil
}
