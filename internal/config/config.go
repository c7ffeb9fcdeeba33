// Package config loads starstore configuration from file, environment
// variables, and CLI flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	// StorePath is the path to the SQLite object database.
	StorePath string `koanf:"store_path"`
	// SchemaPath is the path to the YAML schema definition file.
	SchemaPath string `koanf:"schema_path"`
	// HistoryFile is where the REPL persists input history.
	HistoryFile string `koanf:"history_file"`
	// Concurrency bounds parallel script execution in `run`.
	Concurrency int `koanf:"concurrency"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// Default configuration values.
const (
	DefaultStorePath   = ".starstore/store.db"
	DefaultSchemaPath  = "schema.yaml"
	DefaultHistoryFile = ".starstore/repl_history"
)

// Defaults returns the built-in configuration map used as the lowest
// precedence layer.
func Defaults() map[string]any {
	return map[string]any{
		"store_path":   DefaultStorePath,
		"schema_path":  DefaultSchemaPath,
		"history_file": DefaultHistoryFile,
		"concurrency":  0,
		"verbose":      false,
	}
}
