package config

import "maps"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked: the log level and
// the extra command aliases. Provider and session changes need a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	AliasesChanged bool
	NewAliases     map[string]string
}

// Empty reports whether the diff carries no reloadable change.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.AliasesChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Log.Level != new.Log.Level {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Log.Level
	}

	if !maps.Equal(old.Session.Aliases, new.Session.Aliases) {
		d.AliasesChanged = true
		d.NewAliases = maps.Clone(new.Session.Aliases)
	}

	return d
}
