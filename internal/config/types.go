package config

import "time"

// Config represents the complete lvsctl configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	IPC     IPCConfig     `yaml:"ipc"`
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
	API     APIConfig     `yaml:"api"`
	Console ConsoleConfig `yaml:"console"`

	// SourcePath is the absolute path the config was loaded from.
	SourcePath string `yaml:"-"`
	// Fingerprint is the BLAKE3 hash of the raw config bytes.
	Fingerprint string `yaml:"-"`
}

// EngineConfig describes how to spawn the rendering engine.
type EngineConfig struct {
	Path string   `yaml:"path"`
	Args []string `yaml:"args,omitempty"`
	Dir  string   `yaml:"dir,omitempty"`
	// Env entries are KEY=VALUE pairs added to the inherited environment.
	Env []string `yaml:"env,omitempty"`
}

// IPCConfig holds the timing knobs of the engine channel.
type IPCConfig struct {
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	Warmup           time.Duration `yaml:"warmup"`
	JoinTimeout      time.Duration `yaml:"join_timeout"`
	TerminationGrace time.Duration `yaml:"termination_grace"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// JournalConfig defines the traffic journal settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Buffer  int    `yaml:"buffer"`
}

// APIConfig defines HTTP control API settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Token   string `yaml:"token"`
}

// ConsoleConfig defines terminal console settings.
type ConsoleConfig struct {
	// Tick is how often the console pushes the playback clock while previewing.
	Tick time.Duration `yaml:"tick"`
}
