package config

const (
	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultConfidenceThreshold  = 0.2
	defaultQuickAcceptThreshold = 0.9
	defaultAmbiguityEpsilon     = 0.005
)

// Default returns a configuration populated with the stock defaults. Path
// fields are left unexpanded; Load normalizes them.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/cardcounter",
			LogDir:  "~/.local/share/cardcounter/logs",
		},
		Processing: Processing{
			MaxWorkers:           0,
			ConfidenceThreshold:  defaultConfidenceThreshold,
			QuickAcceptThreshold: defaultQuickAcceptThreshold,
			AmbiguityEpsilon:     defaultAmbiguityEpsilon,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
