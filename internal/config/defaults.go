package config

// DefaultExtensions is the set of document extensions indexed when none are configured.
var DefaultExtensions = []string{".pdf"}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Materials.Root == "" {
		cfg.Materials.Root = "/usr/local/var/modulator/uploads/study-materials"
	}
	if cfg.Materials.Extensions == nil {
		cfg.Materials.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if cfg.Materials.ChunkSize == 0 {
		cfg.Materials.ChunkSize = 1000
	}
	if cfg.Materials.ChunkOverlap == 0 {
		cfg.Materials.ChunkOverlap = 200
	}
	if cfg.Materials.MinChunkLength == 0 {
		cfg.Materials.MinChunkLength = 50
	}
	if cfg.Materials.Workers == 0 {
		cfg.Materials.Workers = 4
	}
	if cfg.Materials.ExtractTimeoutSeconds == 0 {
		cfg.Materials.ExtractTimeoutSeconds = 30
	}
	if cfg.Materials.CacheSize == 0 {
		cfg.Materials.CacheSize = 256
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.MinKeywordLength == 0 {
		cfg.Search.MinKeywordLength = 3
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 2000
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/modulator/data/builds.db"
	}
	if cfg.Storage.KeepBuilds == 0 {
		cfg.Storage.KeepBuilds = 100
	}
	if cfg.Storage.PruneSchedule == "" {
		cfg.Storage.PruneSchedule = "30 4 * * *"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.Model == "" {
		switch cfg.AI.Provider {
		case "openai":
			cfg.AI.Model = "gpt-4o-mini"
		default:
			cfg.AI.Model = "gemini-2.5-flash"
			// The fallback is only defaulted alongside the default Gemini model.
			if cfg.AI.FallbackModel == "" {
				cfg.AI.FallbackModel = "gemini-2.0-flash"
			}
		}
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
}
