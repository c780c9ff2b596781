package config

// DefaultConfigPath is where the CLI looks for a config file when none is given.
const DefaultConfigPath = "/usr/local/etc/docstore/config.yaml"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Store.BM25Algorithm == "" {
		cfg.Store.BM25Algorithm = "BM25Okapi"
	}
	if cfg.Store.BM25TokenizationRegex == "" {
		cfg.Store.BM25TokenizationRegex = `(?u)\b\w\w+\b`
	}
	if cfg.Store.DuplicatePolicy == "" {
		cfg.Store.DuplicatePolicy = "fail"
	}
	if cfg.Retrieval.DefaultTopK == 0 {
		cfg.Retrieval.DefaultTopK = 10
	}
	if cfg.Retrieval.MaxTopK == 0 {
		cfg.Retrieval.MaxTopK = 1000
	}
	if cfg.Retrieval.ScaleScore == nil {
		t := true
		cfg.Retrieval.ScaleScore = &t
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx", ".csv", ".tsv"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
