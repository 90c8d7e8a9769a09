package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogFile   string `yaml:"log"`
	IndexDir  string `yaml:"index_dir"`
	VectorDir string `yaml:"vector_dir"`

	ChunkWords   int `yaml:"chunk_words"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TagMax       int `yaml:"tag_max"`
	CaptionBatch int `yaml:"caption_batch"`

	SearchK        int     `yaml:"search_k"`
	OpenK          int     `yaml:"open_k"`
	ScoreThreshold float32 `yaml:"score_threshold"`

	MergeEventsMs int    `yaml:"write_debounce_ms"`
	ServerAddr    string `yaml:"server_addr"`
	APIAddr       string `yaml:"api_addr"`

	Store struct {
		Backend     string `yaml:"backend"` // local (default) or chroma
		ChromaAddr  string `yaml:"chroma_addr"`
		RequestSize int    `yaml:"request_size"`
	} `yaml:"store"`

	Embedder struct {
		Provider string `yaml:"provider"` // gemini (default) or openai
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"base_url"` // openai-compatible endpoints only
	} `yaml:"embedder"`

	Chat struct {
		Provider string `yaml:"provider"` // claude (default), gemini or none
		Model    string `yaml:"model"`
	} `yaml:"chat"`

	Summary struct {
		Model string `yaml:"model"`
	} `yaml:"summary"`

	Caption struct {
		Model string `yaml:"model"`
	} `yaml:"caption"`
}

// readConfig loads cfgPath; a missing file yields the defaults so the tool
// works without any configuration.
func readConfig(cfgPath string) (*Config, error) {
	cfg := &Config{}

	cfgFile, err := os.Open(cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer cfgFile.Close()

	dec := yaml.NewDecoder(cfgFile)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects chunk geometry the chunker cannot make progress with.
func (c *Config) validate() error {
	if c.ChunkWords <= 0 {
		return fmt.Errorf("chunk_words must be positive, got %d", c.ChunkWords)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkWords {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_words (%d)",
			c.ChunkOverlap, c.ChunkWords)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LogFile == "" {
		c.LogFile = "localrag.log"
	}
	if c.IndexDir == "" {
		c.IndexDir = "file_indexes"
	}
	if c.VectorDir == "" {
		c.VectorDir = "vector_dbs"
	}
	if c.ChunkWords == 0 {
		c.ChunkWords = 512
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 64
	}
	if c.TagMax == 0 {
		c.TagMax = 5
	}
	if c.CaptionBatch == 0 {
		c.CaptionBatch = 6
	}
	if c.SearchK == 0 {
		c.SearchK = 10
	}
	if c.OpenK == 0 {
		c.OpenK = 5
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = 0.3
	}
	if c.MergeEventsMs == 0 {
		c.MergeEventsMs = 500
	}
	if c.ServerAddr == "" {
		c.ServerAddr = "localhost:8871"
	}
	if c.APIAddr == "" {
		c.APIAddr = "localhost:8872"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "local"
	}
	if c.Store.ChromaAddr == "" {
		c.Store.ChromaAddr = "http://localhost:8000"
	}
	if c.Store.RequestSize == 0 {
		c.Store.RequestSize = 64
	}
	if c.Embedder.Provider == "" {
		c.Embedder.Provider = "gemini"
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = "claude"
	}
}
