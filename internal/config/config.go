// Package config loads pipeline configuration from environment
// variables with an optional YAML file overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Models behind the OpenAI-compatible endpoint.
	LLMModel string
	OCRModel string
	BaseURL  string
	APIKey   string

	// OCR can fan out across several Ollama instances; one host per
	// worker slot, assigned round-robin.
	OCRHosts     []string
	OCRWorkers   int
	OCRRate      float64 // requests per second across all workers
	OCRMaxTokens int

	// Paths
	OutputDir string
	CacheDir  string

	// PDF preprocessing
	DPI         int
	ImageFormat string

	// Analysis
	Strategy      string
	AnalysisType  string
	MaxTokens     int
	MapTokens     int
	MaxTextLength int
	ChunkSize     int
	SplitLevel    int
}

func Load() Config {
	return Config{
		LLMModel: envOr("PAPERSCOPE_LLM_MODEL", "qwen3-30b-a3b"),
		OCRModel: envOr("PAPERSCOPE_OCR_MODEL", "deepseek-ocr2"),
		BaseURL:  envOr("PAPERSCOPE_BASE_URL", "http://localhost:11434/v1"),
		APIKey:   envOr("PAPERSCOPE_API_KEY", "ollama"),

		OCRHosts:     envList("PAPERSCOPE_OCR_HOSTS"),
		OCRWorkers:   envInt("PAPERSCOPE_OCR_WORKERS", 4),
		OCRRate:      envFloat("PAPERSCOPE_OCR_RATE", 2),
		OCRMaxTokens: envInt("PAPERSCOPE_OCR_MAX_TOKENS", 4096),

		OutputDir: envOr("PAPERSCOPE_OUTPUT_DIR", "output"),
		CacheDir:  envOr("PAPERSCOPE_CACHE_DIR", "cache"),

		DPI:         envInt("PAPERSCOPE_DPI", 200),
		ImageFormat: envOr("PAPERSCOPE_IMAGE_FORMAT", "png"),

		Strategy:      envOr("PAPERSCOPE_STRATEGY", "hierarchical"),
		AnalysisType:  envOr("PAPERSCOPE_ANALYSIS_TYPE", "comprehensive"),
		MaxTokens:     envInt("PAPERSCOPE_MAX_TOKENS", 4096),
		MapTokens:     envInt("PAPERSCOPE_MAP_TOKENS", 1024),
		MaxTextLength: envInt("PAPERSCOPE_MAX_TEXT_LENGTH", 50000),
		ChunkSize:     envInt("PAPERSCOPE_CHUNK_SIZE", 30000),
		SplitLevel:    envInt("PAPERSCOPE_SPLIT_LEVEL", 1),
	}
}

// fileConfig is the YAML schema. Only fields set in the file override
// the loaded configuration.
type fileConfig struct {
	LLM struct {
		BaseURL string `yaml:"base"`
		Model   string `yaml:"model"`
		APIKey  string `yaml:"key"`
	} `yaml:"llm"`
	OCR struct {
		Model     string   `yaml:"model"`
		Hosts     []string `yaml:"hosts"`
		Workers   int      `yaml:"workers"`
		Rate      float64  `yaml:"rate"`
		MaxTokens int      `yaml:"maxTokens"`
	} `yaml:"ocr"`
	Paths struct {
		Output string `yaml:"output"`
		Cache  string `yaml:"cache"`
	} `yaml:"paths"`
	PDF struct {
		DPI    int    `yaml:"dpi"`
		Format string `yaml:"format"`
	} `yaml:"pdf"`
	Analysis struct {
		Strategy      string `yaml:"strategy"`
		Type          string `yaml:"type"`
		MaxTokens     int    `yaml:"maxTokens"`
		MapTokens     int    `yaml:"mapTokens"`
		MaxTextLength int    `yaml:"maxTextLength"`
		ChunkSize     int    `yaml:"chunkSize"`
		SplitLevel    int    `yaml:"splitLevel"`
	} `yaml:"analysis"`
}

// ApplyFile overlays a YAML config file onto c. Fields absent from the
// file keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	overlayStr(&c.BaseURL, fc.LLM.BaseURL)
	overlayStr(&c.LLMModel, fc.LLM.Model)
	overlayStr(&c.APIKey, fc.LLM.APIKey)

	overlayStr(&c.OCRModel, fc.OCR.Model)
	if len(fc.OCR.Hosts) > 0 {
		c.OCRHosts = fc.OCR.Hosts
	}
	overlayInt(&c.OCRWorkers, fc.OCR.Workers)
	if fc.OCR.Rate > 0 {
		c.OCRRate = fc.OCR.Rate
	}
	overlayInt(&c.OCRMaxTokens, fc.OCR.MaxTokens)

	overlayStr(&c.OutputDir, fc.Paths.Output)
	overlayStr(&c.CacheDir, fc.Paths.Cache)

	overlayInt(&c.DPI, fc.PDF.DPI)
	overlayStr(&c.ImageFormat, fc.PDF.Format)

	overlayStr(&c.Strategy, fc.Analysis.Strategy)
	overlayStr(&c.AnalysisType, fc.Analysis.Type)
	overlayInt(&c.MaxTokens, fc.Analysis.MaxTokens)
	overlayInt(&c.MapTokens, fc.Analysis.MapTokens)
	overlayInt(&c.MaxTextLength, fc.Analysis.MaxTextLength)
	overlayInt(&c.ChunkSize, fc.Analysis.ChunkSize)
	overlayInt(&c.SplitLevel, fc.Analysis.SplitLevel)
	return nil
}

func (c Config) Validate() error {
	if c.LLMModel == "" {
		return fmt.Errorf("PAPERSCOPE_LLM_MODEL is required")
	}
	if c.OCRModel == "" {
		return fmt.Errorf("PAPERSCOPE_OCR_MODEL is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("PAPERSCOPE_BASE_URL is required (e.g. http://localhost:11434/v1)")
	}
	if c.OCRWorkers <= 0 {
		return fmt.Errorf("OCR workers must be positive, got %d", c.OCRWorkers)
	}
	if c.OCRRate <= 0 {
		return fmt.Errorf("OCR rate must be positive, got %g", c.OCRRate)
	}
	if c.DPI < 72 || c.DPI > 600 {
		return fmt.Errorf("DPI must be in 72-600, got %d", c.DPI)
	}
	if c.MaxTextLength <= 0 || c.ChunkSize <= 0 {
		return fmt.Errorf("chunking thresholds must be positive (max_text_length=%d, chunk_size=%d)",
			c.MaxTextLength, c.ChunkSize)
	}
	if c.SplitLevel < 1 || c.SplitLevel > 6 {
		return fmt.Errorf("split level must be in 1-6, got %d", c.SplitLevel)
	}
	return nil
}

func overlayStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
