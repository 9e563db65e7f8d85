package matching

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/reqmatch-backend/internal/platform/envutil"
)

const (
	MinTopK = 20
	MaxTopK = 50

	DefaultTopK           = 30
	DefaultGate           = 0.65
	DefaultConcurrency    = 4
	MaxConcurrency        = 16
	DefaultEvidenceChunks = 3
	DefaultEvidenceRunes  = 600
)

// Config tunes the engine. Zero values are replaced by defaults in Normalize.
type Config struct {
	TopK            int           `yaml:"top_k" toml:"top_k" json:"top_k"`
	Gate            float64       `yaml:"gate" toml:"gate" json:"gate"`
	Concurrency     int           `yaml:"concurrency" toml:"concurrency" json:"concurrency"`
	EvidenceChunks  int           `yaml:"evidence_chunks" toml:"evidence_chunks" json:"evidence_chunks"`
	EvidenceRunes   int           `yaml:"evidence_runes" toml:"evidence_runes" json:"evidence_runes"`
	VectorNamespace string        `yaml:"vector_namespace" toml:"vector_namespace" json:"vector_namespace"`
	JudgeRetryDelay time.Duration `yaml:"judge_retry_delay" toml:"judge_retry_delay" json:"judge_retry_delay"`
	LockWait        time.Duration `yaml:"lock_wait" toml:"lock_wait" json:"lock_wait"`
}

func DefaultConfig() Config {
	return Config{
		TopK:            DefaultTopK,
		Gate:            DefaultGate,
		Concurrency:     DefaultConcurrency,
		EvidenceChunks:  DefaultEvidenceChunks,
		EvidenceRunes:   DefaultEvidenceRunes,
		VectorNamespace: "chunks",
		JudgeRetryDelay: 500 * time.Millisecond,
		LockWait:        2 * time.Minute,
	}
}

// Normalize fills zero values with defaults, clamps TopK into [MinTopK, MaxTopK]
// and caps Concurrency at MaxConcurrency.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.TopK == 0 {
		c.TopK = d.TopK
	}
	if c.TopK < MinTopK {
		c.TopK = MinTopK
	}
	if c.TopK > MaxTopK {
		c.TopK = MaxTopK
	}
	if c.Gate == 0 {
		c.Gate = d.Gate
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Concurrency > MaxConcurrency {
		c.Concurrency = MaxConcurrency
	}
	if c.EvidenceChunks <= 0 {
		c.EvidenceChunks = d.EvidenceChunks
	}
	if c.EvidenceRunes <= 0 {
		c.EvidenceRunes = d.EvidenceRunes
	}
	if strings.TrimSpace(c.VectorNamespace) == "" {
		c.VectorNamespace = d.VectorNamespace
	}
	if c.JudgeRetryDelay < 0 {
		c.JudgeRetryDelay = 0
	}
	if c.LockWait <= 0 {
		c.LockWait = d.LockWait
	}
	return c
}

func (c Config) Validate() error {
	if c.Gate <= 0 || c.Gate > 1 {
		return &ValidationError{Field: "gate", Message: fmt.Sprintf("must be in (0, 1], got %v", c.Gate)}
	}
	if c.EvidenceChunks > 3 {
		return &ValidationError{Field: "evidence_chunks", Message: "at most 3 chunks form the evidence"}
	}
	return nil
}

// WithEnv overrides fields from MATCH_* variables.
func (c Config) WithEnv() Config {
	c.TopK = envutil.Int("MATCH_TOP_K", c.TopK)
	c.Gate = envutil.Float("MATCH_GATE", c.Gate)
	c.Concurrency = envutil.Int("MATCH_CONCURRENCY", c.Concurrency)
	c.EvidenceChunks = envutil.Int("MATCH_EVIDENCE_CHUNKS", c.EvidenceChunks)
	c.EvidenceRunes = envutil.Int("MATCH_EVIDENCE_RUNES", c.EvidenceRunes)
	c.VectorNamespace = envutil.String("MATCH_VECTOR_NAMESPACE", c.VectorNamespace)
	c.LockWait = envutil.Seconds("MATCH_LOCK_WAIT_SECONDS", c.LockWait)
	return c
}

// LoadConfig reads a YAML or TOML file chosen by extension, then applies
// environment overrides. A missing path yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read engine config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			err = toml.Unmarshal(raw, &cfg)
		case ".yaml", ".yml":
			err = yaml.Unmarshal(raw, &cfg)
		default:
			return Config{}, fmt.Errorf("unsupported engine config extension %q", filepath.Ext(path))
		}
		if err != nil {
			return Config{}, fmt.Errorf("parse engine config %s: %w", path, err)
		}
	}
	cfg = cfg.WithEnv().Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SaveConfig writes cfg in the format implied by the file extension.
func SaveConfig(path string, cfg Config) error {
	var (
		raw []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		raw = buf.Bytes()
	case ".yaml", ".yml":
		raw, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported engine config extension %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o644)
}
