package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"digin/internal/scan"
)

// ConfigFileName is looked up in the analyzed repository root.
const ConfigFileName = ".digin.yml"

// ErrConfiguration marks fatal settings problems. Anything wrapped in it
// aborts the run before traversal starts.
var ErrConfiguration = errors.New("configuration error")

// Settings is the merged run configuration. Precedence, lowest to highest:
// built-in defaults, the repository's .digin.yml, environment variables,
// then command-line flags applied by the caller.
type Settings struct {
	Ignore            []string `yaml:"ignore"`
	IgnorePatterns    []string `yaml:"ignore_patterns"`
	IncludeExtensions []string `yaml:"include_extensions"`
	IncludeHidden     bool     `yaml:"include_hidden"`
	MaxDepth          int      `yaml:"max_depth"`
	MaxFileSize       string   `yaml:"max_file_size"`

	Narrative bool `yaml:"narrative"`
	Workers   int  `yaml:"workers"`

	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"-"`

	Artifact ArtifactSettings `yaml:"artifact"`
}

// ArtifactSettings configures the optional export target.
type ArtifactSettings struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func Defaults() Settings {
	return Settings{
		Ignore: []string{
			".git", "node_modules", "__pycache__", ".venv", "venv",
			"dist", "build", "target", ".idea", ".pytest_cache", ".mypy_cache",
		},
		IncludeExtensions: nil, // all extensions
		MaxDepth:          10,
		MaxFileSize:       "1MB",
		Workers:           4,
		Provider:          "gemini",
		Model:             "gemini-2.0-flash",
		Artifact: ArtifactSettings{
			Region: "us-east-1",
			Bucket: "digin-artifacts",
			UseSSL: true,
		},
	}
}

// Load merges defaults, the repo's .digin.yml (when present) and the
// environment. root must be the repository being analyzed.
func Load(root string) (Settings, error) {
	_ = godotenv.Load()

	s := Defaults()
	if err := mergeFile(&s, filepath.Join(root, ConfigFileName)); err != nil {
		return Settings{}, err
	}
	mergeEnv(&s)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func mergeFile(s *Settings, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: read %s: %v", ErrConfiguration, path, err)
	}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrConfiguration, path, err)
	}
	return nil
}

func mergeEnv(s *Settings) {
	if v := strings.TrimSpace(os.Getenv("DIGIN_MODEL")); v != "" {
		s.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("DIGIN_PROVIDER")); v != "" {
		s.Provider = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		s.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("DIGIN_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.Workers = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DIGIN_MAX_DEPTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxDepth = n
		}
	}
	if v := os.Getenv("DIGIN_NARRATIVE"); v != "" {
		s.Narrative = parseBool(v)
	}

	a := &s.Artifact
	if v := strings.TrimSpace(os.Getenv("DIGIN_S3_ENDPOINT")); v != "" {
		a.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("DIGIN_S3_REGION")); v != "" {
		a.Region = v
	}
	if v := strings.TrimSpace(os.Getenv("DIGIN_S3_BUCKET")); v != "" {
		a.Bucket = v
	}
	a.AccessKey = firstNonEmpty(os.Getenv("DIGIN_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER"))
	a.SecretKey = firstNonEmpty(os.Getenv("DIGIN_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD"))
	if v := os.Getenv("DIGIN_S3_USE_SSL"); v != "" {
		a.UseSSL = parseBool(v)
	}
}

// Validate checks the merged settings. Errors here are fatal.
func (s Settings) Validate() error {
	if s.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must be >= 0, got %d", ErrConfiguration, s.MaxDepth)
	}
	if s.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrConfiguration, s.Workers)
	}
	if _, err := ParseSize(s.MaxFileSize); err != nil {
		return fmt.Errorf("%w: max_file_size: %v", ErrConfiguration, err)
	}
	rules, err := s.Rules()
	if err != nil {
		return err
	}
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	switch s.Provider {
	case "gemini", "fake":
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrConfiguration, s.Provider)
	}
	return nil
}

// Rules converts the settings into traversal rules.
func (s Settings) Rules() (scan.Rules, error) {
	size, err := ParseSize(s.MaxFileSize)
	if err != nil {
		return scan.Rules{}, fmt.Errorf("%w: max_file_size: %v", ErrConfiguration, err)
	}
	return scan.Rules{
		IgnoreDirs:        s.Ignore,
		IgnorePatterns:    s.IgnorePatterns,
		IncludeExtensions: s.IncludeExtensions,
		IncludeHidden:     s.IncludeHidden,
		MaxDepth:          s.MaxDepth,
		MaxFileSize:       size,
	}, nil
}

// ParseSize parses sizes like "512", "200KB", "1MB", "2GB".
func ParseSize(raw string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	switch {
	case strings.HasSuffix(v, "GB"):
		mult, v = 1<<30, strings.TrimSuffix(v, "GB")
	case strings.HasSuffix(v, "MB"):
		mult, v = 1<<20, strings.TrimSuffix(v, "MB")
	case strings.HasSuffix(v, "KB"):
		mult, v = 1<<10, strings.TrimSuffix(v, "KB")
	case strings.HasSuffix(v, "B"):
		v = strings.TrimSuffix(v, "B")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", raw)
	}
	return n * mult, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
