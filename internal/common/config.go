package common

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/takeda-juku/tensaku/constants"
)

// Config holds all application configuration. Components receive the
// sections they need at construction; nothing reads this globally.
type Config struct {
	GraderName string
	Stages     StageConfig
	Library    LibraryConfig
	Extract    ExtractConfig
	Grading    GradingConfig
}

// StageConfig names the staging directories of the pipeline.
type StageConfig struct {
	InputDir  string
	TextDir   string
	OutputDir string
	DoneDir   string
}

// LibraryConfig names the template-definition directories.
type LibraryConfig struct {
	CoordDir  string
	MasterDir string
	RubricDir string
}

// ExtractConfig holds settings for the vision extraction service.
type ExtractConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GradingConfig holds settings for the grading service.
type GradingConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// LoadConfig reads config.json (created with defaults when absent) and
// applies environment overrides for secrets. path may be a file or a
// directory containing config.json.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
	}

	v.SetDefault("grader_name", "採点者")
	v.SetDefault("input_dir", constants.DefaultInputDir)
	v.SetDefault("text_dir", constants.DefaultTextDir)
	v.SetDefault("output_dir", constants.DefaultOutputDir)
	v.SetDefault("done_dir", constants.DefaultDoneDir)
	v.SetDefault("coord_dir", constants.DefaultCoordDir)
	v.SetDefault("master_dir", constants.DefaultMasterDir)
	v.SetDefault("rubric_dir", constants.DefaultRubricDir)
	v.SetDefault("extract_model", "gemini-2.5-flash")
	v.SetDefault("extract_timeout", "120s")
	v.SetDefault("grading_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("grading_max_tokens", 4000)
	v.SetDefault("grading_timeout", "120s")

	_ = v.BindEnv("google_api_key", "GOOGLE_API_KEY")
	_ = v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Config{
		GraderName: v.GetString("grader_name"),
		Stages: StageConfig{
			InputDir:  v.GetString("input_dir"),
			TextDir:   v.GetString("text_dir"),
			OutputDir: v.GetString("output_dir"),
			DoneDir:   v.GetString("done_dir"),
		},
		Library: LibraryConfig{
			CoordDir:  v.GetString("coord_dir"),
			MasterDir: v.GetString("master_dir"),
			RubricDir: v.GetString("rubric_dir"),
		},
		Extract: ExtractConfig{
			APIKey:  v.GetString("google_api_key"),
			Model:   v.GetString("extract_model"),
			Timeout: v.GetDuration("extract_timeout"),
		},
		Grading: GradingConfig{
			APIKey:    v.GetString("anthropic_api_key"),
			Model:     v.GetString("grading_model"),
			MaxTokens: v.GetInt("grading_max_tokens"),
			Timeout:   v.GetDuration("grading_timeout"),
		},
	}, nil
}

// SaveConfig persists the user-editable settings back to config.json.
// Secrets stay in the environment and are never written out.
func SaveConfig(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigType("json")
	v.Set("grader_name", cfg.GraderName)
	v.Set("input_dir", cfg.Stages.InputDir)
	v.Set("text_dir", cfg.Stages.TextDir)
	v.Set("output_dir", cfg.Stages.OutputDir)
	v.Set("done_dir", cfg.Stages.DoneDir)
	v.Set("coord_dir", cfg.Library.CoordDir)
	v.Set("master_dir", cfg.Library.MasterDir)
	v.Set("rubric_dir", cfg.Library.RubricDir)
	v.Set("extract_model", cfg.Extract.Model)
	v.Set("extract_timeout", cfg.Extract.Timeout.String())
	v.Set("grading_model", cfg.Grading.Model)
	v.Set("grading_max_tokens", cfg.Grading.MaxTokens)
	v.Set("grading_timeout", cfg.Grading.Timeout.String())
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks settings that every run needs.
func (c *Config) Validate() error {
	if c.GraderName == "" {
		return NewAppError("CONFIG_ERROR", "grader_name is required", ErrInvalidInput)
	}
	if c.Stages.InputDir == "" || c.Stages.TextDir == "" || c.Stages.OutputDir == "" || c.Stages.DoneDir == "" {
		return NewAppError("CONFIG_ERROR", "all stage directories are required", ErrInvalidInput)
	}
	return nil
}
