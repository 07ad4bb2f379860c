// Package config 定义启动时一次性构建的配置结构：默认值 → 全局配置文件 →
// 项目配置文件 → 环境变量，逐层覆盖。核心逻辑不做任何环境查找，配置只在
// 进程入口构建一次后按值传递。
// Package config builds the process configuration once at startup: defaults,
// then the global file, then the project file, then environment overrides.
// Core logic never reads the environment; the struct is passed explicitly.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type ProviderConfig struct {
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	TimeoutMS int    `json:"timeout_ms"`
}

type TimerConfig struct {
	WorkSeconds       int `json:"work_seconds"`
	ShortBreakSeconds int `json:"short_break_seconds"`
	LongBreakSeconds  int `json:"long_break_seconds"`
	LongBreakEvery    int `json:"long_break_every"`
}

type GenerationConfig struct {
	MinTasks       int `json:"min_tasks"`
	MaxTasks       int `json:"max_tasks"`
	MaxTitleWords  int `json:"max_title_words"`
	MaxGoalTokens  int `json:"max_goal_tokens"`
	MaxAttempts    int `json:"max_attempts"`
	InitialDelayMS int `json:"initial_delay_ms"`
}

type StorageConfig struct {
	BaseDir string `json:"base_dir"`
}

type MusicConfig struct {
	DefaultURL string `json:"default_url"`
}

type Config struct {
	Provider   ProviderConfig   `json:"provider"`
	Timer      TimerConfig      `json:"timer"`
	Generation GenerationConfig `json:"generation"`
	Storage    StorageConfig    `json:"storage"`
	Music      MusicConfig      `json:"music"`
}

type fileConfig struct {
	Provider   *ProviderConfig   `json:"provider"`
	Timer      *TimerConfig      `json:"timer"`
	Generation *GenerationConfig `json:"generation"`
	Storage    *StorageConfig    `json:"storage"`
	Music      *MusicConfig      `json:"music"`
}

func Default() Config {
	return Config{
		Provider: ProviderConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			TimeoutMS: 60000,
		},
		Timer: TimerConfig{
			WorkSeconds:       1500,
			ShortBreakSeconds: 300,
			LongBreakSeconds:  900,
			LongBreakEvery:    4,
		},
		Generation: GenerationConfig{
			MinTasks:       5,
			MaxTasks:       8,
			MaxTitleWords:  10,
			MaxGoalTokens:  512,
			MaxAttempts:    5,
			InitialDelayMS: 1000,
		},
		Storage: StorageConfig{
			BaseDir: "~/.focusboard",
		},
		Music: MusicConfig{},
	}
}

// Load 构建最终配置：默认值 → ~/.focusboard/config.json → path（或
// FOCUSBOARD_CONFIG_PATH，或项目内配置）→ 环境变量。
// Load resolves the effective configuration. path overrides the project
// config discovery; the FOCUSBOARD_CONFIG_PATH env var overrides path.
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("FOCUSBOARD_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".focusboard", "config.json")}
}

func findProjectConfigPath() string {
	candidates := []string{
		"focusboard.json",
		".focusboard/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Provider != nil {
		cfg.Provider = mergeProvider(cfg.Provider, *fc.Provider)
	}
	if fc.Timer != nil {
		cfg.Timer = mergeTimer(cfg.Timer, *fc.Timer)
	}
	if fc.Generation != nil {
		cfg.Generation = mergeGeneration(cfg.Generation, *fc.Generation)
	}
	if fc.Storage != nil {
		if strings.TrimSpace(fc.Storage.BaseDir) != "" {
			cfg.Storage.BaseDir = fc.Storage.BaseDir
		}
	}
	if fc.Music != nil {
		if strings.TrimSpace(fc.Music.DefaultURL) != "" {
			cfg.Music.DefaultURL = fc.Music.DefaultURL
		}
	}
}

func mergeProvider(base ProviderConfig, override ProviderConfig) ProviderConfig {
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.Model) != "" {
		base.Model = override.Model
	}
	if strings.TrimSpace(override.APIKey) != "" {
		base.APIKey = override.APIKey
	}
	if override.TimeoutMS > 0 {
		base.TimeoutMS = override.TimeoutMS
	}
	return base
}

func mergeTimer(base TimerConfig, override TimerConfig) TimerConfig {
	if override.WorkSeconds > 0 {
		base.WorkSeconds = override.WorkSeconds
	}
	if override.ShortBreakSeconds > 0 {
		base.ShortBreakSeconds = override.ShortBreakSeconds
	}
	if override.LongBreakSeconds > 0 {
		base.LongBreakSeconds = override.LongBreakSeconds
	}
	if override.LongBreakEvery > 0 {
		base.LongBreakEvery = override.LongBreakEvery
	}
	return base
}

func mergeGeneration(base GenerationConfig, override GenerationConfig) GenerationConfig {
	if override.MinTasks > 0 {
		base.MinTasks = override.MinTasks
	}
	if override.MaxTasks > 0 {
		base.MaxTasks = override.MaxTasks
	}
	if override.MaxTitleWords > 0 {
		base.MaxTitleWords = override.MaxTitleWords
	}
	if override.MaxGoalTokens > 0 {
		base.MaxGoalTokens = override.MaxGoalTokens
	}
	if override.MaxAttempts > 0 {
		base.MaxAttempts = override.MaxAttempts
	}
	if override.InitialDelayMS > 0 {
		base.InitialDelayMS = override.InitialDelayMS
	}
	return base
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("FOCUSBOARD_BASE_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FOCUSBOARD_MODEL")); v != "" {
		cfg.Provider.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("FOCUSBOARD_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	} else if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("FOCUSBOARD_DATA_DIR")); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("FOCUSBOARD_WORK_SECONDS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid FOCUSBOARD_WORK_SECONDS: %q", v)
		}
		cfg.Timer.WorkSeconds = n
	}
	return nil
}

func normalize(cfg *Config) error {
	def := Default()
	if strings.TrimSpace(cfg.Provider.BaseURL) == "" {
		cfg.Provider.BaseURL = def.Provider.BaseURL
	}
	if strings.TrimSpace(cfg.Provider.Model) == "" {
		cfg.Provider.Model = def.Provider.Model
	}
	if cfg.Provider.TimeoutMS <= 0 {
		cfg.Provider.TimeoutMS = def.Provider.TimeoutMS
	}

	if cfg.Timer.WorkSeconds <= 0 {
		cfg.Timer.WorkSeconds = def.Timer.WorkSeconds
	}
	if cfg.Timer.ShortBreakSeconds <= 0 {
		cfg.Timer.ShortBreakSeconds = def.Timer.ShortBreakSeconds
	}
	if cfg.Timer.LongBreakSeconds <= 0 {
		cfg.Timer.LongBreakSeconds = def.Timer.LongBreakSeconds
	}
	if cfg.Timer.LongBreakEvery <= 0 {
		cfg.Timer.LongBreakEvery = def.Timer.LongBreakEvery
	}

	if cfg.Generation.MinTasks <= 0 {
		cfg.Generation.MinTasks = def.Generation.MinTasks
	}
	if cfg.Generation.MaxTasks < cfg.Generation.MinTasks {
		cfg.Generation.MaxTasks = def.Generation.MaxTasks
	}
	if cfg.Generation.MaxTitleWords <= 0 {
		cfg.Generation.MaxTitleWords = def.Generation.MaxTitleWords
	}
	if cfg.Generation.MaxGoalTokens <= 0 {
		cfg.Generation.MaxGoalTokens = def.Generation.MaxGoalTokens
	}
	if cfg.Generation.MaxAttempts <= 0 {
		cfg.Generation.MaxAttempts = def.Generation.MaxAttempts
	}
	if cfg.Generation.InitialDelayMS <= 0 {
		cfg.Generation.InitialDelayMS = def.Generation.InitialDelayMS
	}

	baseDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return err
	}
	if baseDir == "" {
		baseDir, err = expandPath(def.Storage.BaseDir)
		if err != nil {
			return err
		}
	}
	cfg.Storage.BaseDir = baseDir
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
