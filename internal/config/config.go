package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSocketPath   = "/tmp/caraoke_app.sock"
	DefaultTickInterval = 50 * time.Millisecond
)

func getDefaultExportDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "caraoke_export"
	}
	return filepath.Join(homeDir, "Music", "caraoke")
}

// TomlConfig TOML配置文件结构
type TomlConfig struct {
	App struct {
		SocketPath   string `toml:"socket_path"`
		TickInterval string `toml:"tick_interval"`
		ExportDir    string `toml:"export_dir"`
	} `toml:"app"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"` // for OpenAI
	} `toml:"ai"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Recorder struct {
		Device string `toml:"device"`
	} `toml:"recorder"`
}

// AppConfig 应用配置
type AppConfig struct {
	SocketPath   string
	TickInterval time.Duration
	ExportDir    string
}

// AIConfig AI配置
type AIConfig struct {
	ModuleName string
	APIKey     string
	BaseURL    string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RecorderConfig 录音配置
type RecorderConfig struct {
	Device string
}

// Config 主配置结构
type Config struct {
	App      AppConfig
	AI       AIConfig
	Redis    RedisConfig
	Recorder RecorderConfig
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	// 优先使用 XDG_CONFIG_HOME 环境变量
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "caraoke", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("WARN: Cannot get user home directory: %v", err)
		return "config.toml"
	}
	return filepath.Join(homeDir, ".config", "caraoke", "config.toml")
}

// loadTomlConfig 加载TOML配置文件，不存在时返回空配置
func loadTomlConfig() (*TomlConfig, error) {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("INFO: Config file not found at %s, using defaults", configPath)
		return &TomlConfig{}, nil
	}

	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, err
	}

	log.Printf("INFO: Loaded config from %s", configPath)
	return &config, nil
}

func Load() *Config {
	tomlConfig, err := loadTomlConfig()
	if err != nil {
		log.Printf("ERROR: Failed to load config file: %v", err)
		log.Printf("INFO: Using default configuration")
		tomlConfig = &TomlConfig{}
	}

	// 默认值
	config := &Config{
		App: AppConfig{
			SocketPath:   DefaultSocketPath,
			TickInterval: DefaultTickInterval,
			ExportDir:    getDefaultExportDir(),
		},
		AI: AIConfig{
			ModuleName: "gemini",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}

	// TOML覆盖默认值
	if tomlConfig.App.SocketPath != "" {
		config.App.SocketPath = tomlConfig.App.SocketPath
	}
	if tomlConfig.App.TickInterval != "" {
		if duration, err := time.ParseDuration(tomlConfig.App.TickInterval); err == nil {
			config.App.TickInterval = duration
		} else {
			log.Printf("WARN: Invalid tick_interval format '%s', using default", tomlConfig.App.TickInterval)
		}
	}
	if tomlConfig.App.ExportDir != "" {
		config.App.ExportDir = tomlConfig.App.ExportDir
	}

	if tomlConfig.AI.ModuleName != "" {
		config.AI.ModuleName = tomlConfig.AI.ModuleName
	}
	if tomlConfig.AI.BaseURL != "" {
		config.AI.BaseURL = tomlConfig.AI.BaseURL
	}
	if tomlConfig.AI.APIKey != "" {
		config.AI.APIKey = tomlConfig.AI.APIKey
	}

	if tomlConfig.Redis.Addr != "" {
		config.Redis.Addr = tomlConfig.Redis.Addr
	}
	if tomlConfig.Redis.Password != "" {
		config.Redis.Password = tomlConfig.Redis.Password
	}
	if tomlConfig.Redis.DB != 0 {
		config.Redis.DB = tomlConfig.Redis.DB
	}

	config.Recorder.Device = tomlConfig.Recorder.Device

	if config.AI.APIKey == "" {
		log.Printf("WARN: No AI API key configured in %s, lyric generation will be disabled", getConfigPath())
	}

	return config
}
