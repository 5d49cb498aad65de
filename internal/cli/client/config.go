package client

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// GlobalConfig represents the settings stored in config.toml
type GlobalConfig struct {
	APIURL        string `toml:"api_url"`
	ClientID      string `toml:"client_id,omitempty"`
	ModelProvider string `toml:"model_provider,omitempty"`
	// APIKey is the model provider credential forwarded on chat requests
	APIKey string `toml:"api_key,omitempty"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "chatbot"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// GetConfigDir returns the platform-specific configuration directory
func GetConfigDir() (string, error) {
	return getConfigDirFunc()
}

// GetConfigPath returns the full path to the config.toml file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads and parses the global config.toml file
// Returns nil config (not error) if file doesn't exist
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes the config to config.toml with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// UpdateGlobalConfig loads the config, applies fn and saves it back
func UpdateGlobalConfig(fn func(*GlobalConfig)) error {
	config, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	if config == nil {
		config = &GlobalConfig{}
	}
	fn(config)
	return SaveGlobalConfig(config)
}

// IsValidClientID reports whether id is a UUID, the only shape the server accepts
func IsValidClientID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ValueSource represents where a setting came from
type ValueSource string

const (
	SourceFlag         ValueSource = "flag"
	SourceEnv          ValueSource = "env"
	SourceGlobalConfig ValueSource = "global_config"
	SourceDefault      ValueSource = "default"
)

// resolveSetting applies the cascade flag -> env -> global config -> default
func resolveSetting(flagValue, envName, configValue, defaultValue string) (string, ValueSource) {
	if flagValue != "" {
		return flagValue, SourceFlag
	}
	if v := os.Getenv(envName); v != "" {
		return v, SourceEnv
	}
	if configValue != "" {
		return configValue, SourceGlobalConfig
	}
	return defaultValue, SourceDefault
}
