package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/scoutgraph/scout/errors"
)

// Load reads the Scout configuration using Viper.
// Precedence (lowest to highest): defaults < scout.toml < SCOUT_* env vars.
func Load() (*Config, error) {
	v := initViper()
	return LoadWithViper(v)
}

// LoadWithViper loads configuration from a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	return LoadWithViper(v)
}

func initViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindSensitiveEnvVars(v)

	SetDefaults(v)

	if path := findProjectConfig(); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		// Missing or unreadable project config is not fatal; env and defaults apply.
		_ = v.ReadInConfig()
	}

	return v
}

// bindSensitiveEnvVars explicitly binds credential values so they are picked
// up even when no other key in their section is set.
func bindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("llm.api_key", "SCOUT_LLM_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("tavily.api_key", "SCOUT_TAVILY_API_KEY", "TAVILY_API_KEY")
	v.BindEnv("firecrawl.api_key", "SCOUT_FIRECRAWL_API_KEY", "FIRECRAWL_API_KEY")
	v.BindEnv("perplexity.api_key", "SCOUT_PERPLEXITY_API_KEY", "PERPLEXITY_TOKEN")
}

// SetDefaults applies the default configuration values to a Viper instance
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "scout.db")

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.json_logs", false)

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")

	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("tavily.max_results", 3)
	v.SetDefault("tavily.search_depth", "advanced")

	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev")

	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")

	v.SetDefault("research.requests_per_minute", 60)
}

// findProjectConfig searches for scout.toml by walking up the directory tree.
// Returns the first config file found, or empty string if none.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		path := filepath.Join(dir, "scout.toml")
		if _, err := os.Stat(path); err == nil {
			return path
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
