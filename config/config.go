// Package config loads and validates the Scout service configuration.
package config

// Config represents the core Scout configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Tavily     TavilyConfig     `mapstructure:"tavily"`
	Firecrawl  FirecrawlConfig  `mapstructure:"firecrawl"`
	Perplexity PerplexityConfig `mapstructure:"perplexity"`
	Research   ResearchConfig   `mapstructure:"research"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the Scout web server
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	JSONLogs       bool     `mapstructure:"json_logs"`
}

// DefaultServerPort is used when no port is configured.
const DefaultServerPort = 8720

// LLMConfig configures the chat-completions API used for summarization
type LLMConfig struct {
	APIKey      string   `mapstructure:"api_key"`
	BaseURL     string   `mapstructure:"base_url"`    // OpenAI-compatible endpoint root
	Model       string   `mapstructure:"model"`       // Default model (e.g., "gpt-4o")
	Temperature *float64 `mapstructure:"temperature"` // Sampling temperature (nil = default 0)
	MaxTokens   *int     `mapstructure:"max_tokens"`  // Maximum tokens per request (nil = default)
}

// TavilyConfig configures the Tavily search API
type TavilyConfig struct {
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	MaxResults  int    `mapstructure:"max_results"`  // Results per search (default: 3)
	SearchDepth string `mapstructure:"search_depth"` // "basic" or "advanced" (default: advanced)
}

// FirecrawlConfig configures the Firecrawl scrape API
type FirecrawlConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// PerplexityConfig configures the Perplexity answer API used as the
// zero-result fallback for idea research
type PerplexityConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"` // default: "sonar-pro"
}

// ResearchConfig configures the research scheduler and rate limits
type ResearchConfig struct {
	// RequestsPerMinute caps outbound retrieval API calls. 0 disables the limiter.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}
