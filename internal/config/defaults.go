package config

import "time"

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultLogLevel    = "info"

	DefaultMaxRows = 1000

	DefaultLLMProvider    = "openai"
	DefaultLLMBaseURL     = "https://api.groq.com/openai/v1"
	DefaultLLMModel       = "llama-3.3-70b-versatile"
	DefaultAnthropicModel = "claude-sonnet-4-6"
	DefaultLLMTemperature = 0.1
	DefaultLLMMaxTokens   = 1024
	DefaultLLMTimeout     = 30 * time.Second

	DefaultDBMinConns       = 2
	DefaultDBMaxConns       = 20
	DefaultDBConnectTimeout = 10 * time.Second
)

var DefaultCORSOrigins = []string{"*"}
