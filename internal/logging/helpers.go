package logging

import (
	"strings"
)

// LogLevelFromString converts string to LogLevel
func LogLevelFromString(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// InitializeFromConfig initializes the global logger from configuration
func InitializeFromConfig(nodeID string, logConfig LogConfig) (*Logger, error) {
	config := Config{
		Level:         LogLevelFromString(logConfig.Level),
		NodeID:        nodeID,
		EnableConsole: logConfig.EnableConsole,
		BufferSize:    logConfig.BufferSize,
	}

	logger := NewLogger(config)
	SetGlobalLogger(logger)

	return logger, nil
}

// LogConfig represents logging configuration (matching the YAML structure
// in pkg/config.LoggingConfig)
type LogConfig struct {
	Level         string `yaml:"level"`
	EnableConsole bool   `yaml:"enable_console"`
	BufferSize    int    `yaml:"buffer_size"`
}

// ComponentNames for structured logging
const (
	ComponentEngine = "engine"
	ComponentFilter = "filter"
	ComponentConfig = "config"
)

// ActionNames for structured logging
const (
	ActionInsert     = "insert"
	ActionFind       = "find"
	ActionErase      = "erase"
	ActionEvict      = "evict"
	ActionRemediate  = "remediate"
	ActionVictim     = "victim"
	ActionValidation = "validation"
)
