package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("CSVRECON_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	return logger
}

// LoadEnvironmentVariables loads environment variables from a .env file.
// All settings are optional; the file just provides defaults for the
// CSVRECON_* variables that flags may override.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
		logger.Debugf("No %s file found, using existing environment variables", envFile)
		return
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warningf("Error loading %s file: %v", envFile, err)
		return
	}
	logger.Infof("Loaded environment variables from %s", envFile)

	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "CSVRECON_") {
				logger.Debugf("%s", env)
			}
		}
	}
}

// GetEnv gets a string value from an environment variable
func GetEnv(varName, defaultValue string) string {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt gets an integer value from an environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// SplitList splits a comma-separated flag value into trimmed entries
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseDelimiter converts a delimiter flag value into the rune the CSV
// reader expects; empty means autodetect. "\t" and "tab" name the tab
// character since a literal tab is awkward on a command line.
func ParseDelimiter(value string) (rune, error) {
	switch value {
	case "":
		return 0, nil
	case "\\t", "tab", "\t":
		return '\t', nil
	}
	runes := []rune(value)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", value)
	}
	return runes[0], nil
}
