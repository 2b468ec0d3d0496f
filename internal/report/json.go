package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// SaveJSONReport serializes the Result verbatim into resultsDir, appending a
// time-based suffix to the base filename so repeated runs never overwrite
// each other. It returns the path written.
func SaveJSONReport(result *models.Result, outputArg, resultsDir string, logger *logrus.Logger) (string, error) {
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		logger.Errorf("Failed to create results directory: %v", err)
		return "", err
	}

	outputPath := filepath.Join(resultsDir, timestampedName(outputArg, ".json"))

	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		logger.Errorf("Failed to serialize results: %v", err)
		return "", err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		logger.Errorf("Failed to write JSON output: %v", err)
		return "", err
	}

	logger.Infof("JSON results saved to: %s", outputPath)
	return outputPath, nil
}

// timestampedName appends _HHMMSS before the extension, defaulting the
// extension when the caller gave none
func timestampedName(name, defaultExt string) string {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	root := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = defaultExt
	}
	return root + "_" + time.Now().Format("150405") + ext
}
