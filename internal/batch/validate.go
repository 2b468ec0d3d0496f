package batch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mxdataops/csv-reconciler/internal/loader"
	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// ValidateDirectory sweeps a directory and checks that every CSV header
// carries the key columns its rules demand, reading only the header of each
// file. It is the cheap pre-flight before a full batch run.
func ValidateDirectory(dir string, defaults models.Config, rules *RulesConfig, tl *loader.TableLoader, logger *logrus.Logger) ([]models.HeaderValidation, error) {
	files, err := listCSVFiles(dir)
	if err != nil {
		return nil, err
	}

	results := make([]models.HeaderValidation, 0, len(files))
	for _, filename := range files {
		cfg := rules.Resolve(filename, defaults)
		results = append(results, validateHeader(filepath.Join(dir, filename), filename, cfg, tl, logger))
	}
	return results, nil
}

func validateHeader(path, filename string, cfg models.Config, tl *loader.TableLoader, logger *logrus.Logger) models.HeaderValidation {
	v := models.HeaderValidation{FileName: filename}

	if len(cfg.KeyColumns) == 0 {
		v.Status = "NOK"
		v.Reason = "No key columns configured for this file"
		return v
	}

	headers, err := tl.LoadHeader(path, cfg)
	if err != nil {
		logger.Warningf("Could not read header of %s: %v", filename, err)
		v.Status = "ERROR"
		v.Reason = err.Error()
		return v
	}
	v.Headers = headers

	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, k := range cfg.KeyColumns {
		if !present[k] {
			missing = append(missing, k)
		}
	}

	if len(missing) > 0 {
		v.Status = "NOK"
		v.Reason = fmt.Sprintf("Missing required keys: %s", strings.Join(missing, ", "))
		return v
	}
	v.Status = "OK"
	v.Reason = "All required keys present"
	return v
}
