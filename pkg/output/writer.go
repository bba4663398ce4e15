// Package output persists ranked results to disk.
package output

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/projectdiscovery/edgefinder/pkg/types"
	"github.com/projectdiscovery/gologger"
	fileutil "github.com/projectdiscovery/utils/file"
)

// WriteResults writes one formatted line per result, replacing any previous
// content of the file. The parent directory is created when missing.
func WriteResults(results []*types.Result, filename string) error {
	if dir := filepath.Dir(filename); dir != "." && !fileutil.FolderExists(dir) {
		if err := fileutil.CreateFolder(dir); err != nil {
			return err
		}
	}

	lines := make([]string, 0, len(results))
	for _, result := range results {
		lines = append(lines, result.DisplayFormat())
	}

	if err := os.WriteFile(filename, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}

	gologger.Info().Msgf("saved %d endpoints to %s", len(results), filename)
	return nil
}
