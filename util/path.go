package gardenutil

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Returns the paths of all files (directories are skipped) in a given
// directory. The paths are sorted lexicographically if requested.
func ListFilePaths(directory string, sortByPath bool) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		err = errors.Wrapf(err, "cannot list directory: %s", directory)
		return nil, err
	}

	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(directory, entry.Name()))
	}

	if sortByPath {
		sort.Strings(files)
	}

	return files, nil
}
