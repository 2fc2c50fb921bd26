package gardenutil

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Accepts the environment variables read from the environment file.
type EnvironmentVariableSetter interface {
	Set(key, value string) error
}

// Sets the variables in the current process environment.
type processEnvironmentVariableSetter struct{}

// Constructs a setter that exports the variables into the process.
func NewProcessEnvironmentVariableSetter() EnvironmentVariableSetter {
	return &processEnvironmentVariableSetter{}
}

// Sets the environment variable in the current process.
func (s *processEnvironmentVariableSetter) Set(key, value string) error {
	return errors.WithStack(os.Setenv(key, value))
}

// Loads all entries from the environment file into the setters.
func LoadEnvironmentFileToSetter(path string, setters ...EnvironmentVariableSetter) error {
	data, err := LoadEnvironmentFile(path)
	if err != nil {
		return err
	}

	for key, value := range data {
		for _, setter := range setters {
			if err = setter.Set(key, value); err != nil {
				return errors.WithMessagef(err, "cannot set value for key: '%s'", key)
			}
		}
	}

	return nil
}

// Loads all entries from the environment file.
func LoadEnvironmentFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open the '%s' environment file", path)
	}
	defer file.Close()
	return loadEnvironmentEntries(file)
}

// Loads all entries from a given reader. Empty lines and comments are
// skipped.
func loadEnvironmentEntries(reader io.Reader) (map[string]string, error) {
	data := make(map[string]string)
	scanner := bufio.NewScanner(reader)

	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, errors.Errorf("invalid line %d of environment file: line must contain the key and value separated by the '=' sign", lineIdx)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errors.Errorf("invalid line %d of environment file: key cannot be empty", lineIdx)
		}
		data[key] = strings.Trim(strings.TrimSpace(value), `"`)
	}

	return data, errors.WithStack(scanner.Err())
}
