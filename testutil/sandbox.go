package testutil

import (
	"os"
	"path"

	log "github.com/sirupsen/logrus"
)

// Sandbox creates a unique temporary directory for the files used by a
// test and removes it with all its content on Close.
type Sandbox struct {
	BasePath string
}

// Creates a new sandbox in the temporary directory.
func NewSandbox() *Sandbox {
	dir, err := os.MkdirTemp("", "walledgarden_ut_*")
	if err != nil {
		log.Fatal(err)
	}
	return &Sandbox{
		BasePath: dir,
	}
}

// Removes the sandbox and all its contents.
func (sb *Sandbox) Close() {
	os.RemoveAll(sb.BasePath)
}

// Creates an empty file (and the missing parent directories) in the
// sandbox and returns its full path.
func (sb *Sandbox) Join(name string) (string, error) {
	return sb.Write(name, "")
}

// Creates a directory (and the missing parents) in the sandbox and returns
// its full path.
func (sb *Sandbox) JoinDir(name string) (string, error) {
	dirPath := path.Join(sb.BasePath, name)
	if err := os.MkdirAll(dirPath, 0o777); err != nil {
		return "", err
	}
	return dirPath, nil
}

// Creates a file with the given content in the sandbox and returns its
// full path.
func (sb *Sandbox) Write(name string, content string) (string, error) {
	filePath := path.Join(sb.BasePath, name)
	if err := os.MkdirAll(path.Dir(filePath), 0o777); err != nil {
		return "", err
	}
	if err := os.WriteFile(filePath, []byte(content), 0o600); err != nil {
		return "", err
	}
	return filePath, nil
}
