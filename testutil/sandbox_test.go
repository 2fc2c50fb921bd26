package testutil

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test that the sandbox creates and removes the files.
func TestSandbox(t *testing.T) {
	// Arrange
	sb := NewSandbox()

	// Act
	filePath, err := sb.Write("foo/bar.json", "{}")
	require.NoError(t, err)
	dirPath, err := sb.JoinDir("baz")
	require.NoError(t, err)
	emptyPath, err := sb.Join("empty")
	require.NoError(t, err)

	// Assert
	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	require.Equal(t, "{}", string(content))
	require.Equal(t, path.Join(sb.BasePath, "foo", "bar.json"), filePath)
	require.DirExists(t, dirPath)
	require.FileExists(t, emptyPath)

	sb.Close()
	require.NoDirExists(t, sb.BasePath)
}
