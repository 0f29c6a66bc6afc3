package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("Subject: x\n\nbody\n"), 0644))
}

// TestScan_FindsNestedEML tests recursive discovery with relative paths
func TestScan_FindsNestedEML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.eml")
	writeFile(t, root, "2024/01/b.EML")
	writeFile(t, root, "notes.txt")
	writeFile(t, root, ".trash/c.eml")

	files, err := NewScanner(root).Scan(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.eml", "2024/01/b.EML"}, files)
}

// TestScan_MissingRoot tests error handling for a missing directory
func TestScan_MissingRoot(t *testing.T) {
	_, err := NewScanner(filepath.Join(t.TempDir(), "nope")).Scan(context.Background())
	assert.Error(t, err)
}

// TestScan_Cancelled stops walking once the context is done
func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.eml")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(root).Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestScanWithCallback reports each file with its position
func TestScanWithCallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.eml")
	writeFile(t, root, "sub/b.eml")

	var seen []string
	err := NewScanner(root).ScanWithCallback(context.Background(), func(path string, index, total int) error {
		assert.Equal(t, 2, total)
		assert.Equal(t, len(seen)+1, index)
		seen = append(seen, path)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.eml", "sub/b.eml"}, seen)
}

// TestScanWithCallback_Error stops at the first callback error
func TestScanWithCallback_Error(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.eml")
	writeFile(t, root, "b.eml")

	boom := errors.New("boom")
	calls := 0
	err := NewScanner(root).ScanWithCallback(context.Background(), func(string, int, int) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

// TestCountEMLFiles counts without descending into hidden directories
func TestCountEMLFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.eml")
	writeFile(t, root, "sub/b.eml")
	writeFile(t, root, ".hidden/c.eml")
	writeFile(t, root, "d.txt")

	count, err := NewScanner(root).CountEMLFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = NewScanner(filepath.Join(root, "nope")).CountEMLFiles(context.Background())
	assert.Error(t, err)
}

// TestResolve tests the path traversal protection
func TestResolve(t *testing.T) {
	s := NewScanner("/home/user/emails")

	tests := []struct {
		name        string
		path        string
		shouldError bool
	}{
		{name: "Valid relative path", path: "inbox/test.eml"},
		{name: "Path traversal with ../", path: "../../../etc/passwd", shouldError: true},
		{name: "Path traversal hidden in path", path: "inbox/../../etc/shadow", shouldError: true},
		{name: "Absolute path", path: "/etc/passwd", shouldError: true},
		{name: "Valid file starting with dots", path: "inbox/..hidden.eml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := s.Resolve(tt.path)
			if tt.shouldError {
				assert.ErrorIs(t, err, ErrPathTraversal, "Expected path traversal error for %q", tt.path)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join("/home/user/emails", filepath.FromSlash(tt.path)), resolved)
		})
	}
}

func TestIsEML(t *testing.T) {
	assert.True(t, IsEML("x.eml"))
	assert.True(t, IsEML("dir/X.EML"))
	assert.False(t, IsEML("x.emlx"))
	assert.False(t, IsEML("eml"))
}
