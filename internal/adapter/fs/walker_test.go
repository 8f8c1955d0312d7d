package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalkerIncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "docs/guide.md", "# guide")
	writeFile(t, root, "docs/image.png", "png")
	writeFile(t, root, ".git/HEAD.txt", "ref")
	writeFile(t, root, "node_modules/pkg/readme.md", "pkg")

	files, err := NewWalker(nil, nil).Walk(root)
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		rel = append(rel, f.RelPath)
		assert.True(t, filepath.IsAbs(f.Path))
		assert.Positive(t, f.Size)
	}
	assert.Equal(t, []string{"a.txt", "docs/guide.md"}, rel)
}

func TestWalkerCustomPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes/keep.log", "x")
	writeFile(t, root, "notes/skip/drop.log", "y")

	files, err := NewWalker([]string{"**/*.log"}, []string{"notes/skip/**"}).Walk(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "notes/keep.log", files[0].RelPath)
}

func TestWalkerMissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestReadText(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.txt", "héllo")
	writeFile(t, root, "bin.txt", "a\x00b")

	text, err := ReadText(filepath.Join(root, "ok.txt"))
	require.NoError(t, err)
	assert.Equal(t, "héllo", text)

	_, err = ReadText(filepath.Join(root, "bin.txt"))
	assert.Error(t, err)
}
