package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"library-ledger/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleManifest = `books:
  - title: "1984"
    author: George Orwell
    copies: 3
  - title: Animal Farm
    author: George Orwell
  - author: Nobody
  - title: Broken
    copies: -2
`

func TestImportBooks(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "books.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(sampleManifest), 0o644))
	data := filepath.Join(dir, "library.json")

	seed := library.New()
	seed.AddBook("Existing", "Someone", 1)
	require.NoError(t, seed.Save(data))

	cmd := newImportCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data", data, manifestPath})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Successfully imported: 2 books")
	assert.Contains(t, out.String(), "Skipped: 2")

	lib, err := library.Load(data)
	require.NoError(t, err)
	books := lib.Books()
	require.Len(t, books, 3)
	assert.Equal(t, library.Book{ID: 2, Title: "1984", Author: "George Orwell", AvailableCopies: 3, TotalCopies: 3}, books[1])
	assert.Equal(t, 1, books[2].TotalCopies)
}

func TestImportBooksSkipsInvalid(t *testing.T) {
	lib := library.New()
	added, skipped := importBooks(lib, &manifest{Books: []manifestBook{{Title: "  "}, {Title: "Ok", Copies: 2}}}, zap.NewNop())
	assert.Len(t, added, 1)
	assert.Equal(t, 1, skipped)
}

func TestReadManifestErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := readManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("books: {not: [a list"), 0o644))
	_, err = readManifest(bad)
	assert.Error(t, err)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcd...", truncateString("abcdefghij", 7))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}
