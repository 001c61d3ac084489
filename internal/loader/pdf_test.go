package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("report.pdf"))
	assert.True(t, IsPDF("REPORT.PDF"))
	assert.True(t, IsPDF("/tmp/dir/report.Pdf"))
	assert.False(t, IsPDF("notes.txt"))
	assert.False(t, IsPDF("archive.pdf.zip"))
	assert.False(t, IsPDF("pdf"))
	assert.False(t, IsPDF(""))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLoadFailure)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLoadFailure)
}

func TestLoadCorruptBodyDoesNotPanic(t *testing.T) {
	// valid header but a cross-reference offset past EOF; the pdf library
	// panics on this instead of returning an error
	content := "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\nstartxref\n9999999\n%%EOF"
	path := filepath.Join(t.TempDir(), "truncated.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	docs, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLoadFailure)
	assert.Nil(t, docs)
}
