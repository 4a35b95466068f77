package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/treasury/internal/errs"
)

func TestResolve(t *testing.T) {
	s, err := Resolve("gs://treasury-imports/2024/INFORME TESORERIA.xlsx")
	require.NoError(t, err)
	assert.Equal(t, GCS{Bucket: "treasury-imports", Object: "2024/INFORME TESORERIA.xlsx"}, s)

	s, err = Resolve("/data/informe.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "informe.xlsx", s.Name())

	for _, bad := range []string{"", "gs://", "gs://bucket", "gs://bucket/"} {
		_, err := Resolve(bad)
		assert.ErrorIs(t, err, errs.ErrInvalid, bad)
	}
}

func TestResolveWithinRejectsArbitraryPaths(t *testing.T) {
	s, err := ResolveWithin("gs://treasury-imports/informe.xlsx", "")
	require.NoError(t, err)
	assert.Equal(t, GCS{Bucket: "treasury-imports", Object: "informe.xlsx"}, s)

	for _, p := range []string{"/etc/passwd", "informe.xlsx", "../informe.xlsx"} {
		_, err := ResolveWithin(p, "")
		assert.ErrorIs(t, err, errs.ErrInvalid, p)
	}

	dir := t.TempDir()
	for _, p := range []string{"/etc/passwd", "../secret.xlsx", "2024/../../secret.xlsx"} {
		_, err := ResolveWithin(p, dir)
		assert.ErrorIs(t, err, errs.ErrInvalid, p)
	}

	s, err = ResolveWithin("2024/informe.xlsx", dir)
	require.NoError(t, err)
	assert.Equal(t, File{Path: filepath.Join(dir, "2024", "informe.xlsx")}, s)
}

func TestFileOpen(t *testing.T) {
	dir := t.TempDir()
	_, err := File{Path: filepath.Join(dir, "missing.xlsx")}.Open(context.Background())
	assert.ErrorIs(t, err, errs.ErrFileNotFound)

	p := filepath.Join(dir, "ok.xlsx")
	require.NoError(t, os.WriteFile(p, []byte("data"), 0o600))
	rc, err := File{Path: p}.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
}

func TestBytesOpen(t *testing.T) {
	_, err := Bytes{Filename: "empty.xlsx"}.Open(context.Background())
	assert.ErrorIs(t, err, errs.ErrFileNotFound)

	rc, err := Bytes{Filename: "a.xlsx", Data: []byte("x")}.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, rc.Close())
}
