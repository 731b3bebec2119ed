package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prospecta/leads-api/internal/config"
	"github.com/prospecta/leads-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorageInterfaceCompliance(t *testing.T) {
	var _ storage.Storage = (*storage.LocalStorage)(nil)
	var _ storage.Storage = (*storage.AzureBlobStorage)(nil)
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "exports")

	ls, err := storage.NewLocalStorage(basePath)
	require.NoError(t, err)
	assert.NotNil(t, ls)

	info, err := os.Stat(basePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_PutOpenRoundtrip(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	content := "cnpj,razao_social\n11.222.333/0001-81,ACME\n"
	size, err := ls.Put(ctx, "exports/leads-1.csv", "text/csv", strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	rc, err := ls.Open(ctx, "exports/leads-1.csv")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestLocalStorage_PutOverwrites(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ls.Put(ctx, "a.csv", "text/csv", bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	_, err = ls.Put(ctx, "a.csv", "text/csv", bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	rc, err := ls.Open(ctx, "a.csv")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "second", string(got))
}

func TestLocalStorage_OpenMissing(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = ls.Open(context.Background(), "exports/missing.csv")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLocalStorage_Delete(t *testing.T) {
	ls, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = ls.Put(ctx, "exports/x.csv", "text/csv", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, ls.Delete(ctx, "exports/x.csv"))
	_, err = ls.Open(ctx, "exports/x.csv")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.NoError(t, ls.Delete(ctx, "exports/x.csv"), "deleting twice is not an error")
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{key: "exports/leads-20240101T000000Z-ab12.csv", valid: true},
		{key: "report.csv", valid: true},
		{key: "", valid: false},
		{key: "../etc/passwd", valid: false},
		{key: "exports/../../secret", valid: false},
		{key: "/abs/path.csv", valid: false},
		{key: "exports//double.csv", valid: false},
		{key: "exports/.hidden", valid: false},
		{key: "with space.csv", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := storage.ValidateKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, storage.ErrInvalidKey)
			}
		})
	}
}

func TestNewStorage(t *testing.T) {
	s, err := storage.NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)

	_, err = storage.NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err)
}
