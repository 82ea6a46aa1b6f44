package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/pharmacare-api/pkg/storage"
)

func TestLocalDiskLifecycle(t *testing.T) {
	ctx := context.Background()
	d := storage.NewLocalDisk(t.TempDir(), "http://localhost:8080/uploads/")

	require.NoError(t, d.Put(ctx, "prescriptions/a.pdf", strings.NewReader("%PDF-1.4"), "application/pdf"))

	ok, err := d.Exists(ctx, "prescriptions/a.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := d.Open(ctx, "prescriptions/a.pdf")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.4", string(data))

	assert.Equal(t, "http://localhost:8080/uploads/prescriptions/a.pdf", d.URL("prescriptions/a.pdf"))

	require.NoError(t, d.Delete(ctx, "prescriptions/a.pdf"))
	require.NoError(t, d.Delete(ctx, "prescriptions/a.pdf"))

	_, err = d.Open(ctx, "prescriptions/a.pdf")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestLocalDiskStaysInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	d := storage.NewLocalDisk(root, "")

	require.NoError(t, d.Put(ctx, "../../escape.txt", strings.NewReader("x"), ""))
	ok, err := d.Exists(ctx, "escape.txt")
	require.NoError(t, err)
	assert.True(t, ok, "traversal is clamped to the disk root")
}

func TestManagerUse(t *testing.T) {
	m := storage.NewManager("local")
	m.Register("local", storage.NewLocalDisk(t.TempDir(), ""))

	_, err := m.Use("s3")
	assert.Error(t, err)

	root, ok := m.LocalRoot()
	assert.True(t, ok)
	assert.NotEmpty(t, root)
}
