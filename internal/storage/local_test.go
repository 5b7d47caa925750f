package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocal(t *testing.T) *Local {
	t.Helper()

	l, err := NewLocal(t.TempDir(), "http://localhost:2525/storage")
	require.NoError(t, err)
	return l
}

func tempSource(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "upload.tmp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPlacementPath_Format(t *testing.T) {
	l := setupLocal(t)

	path, err := l.PlacementPath("report.PDF")
	require.NoError(t, err)

	date := time.Now().Format("2006-01-02")
	assert.Regexp(t, regexp.MustCompile(`^`+date+`/[0-9a-f-]{36}\.pdf$`), path)
}

func TestPlacementPath_Unique(t *testing.T) {
	l := setupLocal(t)

	p1, err := l.PlacementPath("a.txt")
	require.NoError(t, err)
	p2, err := l.PlacementPath("a.txt")
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
}

func TestPlacementPath_TraversalHint(t *testing.T) {
	l := setupLocal(t)

	for _, hint := range []string{
		"../../etc/passwd",
		"..\\..\\windows\\system32\\cmd.exe",
		"/etc/shadow",
		"nested/dir/file.txt",
	} {
		path, err := l.PlacementPath(hint)
		require.NoError(t, err)
		assert.NotContains(t, path, "..")

		// Путь должен резолвиться внутрь корня
		_, err = l.fullPath(path)
		assert.NoError(t, err, "hint %q produced invalid path %q", hint, path)
	}
}

func TestPlacementPath_StrangeExtensionDropped(t *testing.T) {
	l := setupLocal(t)

	path, err := l.PlacementPath("weird.ex t")
	require.NoError(t, err)
	assert.NotContains(t, filepath.Base(path), ".")
}

func TestStore_MovesFile(t *testing.T) {
	l := setupLocal(t)
	ctx := context.Background()
	src := tempSource(t, "payload")

	require.NoError(t, l.Store(ctx, src, "2024-01-01/blob.txt"))

	// Источник перемещён, не скопирован
	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	exists, err := l.Exists(ctx, "2024-01-01/blob.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := l.Open(ctx, "2024-01-01/blob.txt")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestStore_CreatesIntermediateDirs(t *testing.T) {
	l := setupLocal(t)

	require.NoError(t, l.Store(context.Background(), tempSource(t, "x"), "2024-01-01/deep/blob.bin"))

	exists, err := l.Exists(context.Background(), "2024-01-01/deep/blob.bin")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_TargetExists(t *testing.T) {
	l := setupLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Store(ctx, tempSource(t, "first"), "2024-01-01/blob.txt"))

	err := l.Store(ctx, tempSource(t, "second"), "2024-01-01/blob.txt")
	require.ErrorIs(t, err, ErrTargetExists)

	// Содержимое не перезаписано
	rc, err := l.Open(ctx, "2024-01-01/blob.txt")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestStore_RejectsTraversal(t *testing.T) {
	l := setupLocal(t)

	err := l.Store(context.Background(), tempSource(t, "evil"), "../escape.txt")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestExists_Missing(t *testing.T) {
	l := setupLocal(t)

	exists, err := l.Exists(context.Background(), "2024-01-01/ghost.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDelete_Idempotent(t *testing.T) {
	l := setupLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Store(ctx, tempSource(t, "bye"), "2024-01-01/blob.txt"))
	require.NoError(t, l.Delete(ctx, "2024-01-01/blob.txt"))

	exists, err := l.Exists(ctx, "2024-01-01/blob.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	// Повторное удаление не ошибка
	assert.NoError(t, l.Delete(ctx, "2024-01-01/blob.txt"))
}

func TestDelete_RejectsTraversal(t *testing.T) {
	l := setupLocal(t)

	outside := filepath.Join(filepath.Dir(l.root), "victim.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0o644))
	defer os.Remove(outside)

	err := l.Delete(context.Background(), "../victim.txt")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)
}

func TestOpen_Missing(t *testing.T) {
	l := setupLocal(t)

	_, err := l.Open(context.Background(), "2024-01-01/ghost.txt")
	assert.ErrorIs(t, err, ErrNotExists)
}

func TestGuessContentType_ByContent(t *testing.T) {
	l := setupLocal(t)
	ctx := context.Background()

	// PNG-сигнатура при расширении .txt: тип должен определяться по байтам
	src := filepath.Join(t.TempDir(), "upload.tmp")
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}
	require.NoError(t, os.WriteFile(src, png, 0o644))
	require.NoError(t, l.Store(ctx, src, "2024-01-01/img.txt"))

	assert.Equal(t, "image/png", l.GuessContentType(ctx, "2024-01-01/img.txt"))
}

func TestGuessContentType_Missing(t *testing.T) {
	l := setupLocal(t)

	assert.Empty(t, l.GuessContentType(context.Background(), "2024-01-01/ghost.bin"))
}

func TestURL(t *testing.T) {
	l := setupLocal(t)

	assert.Equal(t,
		"http://localhost:2525/storage/2024-01-01/blob.txt",
		l.URL("2024-01-01/blob.txt"),
	)
}
