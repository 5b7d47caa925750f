package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveOrphanRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	healthy, err := env.svc.Upload(ctx, UploadInput{TempPath: tempUpload(t, "healthy"), OriginName: "h.txt"})
	require.NoError(t, err)

	// Две записи делят один блоб; после его пропажи обе становятся сиротами
	orphan1, err := env.svc.Upload(ctx, UploadInput{TempPath: tempUpload(t, "shared"), OriginName: "a.txt"})
	require.NoError(t, err)
	orphan2, err := env.svc.Upload(ctx, UploadInput{TempPath: tempUpload(t, "shared"), OriginName: "b.txt"})
	require.NoError(t, err)

	require.NoError(t, env.blobs.Delete(ctx, orphan1.Path))

	cleanup := NewCleanupService(env.repo, env.blobs)
	removed, err := cleanup.RemoveOrphanRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Сироты удалены, живая запись на месте
	gone, err := env.repo.FindByID(ctx, orphan1.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	gone, err = env.repo.FindByID(ctx, orphan2.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := env.repo.FindByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestRemoveOrphanRecords_Empty(t *testing.T) {
	env := newTestEnv(t)

	cleanup := NewCleanupService(env.repo, env.blobs)
	removed, err := cleanup.RemoveOrphanRecords(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
