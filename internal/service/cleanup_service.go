package service

import (
	"context"
	"fmt"
	"log"

	"filemanager/internal/storage"
)

// CleanupService находит записи, ссылающиеся на отсутствующие блобы, и убирает
// их. Такие записи появляются после сбоя компенсации при загрузке или внешнего
// вмешательства в хранилище; сами по себе они безвредны, но копятся.
type CleanupService struct {
	files FileRepo
	blobs storage.BlobStore
}

func NewCleanupService(files FileRepo, blobs storage.BlobStore) *CleanupService {
	return &CleanupService{files: files, blobs: blobs}
}

// RemoveOrphanRecords удаляет записи без блоба и возвращает их число.
// Ошибка проверки существования блоба не приводит к удалению записи.
func (s *CleanupService) RemoveOrphanRecords(ctx context.Context) (int, error) {
	files, err := s.files.List(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list file records: %w", err)
	}

	removed := 0
	for _, file := range files {
		exists, err := s.blobs.Exists(ctx, file.Path)
		if err != nil {
			log.Printf("[Cleanup] failed to check blob %s: %v", file.Path, err)
			continue
		}
		if exists {
			continue
		}

		ok, err := s.files.Delete(ctx, file.ID)
		if err != nil {
			log.Printf("[Cleanup] failed to remove orphan record %s: %v", file.ID, err)
			continue
		}
		if ok {
			log.Printf("[Cleanup] removed orphan record %s (missing blob %s)", file.ID, file.Path)
			removed++
		}
	}

	return removed, nil
}
