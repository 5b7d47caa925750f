package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"

	"filemanager/internal/domain"
	"filemanager/internal/hashing"
	"filemanager/internal/random"
	"filemanager/internal/storage"
)

// Определение пользовательских ошибок
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrFileNotFound = errors.New("file not found")
	// ErrUnreadable — запись есть, а блоба в хранилище нет. Нарушение
	// согласованности метаданных и хранилища, каждый случай логируется.
	ErrUnreadable = errors.New("file blob is unreadable")
)

// FileRepo — хранилище метаданных, с которым работает координатор.
// Интерфейс позволяет подменять его в тестах in-memory реализацией.
type FileRepo interface {
	FindByID(ctx context.Context, id string) (*domain.File, error)
	FindByHash(ctx context.Context, hash string) (*domain.File, error)
	CountByHash(ctx context.Context, hash string) (int, error)
	ExistsID(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, file *domain.File) error
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit int) ([]domain.File, error)
}

// Authenticator — коллаборатор аутентификации. nil означает, что загрузка
// не требует авторизации.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (*domain.User, error)
}

// FileService координирует загрузку, скачивание и удаление файлов.
// Файловая система и БД не объединяются общей транзакцией, поэтому загрузка
// выполняется как последовательность шагов с явной компенсацией при сбое.
type FileService struct {
	files        FileRepo
	blobs        storage.BlobStore
	auth         Authenticator
	ids          *random.Generator
	blockedExtns map[string]struct{}
}

func NewFileService(
	files FileRepo,
	blobs storage.BlobStore,
	auth Authenticator,
	ids *random.Generator,
	blockedExtensions []string,
) *FileService {
	blocked := make(map[string]struct{}, len(blockedExtensions))
	for _, ext := range blockedExtensions {
		blocked[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	return &FileService{
		files:        files,
		blobs:        blobs,
		auth:         auth,
		ids:          ids,
		blockedExtns: blocked,
	}
}

// UploadInput описывает принятый boundary-слоем файл: байты уже лежат во
// временном файле, транспортные ошибки приёма проверены.
type UploadInput struct {
	TempPath   string
	OriginName string
	Login      string
	Password   string
}

// Upload проводит загрузку: аутентификация, хеш содержимого, проверка
// дедупликации, физическое размещение (или переиспользование существующего
// блоба), резервирование id и вставка записи. Единственный шаг, делающий
// запись видимой, — вставка; до неё никакая частичная запись не наблюдаема.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*domain.File, error) {
	userID, err := s.authorize(ctx, in.Login, in.Password)
	if err != nil {
		return nil, err
	}

	if s.extensionBlocked(in.OriginName) {
		return nil, domain.NewUploadError(domain.UploadErrExtension)
	}

	hash, err := hashing.File(in.TempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash uploaded file: %w", err)
	}

	file := &domain.File{
		OriginName: in.OriginName,
		Hash:       hash,
		UserID:     userID,
	}

	found, err := s.files.FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	// stored показывает, было ли физическое размещение: только его нужно
	// компенсировать при последующем сбое.
	stored := false

	if found != nil {
		// Дедупликация: содержимое уже хранится, новая запись наследует
		// имя, путь и url существующей. Временный файл больше не нужен.
		file.Name = found.Name
		file.Path = found.Path
		file.URL = found.URL

		if err := os.Remove(in.TempPath); err != nil {
			log.Printf("[Upload] failed to remove temp file %s: %v", in.TempPath, err)
		}
	} else {
		relativePath, err := s.blobs.PlacementPath(in.OriginName)
		if err != nil {
			return nil, fmt.Errorf("failed to build placement path: %w", err)
		}

		if err := s.blobs.Store(ctx, in.TempPath, relativePath); err != nil {
			return nil, fmt.Errorf("failed to store blob: %w", err)
		}

		file.Name = path.Base(relativePath)
		file.Path = relativePath
		file.URL = s.blobs.URL(relativePath)
		stored = true
	}

	id, err := s.makeFileID(ctx)
	if err != nil {
		if stored {
			s.compensateStore(ctx, file.Path)
		}
		return nil, err
	}
	file.ID = id

	if err := s.files.Insert(ctx, file); err != nil {
		if stored {
			s.compensateStore(ctx, file.Path)
		}
		return nil, err
	}

	return file, nil
}

// compensateStore убирает только что записанный блоб после сбоя на поздних
// шагах загрузки. Blob без записи — незаметная утечка места, запись без
// блоба восстановима фоновой чисткой, поэтому компенсируется именно блоб.
// Сбой компенсации логируется, но исходную ошибку не подменяет.
func (s *FileService) compensateStore(ctx context.Context, relativePath string) {
	if err := s.blobs.Delete(ctx, relativePath); err != nil {
		log.Printf("[Upload] compensation failed, orphan blob %s left behind: %v", relativePath, err)
	}
}

func (s *FileService) authorize(ctx context.Context, login, password string) (*int64, error) {
	if s.auth == nil {
		return nil, nil
	}

	user, err := s.auth.Authenticate(ctx, login, password)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	return &user.ID, nil
}

func (s *FileService) extensionBlocked(name string) bool {
	ext := strings.TrimPrefix(storage.SafeExtension(name), ".")
	if ext == "" {
		return false
	}

	_, blocked := s.blockedExtns[ext]
	return blocked
}

// makeFileID подбирает свободный идентификатор записи. Цикл не ограничен:
// пространство id несравнимо больше числа записей, повтор кандидата практически
// невозможен, а вставка в любом случае защищена ограничением уникальности.
func (s *FileService) makeFileID(ctx context.Context) (string, error) {
	for {
		id, err := s.ids.String(random.DefaultLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate file id: %w", err)
		}

		exists, err := s.files.ExistsID(ctx, id)
		if err != nil {
			return "", err
		}

		if !exists {
			return id, nil
		}
	}
}

// Delete удаляет запись; физический блоб удаляется только вместе с последней
// ссылкой на его хеш. Блоб убирается до записи: если его удаление сорвется,
// запись останется и удаление можно повторить.
func (s *FileService) Delete(ctx context.Context, id string) (*domain.File, error) {
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, ErrFileNotFound
	}

	count, err := s.files.CountByHash(ctx, file.Hash)
	if err != nil {
		return nil, err
	}

	if count == 1 {
		if err := s.blobs.Delete(ctx, file.Path); err != nil {
			return nil, fmt.Errorf("failed to delete blob: %w", err)
		}
	}

	removed, err := s.files.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !removed {
		// Параллельное удаление успело раньше
		return nil, ErrFileNotFound
	}

	return file, nil
}

// DownloadResult — открытый на чтение блоб и его метаданные.
type DownloadResult struct {
	File        *domain.File
	Content     io.ReadCloser
	ContentType string
}

// Download ничего не изменяет: находит запись, открывает блоб и определяет
// тип содержимого.
func (s *FileService) Download(ctx context.Context, id string) (*DownloadResult, error) {
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, ErrFileNotFound
	}

	content, err := s.blobs.Open(ctx, file.Path)
	if errors.Is(err, storage.ErrNotExists) {
		log.Printf("[Download] CONSISTENCY VIOLATION: record %s references missing blob %s", file.ID, file.Path)
		return nil, fmt.Errorf("%w: %s", ErrUnreadable, file.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	contentType := s.blobs.GuessContentType(ctx, file.Path)
	if contentType == "" {
		contentType = "text/plain"
	}

	return &DownloadResult{
		File:        file,
		Content:     content,
		ContentType: contentType,
	}, nil
}

// List возвращает записи от новых к старым; limit <= 0 — все.
func (s *FileService) List(ctx context.Context, limit int) ([]domain.File, error) {
	return s.files.List(ctx, limit)
}
