package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ошибки хранилища блобов.
var (
	// ErrNotExists — запрошенного блоба нет в хранилище.
	ErrNotExists = errors.New("blob does not exist")
	// ErrTargetExists — целевой путь уже занят; молчаливая перезапись запрещена.
	ErrTargetExists = errors.New("target path already exists")
	// ErrInvalidPath — путь выходит за пределы корня хранилища.
	ErrInvalidPath = errors.New("path escapes storage root")
)

// BlobStore определяет интерфейс физического хранилища файлов.
// Хранилище ничего не знает о том, какие записи метаданных ссылаются на блоб.
type BlobStore interface {
	// PlacementPath строит относительный путь для нового блоба вида
	// {YYYY-MM-DD}/{случайное имя}{расширение из nameHint}.
	PlacementPath(nameHint string) (string, error)
	// Store перемещает файл из временного расположения по относительному пути.
	Store(ctx context.Context, sourcePath, relativePath string) error
	Exists(ctx context.Context, relativePath string) (bool, error)
	// Delete идемпотентен: отсутствие блоба ошибкой не считается.
	Delete(ctx context.Context, relativePath string) error
	Open(ctx context.Context, relativePath string) (io.ReadCloser, error)
	// GuessContentType определяет MIME-тип по содержимому блоба,
	// пустая строка — тип определить не удалось.
	GuessContentType(ctx context.Context, relativePath string) string
	// URL возвращает публичный адрес блоба.
	URL(relativePath string) string
}

// NewPlacementPath строит относительный путь {YYYY-MM-DD}/{uuid}{ext} для нового
// блоба. Датированный каталог — только удобство навигации, случайное имя делает
// путь уникальным для каждой попытки загрузки.
func NewPlacementPath(nameHint string) string {
	return time.Now().Format("2006-01-02") + "/" + uuid.New().String() + SafeExtension(nameHint)
}

// SafeExtension извлекает расширение из клиентского имени файла. Каталожная часть
// отбрасывается, расширение с посторонними символами не используется вовсе.
func SafeExtension(nameHint string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filepath.FromSlash(nameHint))))
	if len(ext) < 2 {
		return ""
	}

	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}

	return ext
}
