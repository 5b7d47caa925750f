package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Local — хранилище блобов на локальном диске под одним корневым каталогом.
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	return &Local{
		root:    abs,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// fullPath преобразует относительный путь в абсолютный и проверяет,
// что результат остаётся под корнем хранилища.
func (l *Local) fullPath(relativePath string) (string, error) {
	if relativePath == "" || strings.Contains(relativePath, "\x00") {
		return "", ErrInvalidPath
	}

	resolved, err := filepath.Abs(filepath.Join(l.root, filepath.FromSlash(relativePath)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if !strings.HasPrefix(resolved, l.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}

	return resolved, nil
}

func (l *Local) PlacementPath(nameHint string) (string, error) {
	return NewPlacementPath(nameHint), nil
}

func (l *Local) Store(_ context.Context, sourcePath, relativePath string) error {
	target, err := l.fullPath(relativePath)
	if err != nil {
		return err
	}

	if _, err := os.Lstat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, relativePath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat target: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	if err := os.Rename(sourcePath, target); err == nil {
		return nil
	}

	// Rename не работает между файловыми системами (временный каталог может
	// быть смонтирован отдельно), в этом случае копируем и удаляем источник.
	if err := copyFile(sourcePath, target); err != nil {
		return fmt.Errorf("failed to store blob: %w", err)
	}

	if err := os.Remove(sourcePath); err != nil {
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}

	return nil
}

func copyFile(sourcePath, target string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return err
	}

	return dst.Close()
}

func (l *Local) Exists(_ context.Context, relativePath string) (bool, error) {
	target, err := l.fullPath(relativePath)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}

	return !info.IsDir(), nil
}

func (l *Local) Delete(_ context.Context, relativePath string) error {
	target, err := l.fullPath(relativePath)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", relativePath, err)
	}

	return nil
}

func (l *Local) Open(_ context.Context, relativePath string) (io.ReadCloser, error) {
	target, err := l.fullPath(relativePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExists, relativePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return f, nil
}

// GuessContentType определяет MIME-тип по первым байтам содержимого,
// расширение имени файла не используется.
func (l *Local) GuessContentType(_ context.Context, relativePath string) string {
	target, err := l.fullPath(relativePath)
	if err != nil {
		return ""
	}

	mtype, err := mimetype.DetectFile(target)
	if err != nil {
		return ""
	}

	return mtype.String()
}

func (l *Local) URL(relativePath string) string {
	return l.baseURL + "/" + strings.TrimLeft(relativePath, "/")
}
