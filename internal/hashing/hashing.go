package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// File возвращает hex-представление sha256 от содержимого файла.
// Хеш зависит только от байтов, имя файла на результат не влияет.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	return Reader(f)
}

// Reader возвращает hex-представление sha256 прочитанных байтов.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to read content for hashing: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
