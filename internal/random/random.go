package random

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Алфавит URL-безопасный: base64 без '/', '+' и '='.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength — длина идентификатора записи (files.id CHAR(40)).
const DefaultLength = 40

// Generator выдаёт случайные строки фиксированной длины.
// Источник случайности подменяемый, чтобы тесты могли задавать детерминированные
// последовательности.
type Generator struct {
	src io.Reader
}

func New() *Generator {
	return &Generator{src: rand.Reader}
}

func NewFromSource(src io.Reader) *Generator {
	return &Generator{src: src}
}

// String возвращает случайную строку длины length из алфавита генератора.
func (g *Generator) String(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid length %d", length)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(g.src, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}

	return string(buf), nil
}
