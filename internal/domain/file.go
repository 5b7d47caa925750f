package domain

import (
	"time"
)

// File представляет запись о загруженном файле.
// Запись неизменяема после вставки: только insert и delete, обновлений нет.
// Несколько записей могут ссылаться на один физический файл (общие hash и path),
// при этом id у каждой записи свой.
type File struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	OriginName string    `json:"origin_name" db:"origin_name"`
	Path       string    `json:"path" db:"path"`
	URL        string    `json:"url" db:"url"`
	Hash       string    `json:"hash" db:"hash"`
	UserID     *int64    `json:"user_id,omitempty" db:"user_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// FileUploadResponse представляет ответ на загрузку файла
type FileUploadResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Hash string `json:"hash"`
}

// FileDeleteResponse представляет ответ на удаление файла
type FileDeleteResponse struct {
	ID string `json:"id"`
}
