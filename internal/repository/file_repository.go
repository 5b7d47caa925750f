package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"filemanager/internal/domain"
)

// ErrConflict — нарушение уникальности id при вставке. На практике означает
// коллизию генератора идентификаторов, которую предварительная проверка не поймала.
var ErrConflict = errors.New("record id already exists")

// Код unique_violation в Postgres.
const pgUniqueViolation = "23505"

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// FindByID возвращает запись по идентификатору, nil если записи нет.
func (r *FileRepository) FindByID(ctx context.Context, id string) (*domain.File, error) {
	var file domain.File
	query := `SELECT id, name, origin_name, path, url, hash, user_id, created_at
	          FROM files WHERE id = $1`

	err := r.db.GetContext(ctx, &file, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file by id: %w", err)
	}

	return &file, nil
}

// FindByHash возвращает любую запись с данным хешом содержимого, nil если таких нет.
// Используется дедупликацией: имя, путь и url найденной записи наследуются новой.
func (r *FileRepository) FindByHash(ctx context.Context, hash string) (*domain.File, error) {
	var file domain.File
	query := `SELECT id, name, origin_name, path, url, hash, user_id, created_at
	          FROM files WHERE hash = $1 LIMIT 1`

	err := r.db.GetContext(ctx, &file, query, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file by hash: %w", err)
	}

	return &file, nil
}

// CountByHash возвращает число записей, ссылающихся на данный хеш. Удаление
// по нему решает, последняя ли это ссылка на физический файл.
func (r *FileRepository) CountByHash(ctx context.Context, hash string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM files WHERE hash = $1`

	if err := r.db.GetContext(ctx, &count, query, hash); err != nil {
		return 0, fmt.Errorf("failed to count files by hash: %w", err)
	}

	return count, nil
}

func (r *FileRepository) ExistsID(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)`

	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("failed to check id existence: %w", err)
	}

	return exists, nil
}

// Insert создает запись о файле. Уникальность id дополнительно защищена
// ограничением в БД: его нарушение возвращается как ErrConflict.
func (r *FileRepository) Insert(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (id, name, origin_name, path, url, hash, user_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		file.ID,
		file.Name,
		file.OriginName,
		file.Path,
		file.URL,
		file.Hash,
		file.UserID,
	).Scan(&file.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, file.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert file record: %w", err)
	}

	return nil
}

// Delete удаляет запись и сообщает, была ли она найдена.
func (r *FileRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete file record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

// List возвращает записи от новых к старым. limit <= 0 — без ограничения.
func (r *FileRepository) List(ctx context.Context, limit int) ([]domain.File, error) {
	files := make([]domain.File, 0)

	var err error
	if limit > 0 {
		query := `SELECT id, name, origin_name, path, url, hash, user_id, created_at
		          FROM files ORDER BY created_at DESC LIMIT $1`
		err = r.db.SelectContext(ctx, &files, query, limit)
	} else {
		query := `SELECT id, name, origin_name, path, url, hash, user_id, created_at
		          FROM files ORDER BY created_at DESC`
		err = r.db.SelectContext(ctx, &files, query)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}
