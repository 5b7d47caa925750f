package auth

import (
	"context"
	"fmt"

	"filemanager/internal/domain"
)

// UserFinder — доступ к пользователям, нужен только поиск по логину.
type UserFinder interface {
	FindByLogin(ctx context.Context, login string) (*domain.User, error)
}

// Service проверяет учетные данные загружающего по таблице пользователей.
type Service struct {
	users UserFinder
}

func NewService(users UserFinder) *Service {
	return &Service{users: users}
}

// Authenticate возвращает пользователя при совпадении логина и пароля,
// nil — если пара не подошла. Ошибка означает сбой хранилища, не отказ в доступе.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	if login == "" {
		return nil, nil
	}

	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil || !Check(password, user.PasswordHash) {
		return nil, nil
	}

	return user, nil
}
