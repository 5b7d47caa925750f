package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filemanager/internal/domain"
)

type fakeUserFinder struct {
	users map[string]*domain.User
	err   error
}

func (f *fakeUserFinder) FindByLogin(_ context.Context, login string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[login], nil
}

func TestHashAndCheck(t *testing.T) {
	hash, err := Hash("secret")
	require.NoError(t, err)

	assert.True(t, Check("secret", hash))
	assert.False(t, Check("wrong", hash))
	assert.False(t, Check("secret", "not-a-bcrypt-hash"))
}

func TestAuthenticate(t *testing.T) {
	hash, err := Hash("qwerty")
	require.NoError(t, err)

	finder := &fakeUserFinder{users: map[string]*domain.User{
		"ivan": {ID: 7, Login: "ivan", PasswordHash: hash},
	}}
	s := NewService(finder)

	user, err := s.Authenticate(context.Background(), "ivan", "qwerty")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(7), user.ID)

	user, err = s.Authenticate(context.Background(), "ivan", "wrong")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = s.Authenticate(context.Background(), "nobody", "qwerty")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = s.Authenticate(context.Background(), "", "")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAuthenticate_RepositoryError(t *testing.T) {
	s := NewService(&fakeUserFinder{err: errors.New("connection refused")})

	_, err := s.Authenticate(context.Background(), "ivan", "qwerty")
	assert.Error(t, err)
}
