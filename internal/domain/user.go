package domain

// User представляет пользователя, от имени которого выполняется загрузка.
// Сервис пользователей не изменяет, нужен только поиск по логину.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Login        string `json:"login" db:"login"`
	PasswordHash string `json:"-" db:"password_hash"`
}
