package models

import "time"

type UserRole string // Роль пользователя

const (
	ExporterRole     UserRole = "exporter"     // Создает заказы и выбирает предложения
	ManufacturerRole UserRole = "manufacturer" // Делает предложения по заказам
	AdminRole        UserRole = "admin"        // Администратор площадки
)

// Valid сообщает, известна ли роль.
func (r UserRole) Valid() bool {
	switch r {
	case ExporterRole, ManufacturerRole, AdminRole:
		return true
	}
	return false
}

// User представляет модель пользователя.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        UserRole  `json:"role"`
	CompanyName string    `json:"companyName"`
	TokenHash   string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Public возвращает публичные данные пользователя.
func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Principal - аутентифицированный автор запроса.
type Principal struct {
	ID    string
	Name  string
	Email string
	Role  UserRole
}

// PrincipalOf строит Principal из пользователя.
func PrincipalOf(u *User) Principal {
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserRequest - тело запроса администратора на создание пользователя.
type UserRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        UserRole `json:"role"`
	CompanyName string   `json:"companyName"`
	Token       string   `json:"token"`
}

// ProfilePatch - изменения собственного профиля. Пустые name, email и token
// оставляют прежние значения, companyName меняется, если передан.
type ProfilePatch struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	CompanyName *string `json:"companyName"`
	Token       string  `json:"token"`
}

// DeleteUserResult - ответ на удаление пользователя.
type DeleteUserResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}
