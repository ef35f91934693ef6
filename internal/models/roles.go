package models

import (
	"github.com/google/uuid"
)

// Role представляет роль пользователя на платформе.
type Role string

const (
	RoleClient   Role = "client"
	RoleLandlord Role = "landlord"
	RoleBroker   Role = "broker"
	RoleAdmin    Role = "admin"
)

// ValidRoles список валидных ролей
var ValidRoles = map[Role]struct{}{
	RoleClient:   {},
	RoleLandlord: {},
	RoleBroker:   {},
	RoleAdmin:    {},
}

// RoleSet типизированное множество ролей. Пользователь может держать
// несколько ролей одновременно (например client и landlord).
type RoleSet map[Role]struct{}

// NewRoleSet создаёт множество из перечисленных ролей.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// RoleSetFromStrings создаёт множество из строк, пропуская неизвестные роли.
func RoleSetFromStrings(raw []string) RoleSet {
	set := make(RoleSet, len(raw))
	for _, s := range raw {
		role := Role(s)
		if _, ok := ValidRoles[role]; ok {
			set[role] = struct{}{}
		}
	}
	return set
}

// Has проверяет наличие роли.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// HasAny проверяет наличие хотя бы одной из ролей.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Elevated сообщает, обходит ли носитель ролей проверки владения.
// Брокеры и администраторы действуют от имени любой стороны.
func (s RoleSet) Elevated() bool {
	return s.Has(RoleBroker) || s.Has(RoleAdmin)
}

// Strings возвращает роли как срез строк для хранения и JWT клеймов.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	return out
}

// AuthContext описывает аутентифицированного актора операции.
// Передаётся явно в каждый сервисный вызов, никакого глобального состояния.
type AuthContext struct {
	UserID uuid.UUID
	Roles  RoleSet
}

// Elevated проксирует проверку привилегированных ролей.
func (a AuthContext) Elevated() bool {
	return a.Roles.Elevated()
}

// Is проверяет, совпадает ли актор с указанным пользователем.
func (a AuthContext) Is(userID uuid.UUID) bool {
	return a.UserID == userID
}
