package domain

import (
	"time"

	"github.com/google/uuid"
)

// User - запись внешнего хранилища пользователей. Сервис только читает ее.
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// ParticipantKind - роль пользователя по отношению к чату
type ParticipantKind int

const (
	KindCustomer ParticipantKind = iota + 1
	KindAdmin
)

func (k ParticipantKind) String() string {
	switch k {
	case KindCustomer:
		return "customer"
	case KindAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Participant - пользователь, приведенный к одной из двух ролей чата.
// Создается только через ParticipantFromUser, поэтому Kind всегда валиден.
type Participant struct {
	ID          uuid.UUID
	DisplayName string
	Kind        ParticipantKind
}

func ParticipantFromUser(u *User) (Participant, bool) {
	if u == nil || !u.IsActive {
		return Participant{}, false
	}
	switch u.Role {
	case RoleCustomer:
		return Participant{ID: u.ID, DisplayName: u.DisplayName, Kind: KindCustomer}, true
	case RoleAdmin:
		return Participant{ID: u.ID, DisplayName: u.DisplayName, Kind: KindAdmin}, true
	default:
		return Participant{}, false
	}
}

func (p Participant) IsAdmin() bool    { return p.Kind == KindAdmin }
func (p Participant) IsCustomer() bool { return p.Kind == KindCustomer }
