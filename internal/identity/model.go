package identity

import (
	"time"

	"github.com/google/uuid"
)

// User represents a row in the users table. The username is the durable
// key linking launches from the LMS to the same local account.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is the "<first> <last>" form used in blog titles.
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// Attributes are the identity fields delivered by a verified launch. They
// are also what the staff-view workflow parks in the session until the
// follow-up request materializes the account.
type Attributes struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}
