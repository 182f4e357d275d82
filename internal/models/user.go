package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAvatarURL is assigned to accounts that never uploaded a profile picture.
const DefaultAvatarURL = "https://static.vecteezy.com/ti/vecteur-libre/p1/1840612-image-profil-icon-male-icon-human-or-people-sign-and-symbol-vector-gratuit-vectoriel.jpg"

type User struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"-"`

	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Level     string `json:"level"`
	IsAdmin   bool   `json:"is_admin"`

	// Partners holds the ids of accepted partners. The relation is symmetric.
	Partners  []uuid.UUID `json:"partners"`
	CreatedAt time.Time   `json:"created_at"`
}

// HasPartner reports whether id is in the user's partner set.
func (u *User) HasPartner(id uuid.UUID) bool {
	for _, p := range u.Partners {
		if p == id {
			return true
		}
	}
	return false
}

// Profile returns the minimal public projection of the user.
func (u *User) Profile() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
}

// PublicUser is the account as other users see it: no email, partner set
// or role.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url"`
	Bio       string    `json:"bio"`
	Location  string    `json:"location"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Location:  u.Location,
		Level:     u.Level,
		CreatedAt: u.CreatedAt,
	}
}

// PublicProfile is what other users get to see in partner and request listings.
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url"`
}
