package models

import "time"

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID  int64  `json:"id,omitempty"`
	Subject string `json:"username"`
	Role    string `json:"role"`
}

// User is a row of the users table. PasswordHash never leaves the process.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity returns the principal for an authenticated user.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Subject: u.Username, Role: u.Role}
}

const DefaultRole = "admin"

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	OK   bool     `json:"ok"`
	User Identity `json:"user"`
}
