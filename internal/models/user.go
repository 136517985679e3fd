package models

import "time"

// User represents a registered account on the sync server.
type User struct {
	ID          string    `json:"id"`            // user UUID
	Username    string    `json:"username"`      // unique username
	AuthKeyHash string    `json:"auth_key_hash"` // SHA256 hash of the derived auth key (hex)
	PublicSalt  string    `json:"public_salt"`   // base64 encoded salt (32 bytes)
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RefreshToken represents a stored refresh token.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"` // SHA256 hash of the token (hex)
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
