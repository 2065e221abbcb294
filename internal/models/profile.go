package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the credential row backing an identity. The profile row is
// created lazily and may briefly lag behind the account.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is the live authenticated identity of the current actor.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Profile is the durable per-account row in the PostgreSQL profiles table,
// distinct from the Session. One per account, keyed by the session user id.
type Profile struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	BalanceEth    decimal.Decimal `json:"balance_eth"`
	WalletAddress string          `json:"wallet_address,omitempty"`
	IsAdmin       bool            `json:"is_admin"`
	Bio           string          `json:"bio,omitempty"`
	Website       string          `json:"website,omitempty"`
	AvatarURL     string          `json:"avatar_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ProfileUpdate carries a partial profile edit; nil fields are left alone.
type ProfileUpdate struct {
	Username      *string `json:"username,omitempty"`
	WalletAddress *string `json:"wallet_address,omitempty"`
	Bio           *string `json:"bio,omitempty"`
	Website       *string `json:"website,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
