package shared

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents an authenticated user in the system
type User struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Username        string          `json:"username" db:"username"`
	AvatarURL       string          `json:"avatar_url" db:"avatar_url"`
	WalletBalance   decimal.Decimal `json:"wallet_balance" db:"wallet_balance"`
	ReputationScore int             `json:"reputation_score" db:"reputation_score"`
}

// CanAfford reports whether the wallet covers amount
func (u *User) CanAfford(amount decimal.Decimal) bool {
	return u.WalletBalance.GreaterThanOrEqual(amount)
}

// PublicProfile is the subset of a user shown to other users
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

func (u *User) Profile() PublicProfile {
	return PublicProfile{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}
