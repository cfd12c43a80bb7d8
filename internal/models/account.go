package models

import "time"

type Role string

const (
	RoleStandard      Role = "standard"
	RoleAdministrator Role = "administrator"
)

// Credit scores are clamped to this range after every mutation.
const (
	MinCreditScore = 300
	MaxCreditScore = 850
)

type Account struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	Balance      int64     `json:"balance" db:"balance"` // in cents, never negative
	CreditScore  int       `json:"creditScore" db:"credit_score"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdministrator
}

// ClampScore keeps a credit score inside the legal range.
func ClampScore(score int) int {
	if score < MinCreditScore {
		return MinCreditScore
	}
	if score > MaxCreditScore {
		return MaxCreditScore
	}
	return score
}
