package domain

import "time"

type Phone struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Number      string `json:"number"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	Phone        *Phone    `json:"phone,omitempty"`
	AuthProvider string    `json:"auth_provider,omitempty"`
	AuthSubject  string    `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
