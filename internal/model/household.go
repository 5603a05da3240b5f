package model

import "time"

type Household struct {
	ID        int64     `json:"id"`
	JoinCode  string    `json:"join_code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is the public view of a user inside their household.
type Member struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}
