package models

// UserInfo represents an authenticated user
type UserInfo struct {
	ID       string
	Email    string
	Role     string
	Metadata map[string]interface{}
}
