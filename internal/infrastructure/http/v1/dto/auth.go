package dto

// LoginRequest for password authentication.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest for creating users.
type CreateUserRequest struct {
	Username    string   `json:"username" binding:"required,min=3"`
	Password    string   `json:"password" binding:"required,min=4"`
	Role        string   `json:"role" binding:"required"`
	Permissions []string `json:"permissions"`
}

// UpdateUserRequest for updating a user's role, permissions, or
// password. An empty password leaves the current one in place.
type UpdateUserRequest struct {
	Role        string   `json:"role" binding:"required"`
	Permissions []string `json:"permissions"`
	Password    string   `json:"password"`
}

// BiometricLoginRequest authenticates with an enrolled device token.
type BiometricLoginRequest struct {
	Token string `json:"token" binding:"required"`
}

// BiometricEnrollResponse returns the one-time raw token. It is shown
// once and only its hash is stored.
type BiometricEnrollResponse struct {
	Token string `json:"token"`
}
