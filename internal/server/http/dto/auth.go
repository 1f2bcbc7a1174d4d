package dto

// LoginForm is the form posted by the login page.
type LoginForm struct {
	Password string `form:"password"`
}

// LoginFailure is returned when the password does not match.
type LoginFailure struct {
	Incorrect bool `json:"incorrect"`
}

// PasswordRequest carries a password re-entered for a destructive action.
type PasswordRequest struct {
	Password string `json:"password"`
}

// PasswordCheckResponse reports whether a password matched.
type PasswordCheckResponse struct {
	Valid bool `json:"valid"`
}
