// internal/domain/models/authmethods.go
package models

// Sign-in methods recorded on identity sessions.
const (
	AuthMethodPassword = "password"
	AuthMethodGoogle   = "google"
)

// IsValidAuthMethod checks if a value is a supported sign-in method.
func IsValidAuthMethod(value string) bool {
	return value == AuthMethodPassword || value == AuthMethodGoogle
}
