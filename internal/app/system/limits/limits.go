// internal/app/system/limits/limits.go
package limits

// Request body size limits for the JSON API.
const (
	// MaxJSONBody bounds any decoded API request body.
	MaxJSONBody = 64 << 10 // 64 KB

	// MaxRequestBody is enforced by the router on every /api request, ahead
	// of decoding.
	MaxRequestBody = 1 << 20 // 1 MB
)
