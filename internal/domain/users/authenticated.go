package users

// AuthenticatedUser is the caller identity the access guard resolves and
// threads explicitly into handlers and services.
type AuthenticatedUser struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Name           *string `json:"name"`
	Role           Role    `json:"role"`
	SupabaseUserID string  `json:"supabaseUserId"`
}
