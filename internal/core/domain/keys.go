package domain

// Storage keys shared by the credential store and the rest of the client.
// The organization keys hold obfuscated values; the others are plain text.
const (
	KeySessionOrganization = "organization"
	KeyDurableOrganization = "organizationName"

	KeyToken        = "token"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserEmail    = "userEmail"
	KeyCurrentOrgID = "user_current_org_id"

	// KeyTourCompletedPrefix is followed by the tour name.
	KeyTourCompletedPrefix = "tour_completed_"
)

// Cookie names cleared on logout and session expiration.
var AuthCookies = []string{"access_token", "refresh_token"}

// Outgoing request headers.
const (
	HeaderOrganizationDB = "X-Organization-DB"
	HeaderUserEmail      = "X-User-Email"
	HeaderOrganizationID = "X-Organization-ID"
	HeaderRequestID      = "X-Request-ID"
)
