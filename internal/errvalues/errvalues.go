package errvalues

import "errors"

// Error kinds returned by the core operations. Handlers map these to
// HTTP statuses; no operation fails without one of them in its chain.
var (
	// ErrUnauthenticated means the identity is invalid: bad/expired token
	// or a subject that no longer exists or is inactive. The client must
	// re-authenticate rather than retry.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the identity is valid but lacks permission for
	// the requested verb/project. Also covers unknown projects so callers
	// cannot probe for project existence.
	ErrForbidden = errors.New("access denied")

	// ErrNotFound covers absent objects and file rows on paths where
	// existence is not access-sensitive.
	ErrNotFound = errors.New("not found")

	// ErrTransient marks storage/network failures that are safe to retry.
	ErrTransient = errors.New("transient storage failure")

	// ErrIntegrity marks a database failure after a storage-visible
	// mutation already succeeded. Never coerced into success.
	ErrIntegrity = errors.New("metadata out of sync with storage")

	// ErrConfiguration marks missing or invalid storage configuration for
	// a project's unit. Fatal for that project until fixed.
	ErrConfiguration = errors.New("storage configuration invalid")

	// Token verification outcomes.
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)
