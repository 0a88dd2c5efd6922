package types

// CacheKey identifies one remembered authorization decision
type CacheKey struct {
	UserID   string
	Resource Resource
	Action   Permission
}

// DecisionCache remembers authorization results for identical requests.
// Cache failures are best effort: callers log them and fall through to
// a full evaluation, they never fail the authorization itself.
type DecisionCache interface {
	// Get returns the remembered decision, if present and not expired
	Get(CacheKey) (decision bool, ok bool, err error)

	// Set remembers a decision
	Set(CacheKey, bool) error

	// InvalidateUser drops every remembered decision about the user
	InvalidateUser(userID string) error

	// InvalidateResource drops every remembered decision about the resource
	InvalidateResource(Resource) error

	// Clear drops everything
	Clear() error
}
