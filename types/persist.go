package types

import "context"

// GrantPersister persists direct user-resource grants to an external storage
type GrantPersister interface {
	// Upsert inserts or replaces the grant for its user-resource pair
	Upsert(Grant) error

	// Remove deletes the grant of a user on a resource.
	// Removing an absent grant is not an error.
	Remove(userID string, res Resource) error

	// List all grants from the persister
	List() ([]Grant, error)

	// Watch any changes occurred about the grants in the persister
	Watch(context.Context) (<-chan GrantChange, error)
}

// GrantChange denotes a changing event about a persisted Grant
type GrantChange struct {
	Grant
	Method PersistMethod
}

// PersistMethod defines what happened about the grants
type PersistMethod string

// possible changes could be happened about grants
const (
	PersistInsert PersistMethod = "insert"
	PersistDelete PersistMethod = "delete"
	PersistUpdate PersistMethod = "update"
)
