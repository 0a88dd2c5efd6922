package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Permission is a capability a user may hold on a resource.
// Permissions are powers of two to achieve efficient set operations, like union, intersection, complement.
// A permission is also a union of permissions.
type Permission uint32

// the closed set of permissions known to the engine
const (
	Read Permission = 1 << iota
	Write
	Create
	Update
	Delete
	Admin
	Execute
	Manage

	None Permission = 0
)

// AllPermissions is the union of every known permission
const AllPermissions = Read | Write | Create | Update | Delete | Admin | Execute | Manage

var permissionNames = map[Permission]string{
	Read:    "read",
	Write:   "write",
	Create:  "create",
	Update:  "update",
	Delete:  "delete",
	Admin:   "admin",
	Execute: "execute",
	Manage:  "manage",
}

var permissionValues = func() map[string]Permission {
	values := make(map[string]Permission, len(permissionNames))
	for p, n := range permissionNames {
		values[n] = p
	}
	return values
}()

// ParsePermission resolves a single permission by name
func ParsePermission(name string) (Permission, error) {
	p, ok := permissionValues[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return None, fmt.Errorf("%w: %q", ErrUnknownPermission, name)
	}
	return p, nil
}

// ParsePermissions folds a list of permission names into one union
func ParsePermissions(names ...string) (Permission, error) {
	var u Permission
	for _, name := range names {
		p, e := ParsePermission(name)
		if e != nil {
			return None, e
		}
		u |= p
	}
	return u, nil
}

// KnownPermissions lists all single permissions in ascending bit order
func KnownPermissions() []Permission {
	return AllPermissions.Split()
}

// IsIn tells if all permissions in p are members of q: p is subset of q
func (p Permission) IsIn(q Permission) bool {
	return p|q == q
}

// Includes tells if all permissions in q are members of p: p is superset of q
func (p Permission) Includes(q Permission) bool {
	return q.IsIn(p)
}

// Difference returns the set of permissions belonging to p but not q: complement of q in p
func (p Permission) Difference(q Permission) Permission {
	return p &^ q
}

// Split a union of permissions to a slice of single permissions
func (p Permission) Split() []Permission {
	out := make([]Permission, 0)
	op := Permission(1)
	for op <= p {
		if op&p > 0 {
			out = append(out, op)
		}
		op <<= 1
	}
	return out
}

// Valid tells if p is a non-empty union of known permissions
func (p Permission) Valid() bool {
	return p != None && p.IsIn(AllPermissions)
}

func (p Permission) String() string {
	ps := p.Split()
	ns := make([]string, 0, len(ps))
	for _, p := range ps {
		n, ok := permissionNames[p]
		if !ok {
			n = "unknown"
		}
		ns = append(ns, n)
	}
	return strings.Join(ns, "|")
}

// Names returns the sorted names of all single permissions in p
func (p Permission) Names() []string {
	ps := p.Split()
	ns := make([]string, 0, len(ps))
	for _, p := range ps {
		if n, ok := permissionNames[p]; ok {
			ns = append(ns, n)
		}
	}
	sort.Strings(ns)
	return ns
}

// MarshalJSON encodes a permission set as its pipe-joined names
func (p Permission) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a permission set from pipe-joined names
func (p *Permission) UnmarshalJSON(data []byte) error {
	var s string
	if e := json.Unmarshal(data, &s); e != nil {
		return e
	}
	if s == "" {
		*p = None
		return nil
	}
	v, e := ParsePermissions(strings.Split(s, "|")...)
	if e != nil {
		return e
	}
	*p = v
	return nil
}
