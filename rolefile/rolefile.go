// Package rolefile loads role capability tables from YAML files.
//
// A role file maps role names to resource types to permission names:
//
//	roles:
//	  developer:
//	    project: [read, write, create, update]
//	    workflow: [read, execute]
//	  viewer:
//	    project: [read]
//
// Unknown resource types and permission names are rejected, so a typo in
// a deployed file fails loudly at startup instead of silently granting
// nothing.
package rolefile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/neuralliquid/autopr-engine-sub002/types"
)

// File is the on-disk layout of a role definition file
type File struct {
	Roles map[string]map[string][]string `yaml:"roles"`
}

// Load reads and parses the role file at path
func Load(path string) (types.RoleCapabilities, error) {
	data, e := os.ReadFile(path)
	if e != nil {
		return nil, fmt.Errorf("read role file: %w", e)
	}

	table, e := Parse(data)
	if e != nil {
		return nil, fmt.Errorf("parse role file %s: %w", path, e)
	}
	return table, nil
}

// Parse builds a capability table from role file contents
func Parse(data []byte) (types.RoleCapabilities, error) {
	var f File
	if e := yaml.Unmarshal(data, &f); e != nil {
		return nil, e
	}
	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("no roles defined")
	}

	table := make(types.RoleCapabilities, len(f.Roles))
	for name, caps := range f.Roles {
		if name == "" {
			return nil, fmt.Errorf("%w: empty role name", types.ErrUnknownRole)
		}

		role := types.Role(name)
		table[role] = make(map[types.ResourceType]types.Permission, len(caps))

		for typeName, permNames := range caps {
			t, e := types.ParseResourceType(typeName)
			if e != nil {
				return nil, fmt.Errorf("role %q: %w", name, e)
			}

			perms, e := types.ParsePermissions(permNames...)
			if e != nil {
				return nil, fmt.Errorf("role %q, resource %q: %w", name, typeName, e)
			}
			if perms == types.None {
				return nil, fmt.Errorf("role %q, resource %q: no permissions listed", name, typeName)
			}

			table[role][t] = perms
		}
	}

	return table, nil
}
