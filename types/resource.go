package types

import (
	"fmt"
	"strings"
)

// ResourceType classifies the platform objects access control applies to.
// The set is closed: values outside it are rejected at the boundary.
type ResourceType string

// all known resource types
const (
	ResourceProject      ResourceType = "project"
	ResourceRepository   ResourceType = "repository"
	ResourceWorkflow     ResourceType = "workflow"
	ResourceTemplate     ResourceType = "template"
	ResourceUser         ResourceType = "user"
	ResourceOrganization ResourceType = "organization"
	ResourceIntegration  ResourceType = "integration"
	ResourceConfig       ResourceType = "config"
)

var resourceTypes = map[ResourceType]struct{}{
	ResourceProject:      {},
	ResourceRepository:   {},
	ResourceWorkflow:     {},
	ResourceTemplate:     {},
	ResourceUser:         {},
	ResourceOrganization: {},
	ResourceIntegration:  {},
	ResourceConfig:       {},
}

// AllResourceTypes lists the known resource types in declaration order
func AllResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceProject,
		ResourceRepository,
		ResourceWorkflow,
		ResourceTemplate,
		ResourceUser,
		ResourceOrganization,
		ResourceIntegration,
		ResourceConfig,
	}
}

// Valid tells if t is a known resource type
func (t ResourceType) Valid() bool {
	_, ok := resourceTypes[t]
	return ok
}

// ParseResourceType resolves a resource type by name
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownResourceType, s)
	}
	return t, nil
}

// Resource identifies one platform object access control applies to
type Resource struct {
	Type ResourceType `json:"type"`
	ID   string       `json:"id"`
}

// NewResource pairs a resource type with an object identifier
func NewResource(t ResourceType, id string) Resource {
	return Resource{Type: t, ID: id}
}

func (r Resource) String() string {
	return string(r.Type) + ":" + r.ID
}

// ParseResource parses a serialized Resource of the form "type:id"
func ParseResource(s string) (Resource, error) {
	t, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Resource{}, fmt.Errorf("%w: malformed resource %q", ErrInvalidContext, s)
	}
	rt, e := ParseResourceType(t)
	if e != nil {
		return Resource{}, e
	}
	return Resource{Type: rt, ID: id}, nil
}
