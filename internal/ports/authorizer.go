package ports

import "context"

// User identifies the principal a permission check runs against.
type User struct {
	Key        string         `json:"key"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Resource is the object of a permission check.
type Resource struct {
	Type       string         `json:"type"`
	Key        string         `json:"key,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Authorizer answers permission questions against the policy decision point.
type Authorizer interface {
	// Check reports whether user may perform action on resource.
	Check(ctx context.Context, user User, action string, resource Resource) (bool, error)

	// FilterResources returns the subset of resources user may perform action on,
	// preserving input order.
	FilterResources(ctx context.Context, user User, action string, resources []Resource) ([]Resource, error)
}
