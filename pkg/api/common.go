package api

import "time"

// ------------------------------------------------------------------------------------------------
// General naming conventions:
// ------------------------------------------------------------------------------------------------
// - ...Config - represents an object specified by the user when creating a resource.
// - ...Resource - represents an object stored by the service. This is the REST resource.
// - ...ResourceList - represents a list of REST resources
// - ...Ref - represents a reference to an object
// - ...Error - represents an error response
// ------------------------------------------------------------------------------------------------

type Ref struct {
	ID string `json:"id" validate:"required"`
}

type HRef struct {
	Href string `json:"href"`
}

// Error represents an error response
type Error struct {
	MessageCode string `json:"message_code"`
	Message     string `json:"message"`
	Trace       string `json:"trace"`
}

// Resource represents base resource fields
type Resource struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page represents generic pagination schema
type Page struct {
	First      *HRef `json:"first"`
	Next       *HRef `json:"next,omitempty"`
	Limit      int   `json:"limit"`
	TotalCount int   `json:"total_count"`
}
