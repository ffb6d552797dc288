package abstractions

import (
	"time"

	"github.com/bench-hub/bench-hub/pkg/api"
)

// Storage is the durable results store consumed by the run registry. Runs
// are written through on every status change and reloaded on process start.
type Storage interface {
	// This is used to identify the storage implementation in the logs and error messages
	GetDatasourceName() string

	Ping(timeout time.Duration) error

	// Run operations
	SaveRun(run *api.RunResource) error
	LoadRun(id string) (*api.RunResource, error)
	LoadRuns() ([]api.RunResource, error)
	DeleteRun(id string) (bool, error)

	// Close the storage connection
	Close() error
}

// This interface must be decoupled from the service HTTP layer.
// Do not pass ExecutionContext, Request or Response wrappers either.
