package instance

import (
	"os"

	"github.com/google/uuid"
)

var processID = uuid.NewString()

// GetID returns the identifier for this process instance. The id is
// stable for the lifetime of the process and unique across restarts,
// which lets store subscribers discard notifications that originated
// from their own writes.
func GetID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	return processID
}
