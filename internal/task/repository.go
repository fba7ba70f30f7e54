package task

import (
	"context"
	"time"
)

// Threshold identifies which reminder lead time a notified flag
// belongs to.
type Threshold int

const (
	Threshold1Day Threshold = 1
	Threshold7Day Threshold = 7
)

// Repository is the document-store boundary for tasks and the
// user-assignment secondary index. Writes are upsert-style and scoped
// to the fields each caller owns; there is no in-process locking.
type Repository interface {
	FindByName(ctx context.Context, serverID, name string) (*Task, error)
	NameExists(ctx context.Context, serverID, name string) (bool, error)
	// FindIncomplete returns every incomplete task, deadline or not.
	FindIncomplete(ctx context.Context) ([]*Task, error)
	// FindDueWithin returns incomplete tasks whose deadline is set and
	// not after the given instant.
	FindDueWithin(ctx context.Context, until time.Time) ([]*Task, error)
	// Upsert writes the full task document keyed by (server, name).
	Upsert(ctx context.Context, t *Task) error
	// SetCompletion writes only the completion flag.
	SetCompletion(ctx context.Context, serverID, name string, complete bool) error
	// SetNotified writes only the given threshold's notified flag and
	// the last-notified instant.
	SetNotified(ctx context.Context, serverID, name string, threshold Threshold, at time.Time) error
	// AssignedUsers reads the user-assignment index for one task.
	AssignedUsers(ctx context.Context, serverID, name string) ([]string, error)
	// AddUserAssignments adds the task to each user's assignment set.
	// The index is additive; nothing ever removes entries.
	AddUserAssignments(ctx context.Context, serverID, name string, userIDs []string) error
}
