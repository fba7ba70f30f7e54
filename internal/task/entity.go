package task

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Xamyrz/task-bot-discord/internal/deadline"
)

// Task is a deadline-bound unit of work tracked per server. The bson
// field names match the historical store so existing documents load
// unchanged.
type Task struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	ServerID     string             `bson:"server_id"`
	Name         string             `bson:"task_name"`
	Description  string             `bson:"task_description"`
	AuthorID     string             `bson:"task_author"`
	RoleIDs      []string           `bson:"task_role"`
	DateCreated  time.Time          `bson:"date_created"`
	Deadline     time.Time          `bson:"deadline,omitempty"` // zero = no deadline
	DeadlineTZ   deadline.TZ        `bson:"deadline_tz"`
	Complete     bool               `bson:"task_complete"`
	Notified7Day bool               `bson:"days_7_notified"`
	Notified1Day bool               `bson:"day_1_notified"`
	LastNotified *time.Time         `bson:"date_notified"`

	// UserIDs is populated from the users index at load time and
	// persisted through it, never inside the task document.
	UserIDs []string `bson:"-"`
}

func (t *Task) HasDeadline() bool {
	return !t.Deadline.IsZero()
}

// DeadlineLocal re-localizes the stored UTC deadline into the
// creator's (approximate) zone.
func (t *Task) DeadlineLocal() time.Time {
	return deadline.Display(t.Deadline, t.DeadlineTZ)
}

func (t *Task) DeadlineString() string {
	if !t.HasDeadline() {
		return "No deadline"
	}
	return t.DeadlineLocal().Format(deadline.DisplayFormat)
}

// AddUsers merges user ids into the assignment set, returning only the
// ids that were actually new.
func (t *Task) AddUsers(ids []string) []string {
	var added []string
	for _, id := range ids {
		if containsString(t.UserIDs, id) {
			continue
		}
		t.UserIDs = append(t.UserIDs, id)
		added = append(added, id)
	}
	return added
}

// AddRoles merges role ids into the assignment set, returning only the
// ids that were actually new.
func (t *Task) AddRoles(ids []string) []string {
	var added []string
	for _, id := range ids {
		if containsString(t.RoleIDs, id) {
			continue
		}
		t.RoleIDs = append(t.RoleIDs, id)
		added = append(added, id)
	}
	return added
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
