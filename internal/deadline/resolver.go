package deadline

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/Xamyrz/task-bot-discord/pkg/cerr"
)

// NoDeadlineInput is the reply that opts a task out of having a
// deadline entirely.
const NoDeadlineInput = "0"

// Resolved is the outcome of parsing a deadline expression. When None
// is false, At holds the instant in UTC and TZ the creator's offset at
// resolution time.
type Resolved struct {
	None bool
	At   time.Time
	TZ   TZ
}

// Format renders the resolved deadline in the creator's local time.
func (r Resolved) Format() string {
	if r.None {
		return "No deadline"
	}
	return Display(r.At, r.TZ).Format(DisplayFormat)
}

// OutOfRangeError reports a deadline that resolved to an instant in
// the past, carrying that instant for display.
type OutOfRangeError struct {
	At time.Time
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s is in the past", e.At.Format("02-Jan-2006 15:04"))
}

var relativeParser = newRelativeParser()

func newRelativeParser() *when.Parser {
	p := when.New(nil)
	p.Add(en.All...)
	p.Add(common.All...)
	return p
}

// Resolve parses a free-form deadline expression against a reference
// instant. Expressions carrying their own zone keep it; zoneless ones
// are interpreted in ref. "0" means no deadline.
func Resolve(raw string, now time.Time, ref *time.Location) (Resolved, error) {
	raw = strings.TrimSpace(raw)
	if raw == NoDeadlineInput {
		return Resolved{None: true}, nil
	}

	at, err := parse(raw, now, ref)
	if err != nil {
		return Resolved{}, cerr.NewError(cerr.InvalidArgument, "unrecognized deadline expression", err)
	}
	if at.Before(now) {
		oor := &OutOfRangeError{At: at.In(ref)}
		return Resolved{}, cerr.NewError(cerr.OutOfRange, oor.Error(), oor)
	}

	_, secs := at.Zone()
	return Resolved{
		At: at.UTC(),
		TZ: OffsetTZ(float64(secs) / 3600),
	}, nil
}

func parse(raw string, now time.Time, ref *time.Location) (time.Time, error) {
	// Absolute expressions first: dateparse rejects relative phrasing
	// outright, so there is no overlap between the two parsers.
	if at, err := dateparse.ParseIn(raw, ref); err == nil {
		return at, nil
	}
	result, err := relativeParser.Parse(raw, now.In(ref))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", raw, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("parse %q: no date expression recognized", raw)
	}
	return result.Time, nil
}
