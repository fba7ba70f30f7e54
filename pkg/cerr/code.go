package cerr

import "github.com/Xamyrz/task-bot-discord/pkg/clog"

type Code int

const (
	OK                 = Code(0)
	Canceled           = Code(1)
	Unknown            = Code(2)
	InvalidArgument    = Code(3)
	DeadlineExceeded   = Code(4)
	NotFound           = Code(5)
	AlreadyExists      = Code(6)
	PermissionDenied   = Code(7)
	ResourceExhausted  = Code(8)
	FailedPrecondition = Code(9)
	Aborted            = Code(10)
	OutOfRange         = Code(11)
	Unimplemented      = Code(12)
	Internal           = Code(13)
	Unavailable        = Code(14)
	DataLoss           = Code(15)
	Unauthenticated    = Code(16)
)

var codeNames = map[Code]string{
	OK:                 "ok",
	Canceled:           "canceled",
	Unknown:            "unknown",
	InvalidArgument:    "invalid_argument",
	DeadlineExceeded:   "deadline_exceeded",
	NotFound:           "not_found",
	AlreadyExists:      "already_exists",
	PermissionDenied:   "permission_denied",
	ResourceExhausted:  "resource_exhausted",
	FailedPrecondition: "failed_precondition",
	Aborted:            "aborted",
	OutOfRange:         "out_of_range",
	Unimplemented:      "unimplemented",
	Internal:           "internal",
	Unavailable:        "unavailable",
	DataLoss:           "data_loss",
	Unauthenticated:    "unauthenticated",
}

func (c Code) String() string {
	name, ok := codeNames[c]
	if !ok {
		return "unknown"
	}
	return name
}

// Level reports how loudly an error with this code should be logged.
// User-recoverable codes (bad input, duplicates, out-of-range dates)
// are expected traffic, not incidents.
func (c Code) Level() clog.Level {
	switch c {
	case Canceled, InvalidArgument, NotFound, AlreadyExists,
		PermissionDenied, FailedPrecondition, Aborted, OutOfRange,
		DeadlineExceeded, Unauthenticated:
		return clog.LevelInfo
	default:
		return clog.LevelError
	}
}
