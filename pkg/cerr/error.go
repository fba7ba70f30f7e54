package cerr

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Xamyrz/task-bot-discord/pkg/clog"
)

type Error struct {
	Code  Code
	Msg   string // user-facing message, shown alongside the code
	Err   error  // underlying error, kept for logs
	Stack string
}

func NewError(code Code, msg string, underlying error) *Error {
	err := &Error{
		Code: code,
		Msg:  msg,
		Err:  underlying,
	}
	if code.Level() == clog.LevelError {
		stackTrace := make([]byte, 2048)
		n := runtime.Stack(stackTrace, false)
		err.Stack = string(stackTrace[0:n])
	}
	return err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code.String(), e.Msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code.String(), e.Msg, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the user-facing message of err, falling back to a
// generic one for errors that did not come out of this package.
func Message(err error) string {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Msg
	}
	return "something went wrong"
}

func IsCode(err error, code Code) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == code
	}
	return false
}
