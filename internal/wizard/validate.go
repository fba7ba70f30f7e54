package wizard

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/pkg/cerr"
)

const (
	minNameLen = 2
	maxNameLen = 25
	minDescLen = 3
	maxDescLen = 400
)

// Sanitize strips control and other invisible characters from user
// input. Input that is empty once stripped is rejected.
func Sanitize(s string) (string, error) {
	var b strings.Builder
	for _, r := range s {
		if unicode.In(r, unicode.C) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if strings.TrimSpace(out) == "" {
		return "", cerr.NewError(cerr.InvalidArgument, "input is empty", nil)
	}
	return out, nil
}

// ValidateName checks a task name: sanitized, unique within the
// server, 2-25 characters, single token. Collisions report
// AlreadyExists so callers can distinguish them from malformed input.
func ValidateName(ctx context.Context, repo task.Repository, serverID, raw string) (string, error) {
	name, err := Sanitize(raw)
	if err != nil {
		return "", err
	}
	exists, err := repo.NameExists(ctx, serverID, name)
	if err != nil {
		return "", err
	}
	if exists {
		return "", cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("task name %q already used on this server", name), nil)
	}
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return "", cerr.NewError(cerr.InvalidArgument, "task name must be 2-25 characters", nil)
	}
	if strings.ContainsFunc(name, unicode.IsSpace) {
		return "", cerr.NewError(cerr.InvalidArgument, "task name must be a single word", nil)
	}
	return name, nil
}

// ValidateDescription checks a task description: sanitized, 3-400
// characters.
func ValidateDescription(raw string) (string, error) {
	desc, err := Sanitize(raw)
	if err != nil {
		return "", err
	}
	if n := utf8.RuneCountInString(desc); n < minDescLen || n > maxDescLen {
		return "", cerr.NewError(cerr.InvalidArgument, "task description must be 3-400 characters", nil)
	}
	return desc, nil
}

var (
	userMentionRe = regexp.MustCompile(`^<@!?(\d+)>$`)
	roleMentionRe = regexp.MustCompile(`^<@&(\d+)>$`)
)

// MentionSet is a validated batch of user and role ids parsed from
// mention tokens.
type MentionSet struct {
	Users []string
	Roles []string
}

// ParseMentions validates a batch of mention tokens against the
// ids already assigned. A malformed token is InvalidArgument naming
// the token; an id mentioned twice in the batch, or already assigned,
// is FailedPrecondition. Valid batches merge additively.
func ParseMentions(tokens []string, existingUsers, existingRoles []string) (MentionSet, error) {
	var set MentionSet
	seenUsers := make(map[string]struct{}, len(existingUsers))
	for _, id := range existingUsers {
		seenUsers[id] = struct{}{}
	}
	seenRoles := make(map[string]struct{}, len(existingRoles))
	for _, id := range existingRoles {
		seenRoles[id] = struct{}{}
	}

	for _, tok := range tokens {
		tok, err := Sanitize(strings.TrimSpace(tok))
		if err != nil {
			return MentionSet{}, err
		}
		if m := roleMentionRe.FindStringSubmatch(tok); m != nil {
			if _, dup := seenRoles[m[1]]; dup {
				return MentionSet{}, duplicateAssignmentError(tok)
			}
			seenRoles[m[1]] = struct{}{}
			set.Roles = append(set.Roles, m[1])
			continue
		}
		if m := userMentionRe.FindStringSubmatch(tok); m != nil {
			if _, dup := seenUsers[m[1]]; dup {
				return MentionSet{}, duplicateAssignmentError(tok)
			}
			seenUsers[m[1]] = struct{}{}
			set.Users = append(set.Users, m[1])
			continue
		}
		return MentionSet{}, cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid user/role: %s", tok), nil)
	}
	return set, nil
}

func duplicateAssignmentError(tok string) error {
	return cerr.NewError(cerr.FailedPrecondition, fmt.Sprintf("%s is already assigned to this task", tok), nil)
}
