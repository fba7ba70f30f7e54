package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Xamyrz/task-bot-discord/internal/deadline"
	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/pkg/cerr"
)

// Handle identifies a message the transport sent on our behalf, so it
// can be edited or bulk-deleted later.
type Handle struct {
	ChannelID string
	MessageID string
}

// Reply is one message received from the actor a session is waiting
// on.
type Reply struct {
	Content string
	Handle  Handle
}

// Transport is the chat surface the wizard talks through.
type Transport interface {
	SendPrompt(ctx context.Context, channelID, text string, footer bool) (Handle, error)
	EditMessage(ctx context.Context, h Handle, text string, footer bool) error
	DeleteMessages(ctx context.Context, channelID string, handles []Handle) error
}

// ReplySource hands the wizard the actor's next message, or
// ErrReplyTimeout if none arrives within the timeout.
type ReplySource interface {
	AwaitNextReply(ctx context.Context, actorID string, timeout time.Duration) (Reply, error)
}

var (
	// ErrStopWizard unwinds a session on explicit cancellation.
	ErrStopWizard = errors.New("wizard stopped")
	// ErrTimedOut unwinds a session that waited too long for a reply.
	ErrTimedOut = errors.New("wizard timed out")
	// ErrReplyTimeout is what a ReplySource returns when the actor
	// never answered.
	ErrReplyTimeout = errors.New("no reply received before the timeout")
)

// CommandInterrupt is a StopWizard raised because the actor typed a
// bot command mid-session. The command boundary is expected to run it
// after the session unwinds; Handle identifies the command message so
// it can be cleaned up like a directly issued one.
type CommandInterrupt struct {
	Command string
	Handle  Handle
}

func (e *CommandInterrupt) Error() string {
	return fmt.Sprintf("wizard interrupted by command %q", e.Command)
}

func (e *CommandInterrupt) Unwrap() error {
	return ErrStopWizard
}

type Config struct {
	// Timeout bounds each wait for a reply, measured from suspension.
	Timeout time.Duration
	// CommandPrefixes mark replies that interrupt the session.
	CommandPrefixes []string
	// ReferenceTZ interprets deadline expressions without a zone of
	// their own.
	ReferenceTZ *time.Location
}

// Engine drives creation and assignment dialogues. One Run* call is
// one session: single-threaded, one pending reply at a time,
// persisting exactly once on success.
type Engine struct {
	transport Transport
	replies   ReplySource
	repo      task.Repository
	mgr       *task.Manager
	cfg       Config
	clock     func() time.Time
}

func NewEngine(transport Transport, replies ReplySource, repo task.Repository, mgr *task.Manager, cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	if len(cfg.CommandPrefixes) == 0 {
		cfg.CommandPrefixes = []string{"/", "!"}
	}
	if cfg.ReferenceTZ == nil {
		cfg.ReferenceTZ = time.UTC
	}
	return &Engine{
		transport: transport,
		replies:   replies,
		repo:      repo,
		mgr:       mgr,
		cfg:       cfg,
		clock:     time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// InitialArgs pre-supplies wizard answers. A non-empty value is tried
// once against the matching state's validator; if it holds, that
// question is skipped entirely. SkipDeadline for Deadline skips the
// deadline question without setting one.
type InitialArgs struct {
	Name        string
	Description string
	Mentions    []string
	Deadline    string
}

// SkipDeadline as a forced deadline bypasses the question, leaving
// the task without one.
const SkipDeadline = "-1"

// RunCreation walks an actor through creating one task. On success
// the fully populated task has been persisted. On ErrStopWizard or
// ErrTimedOut nothing was persisted and the transcript has been
// discarded.
func (e *Engine) RunCreation(ctx context.Context, actorID, serverID, channelID string, args InitialArgs) (*task.Task, error) {
	s := e.newSession(actorID, serverID, channelID, &task.Task{
		ServerID: serverID,
		AuthorID: actorID,
	})
	defer s.cleanup()
	slog.Debug("creation wizard started", "session_id", s.id, "actor_id", actorID, "server_id", serverID)

	if err := s.askName(ctx, args.Name); err != nil {
		return nil, err
	}
	if err := s.askDescription(ctx, args.Description); err != nil {
		return nil, err
	}
	if err := s.askAssignees(ctx, args.Mentions); err != nil {
		return nil, err
	}
	if err := s.askDeadline(ctx, args.Deadline); err != nil {
		return nil, err
	}

	s.t.DateCreated = e.clock().UTC()
	if err := e.mgr.Save(ctx, s.t); err != nil {
		s.sayFinal(ctx, "Something went wrong saving the task. Please try again.")
		return nil, err
	}
	slog.Info("task created", "session_id", s.id, "server_id", serverID, "task_name", s.t.Name)
	return s.t, nil
}

type session struct {
	*Engine
	id        string
	actorID   string
	serverID  string
	channelID string
	// transcript collects every session message (prompts and replies)
	// for bulk removal on exit, success or not.
	transcript []Handle
	t          *task.Task
}

func (e *Engine) newSession(actorID, serverID, channelID string, t *task.Task) *session {
	return &session{
		Engine:    e,
		id:        ulid.Make().String(),
		actorID:   actorID,
		serverID:  serverID,
		channelID: channelID,
		t:         t,
	}
}

// cleanup bulk-deletes the transcript. It runs on every exit path and
// uses its own context so a cancelled session still gets cleaned up.
func (s *session) cleanup() {
	if len(s.transcript) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.transport.DeleteMessages(ctx, s.channelID, s.transcript); err != nil {
		slog.Warn("failed to delete wizard transcript", "session_id", s.id, "error", err)
	}
	s.transcript = nil
}

type prompt struct {
	handle Handle
	text   string
}

func (s *session) say(ctx context.Context, text string, footer bool) (*prompt, error) {
	h, err := s.transport.SendPrompt(ctx, s.channelID, text, footer)
	if err != nil {
		return nil, err
	}
	s.transcript = append(s.transcript, h)
	return &prompt{handle: h, text: text}, nil
}

// sayFinal sends a terminal notice outside the transcript, so it
// survives cleanup.
func (s *session) sayFinal(ctx context.Context, text string) {
	if _, err := s.transport.SendPrompt(ctx, s.channelID, text, false); err != nil {
		slog.Warn("failed to send wizard notice", "session_id", s.id, "error", err)
	}
}

func (s *session) annotate(ctx context.Context, p *prompt, line string) {
	p.text += "\n\n" + line
	if err := s.transport.EditMessage(ctx, p.handle, p.text, true); err != nil {
		slog.Warn("failed to edit wizard prompt", "session_id", s.id, "error", err)
	}
}

func (s *session) addError(ctx context.Context, p *prompt, msg string) {
	s.annotate(ctx, p, "❗ "+msg)
}

func (s *session) addValid(ctx context.Context, p *prompt, value string) {
	s.annotate(ctx, p, "✅ "+value)
}

// nextReply blocks for the actor's next message, intercepting the
// stop keyword, bot commands, and timeout before any validation sees
// the content.
func (s *session) nextReply(ctx context.Context) (string, error) {
	reply, err := s.replies.AwaitNextReply(ctx, s.actorID, s.cfg.Timeout)
	if err != nil {
		if errors.Is(err, ErrReplyTimeout) {
			s.sayFinal(ctx, "Task wizard timed out..\ntook too long to respond")
			return "", ErrTimedOut
		}
		return "", err
	}
	content := strings.TrimSpace(reply.Content)
	for _, prefix := range s.cfg.CommandPrefixes {
		if strings.HasPrefix(content, prefix) {
			s.sayFinal(ctx, fmt.Sprintf("You can't use bot commands during the task creation wizard.\nStopping the wizard and then executing the command:\n`%s`", content))
			return "", &CommandInterrupt{Command: content, Handle: reply.Handle}
		}
	}
	s.transcript = append(s.transcript, reply.Handle)
	if strings.EqualFold(content, "stop") {
		s.sayFinal(ctx, "Task wizard stopped.")
		return "", ErrStopWizard
	}
	return content, nil
}

const (
	namePrompt = "**Now type a unique one word identifier, a label, for your task.** " +
		"This label will be used to refer to the task. Keep it short and significant."
	descriptionPrompt = "Please enter the task description."
	assigneePrompt    = "Mention the users (`@user`) and roles (`@role`) to assign to this task. " +
		"**Type `0` to leave the task unassigned.**"
	deadlinePrompt = "The task will have no deadline if not set, you can set the deadline at a certain date. " +
		"**Type `0` to set no deadline or tell me when you want the deadline to be** by " +
		"typing an absolute or relative date. You can specify a timezone if you want.\n" +
		"Examples: `in 2 days`, `next week CET`, `may 3rd 2019`, `9.11.2019 9pm EST`"
)

func (s *session) askName(ctx context.Context, force string) error {
	var forcedErr error
	if force != "" {
		name, err := s.validName(ctx, force)
		if err == nil {
			s.t.Name = name
			return nil
		}
		forcedErr = err
	}
	p, err := s.say(ctx, namePrompt, true)
	if err != nil {
		return err
	}
	if forcedErr != nil {
		s.addError(ctx, p, nameErrorMessage(force, forcedErr))
	}
	for {
		reply, err := s.nextReply(ctx)
		if err != nil {
			return err
		}
		name, verr := s.validName(ctx, reply)
		if verr != nil {
			s.addError(ctx, p, nameErrorMessage(reply, verr))
			continue
		}
		s.t.Name = name
		s.addValid(ctx, p, name)
		return nil
	}
}

func (s *session) validName(ctx context.Context, raw string) (string, error) {
	return ValidateName(ctx, s.repo, s.serverID, raw)
}

func nameErrorMessage(raw string, err error) string {
	if cerr.IsCode(err, cerr.AlreadyExists) {
		return fmt.Sprintf("**The label `%s` is not unique on this server. Choose a different one!**", strings.TrimSpace(raw))
	}
	return "**Keep the task name between 2 and 25 valid characters**"
}

func (s *session) askDescription(ctx context.Context, force string) error {
	var forcedErr error
	if force != "" {
		desc, err := ValidateDescription(force)
		if err == nil {
			s.t.Description = desc
			return nil
		}
		forcedErr = err
	}
	p, err := s.say(ctx, descriptionPrompt, true)
	if err != nil {
		return err
	}
	if forcedErr != nil {
		s.addError(ctx, p, descriptionErrorMessage)
	}
	for {
		reply, err := s.nextReply(ctx)
		if err != nil {
			return err
		}
		desc, verr := ValidateDescription(reply)
		if verr != nil {
			s.addError(ctx, p, descriptionErrorMessage)
			continue
		}
		s.t.Description = desc
		s.addValid(ctx, p, desc)
		return nil
	}
}

const descriptionErrorMessage = "**Keep the task description between 3 and 400 valid characters**"

// skipAssigneesInput leaves the task unassigned.
const skipAssigneesInput = "0"

func (s *session) askAssignees(ctx context.Context, forced []string) error {
	var forcedErr error
	if len(forced) > 0 {
		set, err := ParseMentions(forced, s.t.UserIDs, s.t.RoleIDs)
		if err == nil {
			s.t.AddUsers(set.Users)
			s.t.AddRoles(set.Roles)
			return nil
		}
		forcedErr = err
	}
	p, err := s.say(ctx, assigneePrompt, true)
	if err != nil {
		return err
	}
	if forcedErr != nil {
		s.addError(ctx, p, assigneeErrorMessage(forcedErr))
	}
	for {
		reply, err := s.nextReply(ctx)
		if err != nil {
			return err
		}
		if reply == skipAssigneesInput {
			s.addValid(ctx, p, "no assignees")
			return nil
		}
		set, verr := ParseMentions(strings.Fields(reply), s.t.UserIDs, s.t.RoleIDs)
		if verr != nil {
			s.addError(ctx, p, assigneeErrorMessage(verr))
			continue
		}
		s.t.AddUsers(set.Users)
		s.t.AddRoles(set.Roles)
		s.addValid(ctx, p, reply)
		return nil
	}
}

func assigneeErrorMessage(err error) string {
	if cerr.IsCode(err, cerr.FailedPrecondition) {
		return "**Can't assign the same task to one user multiple times**"
	}
	return fmt.Sprintf("**%s**", cerr.Message(err))
}

func (s *session) askDeadline(ctx context.Context, force string) error {
	if force == SkipDeadline {
		return nil
	}
	var forcedErr error
	if force != "" {
		res, err := deadline.Resolve(force, s.clock(), s.cfg.ReferenceTZ)
		if err == nil {
			s.applyDeadline(res)
			return nil
		}
		forcedErr = err
	}
	p, err := s.say(ctx, deadlinePrompt, true)
	if err != nil {
		return err
	}
	if forcedErr != nil {
		s.addError(ctx, p, deadlineErrorMessage(forcedErr))
	}
	for {
		reply, err := s.nextReply(ctx)
		if err != nil {
			return err
		}
		res, verr := deadline.Resolve(reply, s.clock(), s.cfg.ReferenceTZ)
		if verr != nil {
			s.addError(ctx, p, deadlineErrorMessage(verr))
			continue
		}
		s.applyDeadline(res)
		s.addValid(ctx, p, res.Format())
		return nil
	}
}

func (s *session) applyDeadline(res deadline.Resolved) {
	if res.None {
		return
	}
	s.t.Deadline = res.At
	s.t.DeadlineTZ = res.TZ
}

func deadlineErrorMessage(err error) string {
	var oor *deadline.OutOfRangeError
	if errors.As(err, &oor) {
		return fmt.Sprintf("**%s is in the past.**", oor.At.Format("02-Jan-2006 15:04"))
	}
	return "**Specify the deadline time in a format I can understand.**"
}
