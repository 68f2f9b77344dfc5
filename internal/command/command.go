// Package command turns chat lines like ";train" or ";use 2" into engine calls.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/progression"
)

// Command names
const (
	Start   = "start"
	Select  = "select"
	Train   = "train"
	Work    = "work"
	Ascend  = "ascend"
	Buy     = "buy"
	Inbox   = "inbox"
	Use     = "use"
	Profile = "profile"
	Top     = "top"
	Grant   = "grant"
	Reset   = "reset"
)

const (
	// DefaultPrefix starts every command line
	DefaultPrefix = ";"

	defaultTopLimit = 10
	maxTopLimit     = 50
)

var aliases = map[string]string{
	"cards": Profile,
}

var adminOnly = map[string]bool{
	Grant: true,
	Reset: true,
}

var (
	// ErrNotCommand is returned for lines that do not start with the prefix
	ErrNotCommand = errors.New("not a command")
	// ErrUnknownCommand is returned for a prefixed line with an unknown name
	ErrUnknownCommand = errors.New("unknown command")
	// ErrForbidden is returned when a non-admin calls an admin command
	ErrForbidden = errors.New("admin command")
	// ErrLeaderboardUnavailable is returned when no leaderboard source is configured
	ErrLeaderboardUnavailable = errors.New("leaderboard unavailable")
)

// Parse splits line into a lower-cased command name and its arguments.
// ok is false when the line lacks the prefix or names no command.
func Parse(prefix, line string) (name string, args []string, ok bool) {
	line = strings.TrimSpace(line)
	if prefix == "" || !strings.HasPrefix(line, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(line[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	name = strings.ToLower(fields[0])
	if canonical, found := aliases[name]; found {
		name = canonical
	}
	return name, fields[1:], true
}

// Leaderboard ranks cards by experience
type Leaderboard interface {
	TopCards(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Response carries the engine result of one command
type Response struct {
	Command string      `json:"command"`
	Result  interface{} `json:"result"`
}

// Dispatcher routes parsed commands to the progression engine
type Dispatcher struct {
	engine *progression.Engine
	board  Leaderboard
	prefix string
	admins map[string]struct{}
}

// NewDispatcher creates a dispatcher. board may be nil.
func NewDispatcher(engine *progression.Engine, prefix string, admins []string, board Leaderboard) *Dispatcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	d := &Dispatcher{
		engine: engine,
		board:  board,
		prefix: prefix,
		admins: make(map[string]struct{}, len(admins)),
	}
	for _, id := range admins {
		if id = strings.TrimSpace(id); id != "" {
			d.admins[id] = struct{}{}
		}
	}
	return d
}

// Prefix returns the command prefix
func (d *Dispatcher) Prefix() string { return d.prefix }

// IsAdmin reports whether userID may run admin commands
func (d *Dispatcher) IsAdmin(userID string) bool {
	_, ok := d.admins[userID]
	return ok
}

// Dispatch parses line and runs it for userID
func (d *Dispatcher) Dispatch(ctx context.Context, userID, line string) (*Response, error) {
	name, args, ok := Parse(d.prefix, line)
	if !ok {
		return nil, ErrNotCommand
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: missing user id", progression.ErrValidation)
	}

	logger.Debug("Dispatching command", "userId", userID, "command", name, "args", len(args))

	if adminOnly[name] && !d.IsAdmin(userID) {
		logger.Warn("Rejected admin command", "userId", userID, "command", name)
		return nil, ErrForbidden
	}

	result, err := d.run(ctx, userID, name, args)
	if err != nil {
		return nil, err
	}
	return &Response{Command: name, Result: result}, nil
}

func (d *Dispatcher) run(ctx context.Context, userID, name string, args []string) (interface{}, error) {
	switch name {
	case Start:
		return d.engine.GrantStarterCard(ctx, userID)
	case Select:
		code, err := cardArg(args)
		if err != nil {
			return nil, err
		}
		return d.engine.SelectCard(ctx, userID, code)
	case Train:
		return d.engine.Train(ctx, userID)
	case Work:
		return d.engine.Work(ctx, userID)
	case Ascend:
		return d.engine.Ascend(ctx, userID)
	case Buy:
		code, err := cardArg(args)
		if err != nil {
			return nil, err
		}
		return d.engine.BuyCard(ctx, userID, code)
	case Inbox:
		return d.engine.ListMailbox(ctx, userID)
	case Use:
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: use needs a mailbox position", progression.ErrValidation)
		}
		pos, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w: mailbox position %q is not a number", progression.ErrValidation, args[0])
		}
		return d.engine.UseMailboxItem(ctx, userID, pos)
	case Profile:
		return d.engine.Profile(ctx, userID)
	case Top:
		return d.top(ctx, args)
	case Grant:
		target, err := userArg(args)
		if err != nil {
			return nil, err
		}
		return d.engine.GrantWorkMail(ctx, target)
	case Reset:
		target, err := userArg(args)
		if err != nil {
			return nil, err
		}
		return d.engine.ResetProfile(ctx, target)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
}

func (d *Dispatcher) top(ctx context.Context, args []string) ([]models.LeaderboardEntry, error) {
	if d.board == nil {
		return nil, ErrLeaderboardUnavailable
	}
	limit := defaultTopLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > maxTopLimit {
			return nil, fmt.Errorf("%w: top takes a number from 1 to %d", progression.ErrValidation, maxTopLimit)
		}
		limit = n
	}
	entries, err := d.board.TopCards(ctx, limit)
	if err != nil {
		logger.Error("Leaderboard query failed", "error", err)
		return nil, fmt.Errorf("%w: %v", progression.ErrStorageUnavailable, err)
	}
	return entries, nil
}

// cardArg reads a card code; codes are stored upper-case
func cardArg(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: a card code is required", progression.ErrValidation)
	}
	return strings.ToUpper(args[0]), nil
}

// userArg reads a user id, accepting chat mentions like <@123> or <@!123>
func userArg(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("%w: a user id is required", progression.ErrValidation)
	}
	id := strings.TrimSuffix(strings.TrimPrefix(args[0], "<@"), ">")
	id = strings.TrimPrefix(id, "!")
	if id == "" {
		return "", fmt.Errorf("%w: a user id is required", progression.ErrValidation)
	}
	return id, nil
}
