package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/classattendance/internal/attendance"
	"github.com/classattendance/internal/errs"
	"github.com/classattendance/internal/subjects"
	"github.com/classattendance/internal/timezone"
)

const helpText = `Track your class attendance:
/subjects - list subjects with attendance
/add <name> - add a subject
/remove <name> - remove a subject and its attendance
/mark <name> <total> <attended> [YYYY-MM-DD] - record a day, today by default
/unmark <name> [YYYY-MM-DD] - forget a day
/stats <name> - attendance of a subject
/clear <name> - forget all attendance of a subject`

var errUsage = errors.New("usage")

// Commands executes bot commands against the registry and the ledger and
// returns the text to reply with.
type Commands struct {
	logger   *slog.Logger
	store    *Store
	registry *subjects.Registry
	ledger   *attendance.Ledger
	zone     *timezone.Zone
}

func NewCommands(
	logger *slog.Logger,
	store *Store,
	registry *subjects.Registry,
	ledger *attendance.Ledger,
	zone *timezone.Zone,
) *Commands {
	return &Commands{
		logger:   logger,
		store:    store,
		registry: registry,
		ledger:   ledger,
		zone:     zone,
	}
}

var knownCommands = map[string]bool{
	"start":    true,
	"help":     true,
	"subjects": true,
	"add":      true,
	"remove":   true,
	"mark":     true,
	"unmark":   true,
	"stats":    true,
	"clear":    true,
}

// commandLabel bounds the metric label to the commands the bot knows.
func commandLabel(command string) string {
	if knownCommands[command] {
		return command
	}
	return "unknown"
}

// Run executes a command. The error is only for accounting, the reply always
// holds something meaningful for the user.
func (c *Commands) Run(ctx context.Context, chat Chat, command, args string) (string, error) {
	args = strings.TrimSpace(args)
	var (
		reply string
		err   error
	)
	switch command {
	case "start":
		reply, err = c.start(ctx, chat)
	case "help":
		reply = helpText
	case "subjects":
		reply = c.subjects(ctx)
	case "add":
		reply, err = c.add(ctx, args)
	case "remove":
		reply, err = c.remove(ctx, args)
	case "mark":
		reply, err = c.mark(ctx, args)
	case "unmark":
		reply, err = c.unmark(ctx, args)
	case "stats":
		reply, err = c.stats(ctx, args)
	case "clear":
		reply, err = c.clear(ctx, args)
	default:
		return "Unknown command.\n\n" + helpText, errUsage
	}
	if err != nil {
		return c.explain(ctx, command, err), err
	}
	return reply, nil
}

func (c *Commands) explain(ctx context.Context, command string, err error) string {
	switch {
	case errors.Is(err, errUsage):
		return capitalize(err.Error())
	case errors.Is(err, errs.ErrValidation),
		errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrDuplicate):
		return capitalize(err.Error()) + "."
	default:
		c.logger.ErrorContext(ctx, "telegram command", "command", command, "error", err)
		return "Something went wrong, please try again."
	}
}

func (c *Commands) start(ctx context.Context, chat Chat) (string, error) {
	if err := c.store.InsertChat(ctx, &chat); err != nil {
		return "", fmt.Errorf("insert chat: %w", err)
	}
	return fmt.Sprintf("Hi %s!\n\n%s", chat.FirstName, helpText), nil
}

func (c *Commands) subjects(ctx context.Context) string {
	summaries := c.ledger.Summaries(ctx)
	if len(summaries) == 0 {
		return "No subjects yet, add one with /add <name>."
	}
	lines := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		lines = append(lines, fmt.Sprintf("%s: %s", summary.Subject, formatStats(summary.Stats)))
	}
	return strings.Join(lines, "\n")
}

func (c *Commands) add(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "", fmt.Errorf("%w: /add <name>", errUsage)
	}
	subject, err := c.registry.Add(ctx, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %s.", subject), nil
}

func (c *Commands) remove(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "", fmt.Errorf("%w: /remove <name>", errUsage)
	}
	if err := c.registry.Remove(ctx, subjects.Subject(args)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed %s and its attendance.", args), nil
}

func (c *Commands) mark(ctx context.Context, args string) (string, error) {
	req, err := parseMark(args, c.zone.Today())
	if err != nil {
		return "", err
	}
	if err := c.ledger.UpsertDay(ctx, req.subject, req.date, req.total, req.attended); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s on %s: %d/%d.\nAttendance %s",
		req.subject, req.date, req.attended, req.total,
		formatStats(c.ledger.Stats(ctx, req.subject))), nil
}

func (c *Commands) unmark(ctx context.Context, args string) (string, error) {
	subject, date := splitDate(args, c.zone.Today())
	if subject == "" {
		return "", fmt.Errorf("%w: /unmark <name> [YYYY-MM-DD]", errUsage)
	}
	if err := c.ledger.UpsertDay(ctx, subjects.Subject(subject), date, 0, 0); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s on %s forgotten.\nAttendance %s",
		subject, date, formatStats(c.ledger.Stats(ctx, subjects.Subject(subject)))), nil
}

func (c *Commands) stats(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "", fmt.Errorf("%w: /stats <name>", errUsage)
	}
	subject := subjects.Subject(args)
	if !c.registry.Contains(ctx, subject) {
		return "", fmt.Errorf("%w: subject %q", errs.ErrNotFound, subject)
	}
	return fmt.Sprintf("%s: %s", subject, formatStats(c.ledger.Stats(ctx, subject))), nil
}

func (c *Commands) clear(ctx context.Context, args string) (string, error) {
	if args == "" {
		return "", fmt.Errorf("%w: /clear <name>", errUsage)
	}
	if err := c.ledger.ClearAll(ctx, subjects.Subject(args)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Cleared all attendance of %s.", args), nil
}

func formatStats(stats attendance.Stats) string {
	return fmt.Sprintf("%d%% (%d/%d classes)", stats.Percentage, stats.PresentCount, stats.TotalCount)
}

type markRequest struct {
	subject  subjects.Subject
	date     string
	total    int
	attended int
}

// parseMark parses "<name> <total> <attended> [date]". Names may contain
// spaces, so arguments are taken from the end.
func parseMark(args, today string) (*markRequest, error) {
	usage := fmt.Errorf("%w: /mark <name> <total> <attended> [YYYY-MM-DD]", errUsage)
	rest, date := splitDate(args, today)
	rest, attendedArg := cutLastField(rest)
	name, totalArg := cutLastField(rest)
	if name == "" {
		return nil, usage
	}
	total, err := strconv.Atoi(totalArg)
	if err != nil {
		return nil, usage
	}
	attended, err := strconv.Atoi(attendedArg)
	if err != nil {
		return nil, usage
	}
	return &markRequest{
		subject:  subjects.Subject(name),
		date:     date,
		total:    total,
		attended: attended,
	}, nil
}

// splitDate removes a trailing date from args, defaulting to today.
func splitDate(args, today string) (string, string) {
	args = strings.TrimSpace(args)
	rest, last := cutLastField(args)
	if _, err := attendance.ParseDate(last); err == nil {
		return rest, last
	}
	return args, today
}

// cutLastField splits s around its last whitespace separated field. Spacing
// inside the rest is kept as typed.
func cutLastField(s string) (string, string) {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	i := strings.LastIndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return "", s
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return strings.TrimRightFunc(s[:i], unicode.IsSpace), s[i+size:]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
