package telegram

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/classattendance/internal/attendance"
	"github.com/classattendance/internal/subjects"
	"github.com/classattendance/internal/timezone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommands(t *testing.T) (*Commands, *attendance.Ledger) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newKV(t)
	registry := subjects.NewRegistry(logger, store)
	ledger := attendance.NewLedger(logger, store, registry)
	registry.OnRemoved(ledger.Drop)
	zone, err := timezone.Load("UTC")
	require.NoError(t, err)
	return NewCommands(logger, NewStore(store), registry, ledger, zone), ledger
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	commands, ledger := newCommands(t)
	chat := Chat{ID: 42, FirstName: "Ada"}

	run := func(command, args string) string {
		reply, _ := commands.Run(ctx, chat, command, args)
		return reply
	}

	assert.Contains(t, run("start", ""), "Hi Ada!")
	chats, err := commands.store.ListChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Chat{chat}, chats)

	assert.Equal(t, "No subjects yet, add one with /add <name>.", run("subjects", ""))
	assert.Equal(t, "Added Physics Lab.", run("add", " Physics Lab "))
	assert.Equal(t, "Added Math.", run("add", "Math"))
	assert.Equal(t, `Already exists: subject "Math".`, run("add", "Math"))

	assert.Equal(t, "Math on 2025-01-01: 2/3.\nAttendance 67% (2/3 classes)", run("mark", "Math 3 2 2025-01-01"))
	assert.Equal(t, "Physics Lab on 2025-01-02: 2/2.\nAttendance 100% (2/2 classes)", run("mark", "Physics Lab 2 2 2025-01-02"))
	assert.Equal(t, "Math: 67% (2/3 classes)\nPhysics Lab: 100% (2/2 classes)", run("subjects", ""))

	reply, err := commands.Run(ctx, chat, "mark", "Math 1 2 2025-01-03")
	assert.Error(t, err)
	assert.Equal(t, "Invalid input: attended 2 exceeds total 1.", reply)

	assert.Equal(t, "Math on 2025-01-01 forgotten.\nAttendance 0% (0/0 classes)", run("unmark", "Math 2025-01-01"))
	assert.Equal(t, "Physics Lab: 100% (2/2 classes)", run("stats", "Physics Lab"))
	assert.Equal(t, `Not found: subject "History".`, run("stats", "History"))

	assert.Equal(t, "Cleared all attendance of Physics Lab.", run("clear", "Physics Lab"))
	assert.Empty(t, ledger.DayRecords(ctx, "Physics Lab"))

	assert.Equal(t, "Removed Math and its attendance.", run("remove", "Math"))
	assert.Equal(t, `Not found: subject "Math".`, run("remove", "Math"))

	reply, err = commands.Run(ctx, chat, "dance", "")
	assert.Error(t, err)
	assert.Contains(t, reply, "Unknown command.")
}

func TestMarkDefaultsToToday(t *testing.T) {
	ctx := context.Background()
	commands, ledger := newCommands(t)
	commands.zone = fixedZone(t, "2025-03-04")

	_, err := commands.registry.Add(ctx, "Math")
	require.NoError(t, err)

	_, err = commands.Run(ctx, Chat{ID: 1}, "mark", "Math 2 1")
	require.NoError(t, err)
	assert.Equal(t, attendance.Records{
		"2025-03-04": {Total: 2, Attended: 1},
	}, ledger.DayRecords(ctx, "Math"))
}

func TestParseMark(t *testing.T) {
	req, err := parseMark("Organic Chemistry 4 3 2025-01-01", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, &markRequest{subject: "Organic Chemistry", date: "2025-01-01", total: 4, attended: 3}, req)

	req, err = parseMark("Math 4 3", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", req.date)

	req, err = parseMark("  Data  Science   4 3  2025-01-01 ", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, &markRequest{subject: "Data  Science", date: "2025-01-01", total: 4, attended: 3}, req)

	for _, args := range []string{"", "Math", "Math 4", "4 3", "Math four 3"} {
		_, err := parseMark(args, "2025-06-01")
		assert.ErrorIs(t, err, errUsage, args)
	}
}

func TestNamesKeepInnerSpacing(t *testing.T) {
	ctx := context.Background()
	commands, ledger := newCommands(t)

	_, err := commands.registry.Add(ctx, "Data  Science")
	require.NoError(t, err)

	_, err = commands.Run(ctx, Chat{ID: 1}, "mark", "Data  Science 3 2 2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, attendance.Records{
		"2025-01-01": {Total: 3, Attended: 2},
	}, ledger.DayRecords(ctx, "Data  Science"))

	reply, err := commands.Run(ctx, Chat{ID: 1}, "stats", "Data  Science")
	require.NoError(t, err)
	assert.Equal(t, "Data  Science: 67% (2/3 classes)", reply)

	_, err = commands.Run(ctx, Chat{ID: 1}, "unmark", "Data  Science 2025-01-01")
	require.NoError(t, err)
	assert.Empty(t, ledger.DayRecords(ctx, "Data  Science"))
}

func TestSplitDate(t *testing.T) {
	rest, date := splitDate("Math", "2025-06-01")
	assert.Equal(t, "Math", rest)
	assert.Equal(t, "2025-06-01", date)

	rest, date = splitDate("Math 2025-01-01", "2025-06-01")
	assert.Equal(t, "Math", rest)
	assert.Equal(t, "2025-01-01", date)

	rest, date = splitDate("", "2025-06-01")
	assert.Equal(t, "", rest)
	assert.Equal(t, "2025-06-01", date)
}

func TestCommandLabel(t *testing.T) {
	assert.Equal(t, "mark", commandLabel("mark"))
	assert.Equal(t, "unknown", commandLabel("dance"))
	assert.Equal(t, "unknown", commandLabel(""))
}

func fixedZone(t *testing.T, date string) *timezone.Zone {
	t.Helper()
	day, err := time.Parse(time.DateOnly, date)
	require.NoError(t, err)
	return timezone.NewZone(time.UTC, func() time.Time {
		return day.Add(12 * time.Hour)
	})
}
