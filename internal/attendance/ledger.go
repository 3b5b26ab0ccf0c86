// Package attendance keeps the per subject ledger of day records and derives
// attendance statistics from it.
package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/classattendance/internal/errs"
	"github.com/classattendance/internal/kv"
	"github.com/classattendance/internal/subjects"
)

// KeyPrefix prefixes the key a subject's ledger is persisted under.
const KeyPrefix = "attendance_"

func Key(subject subjects.Subject) string {
	return KeyPrefix + string(subject)
}

// Registry is the part of the subject registry the ledger depends on.
type Registry interface {
	List(context.Context) []subjects.Subject
	Contains(context.Context, subjects.Subject) bool
}

type Ledger struct {
	logger   *slog.Logger
	store    kv.Store
	registry Registry

	guard sync.Mutex
}

func NewLedger(logger *slog.Logger, store kv.Store, registry Registry) *Ledger {
	return &Ledger{
		logger:   logger,
		store:    store,
		registry: registry,
	}
}

// DayRecords returns the ledger of a subject. Ledgers of subjects that are no
// longer registered are never read, and unreadable ledgers are empty.
func (l *Ledger) DayRecords(ctx context.Context, subject subjects.Subject) Records {
	if !l.registry.Contains(ctx, subject) {
		return Records{}
	}
	l.guard.Lock()
	defer l.guard.Unlock()
	records, err := l.load(ctx, subject)
	if err != nil {
		l.logger.WarnContext(ctx, "load ledger", "subject", subject, "error", err)
		return Records{}
	}
	return records
}

// UpsertDay records total and attended classes for a date. A total of zero
// removes the date from the ledger.
func (l *Ledger) UpsertDay(ctx context.Context, subject subjects.Subject, date string, total, attended int) error {
	if _, err := ParseDate(date); err != nil {
		return err
	}
	if err := validateCounts(total, attended); err != nil {
		return err
	}
	if !l.registry.Contains(ctx, subject) {
		return fmt.Errorf("%w: subject %q", errs.ErrNotFound, subject)
	}

	l.guard.Lock()
	defer l.guard.Unlock()

	records, err := l.load(ctx, subject)
	if err != nil {
		return err
	}
	if total == 0 {
		delete(records, date)
	} else {
		records[date] = DayRecord{
			Total:    total,
			Attended: attended,
		}
	}
	if err := l.save(ctx, subject, records); err != nil {
		return err
	}
	l.logger.DebugContext(ctx, "day recorded",
		"subject", subject,
		"date", date,
		"total", total,
		"attended", attended)
	return nil
}

// ClearAll removes every record of a subject. Clearing an empty ledger is a
// no-op.
func (l *Ledger) ClearAll(ctx context.Context, subject subjects.Subject) error {
	if !l.registry.Contains(ctx, subject) {
		return fmt.Errorf("%w: subject %q", errs.ErrNotFound, subject)
	}
	return l.Drop(ctx, subject)
}

// Drop deletes the persisted ledger of a subject whether or not the subject
// is registered. It is the registry's cascade on removal.
func (l *Ledger) Drop(ctx context.Context, subject subjects.Subject) error {
	l.guard.Lock()
	defer l.guard.Unlock()
	if err := l.store.Delete(ctx, Key(subject)); err != nil {
		return fmt.Errorf("%w: delete %s: %w", errs.ErrStorage, Key(subject), err)
	}
	return nil
}

func (l *Ledger) Stats(ctx context.Context, subject subjects.Subject) Stats {
	return Calculate(l.DayRecords(ctx, subject))
}

type Summary struct {
	Subject subjects.Subject `json:"subject"`
	Stats
}

// Summaries returns the statistics of every registered subject in registry
// order.
func (l *Ledger) Summaries(ctx context.Context) []Summary {
	list := l.registry.List(ctx)
	summaries := make([]Summary, 0, len(list))
	for _, subject := range list {
		summaries = append(summaries, Summary{
			Subject: subject,
			Stats:   l.Stats(ctx, subject),
		})
	}
	return summaries
}

func (l *Ledger) Month(ctx context.Context, subject subjects.Subject, year int, month time.Month) MonthView {
	return CalculateMonth(l.DayRecords(ctx, subject), year, month)
}

func (l *Ledger) load(ctx context.Context, subject subjects.Subject) (Records, error) {
	value, err := l.store.Get(ctx, Key(subject))
	if errors.Is(err, kv.ErrNotFound) {
		return Records{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", errs.ErrStorage, Key(subject), err)
	}
	records, err := Decode(value)
	if err != nil {
		l.logger.WarnContext(ctx, "corrupt ledger, treating as empty", "subject", subject, "error", err)
		return Records{}, nil
	}
	return records, nil
}

func (l *Ledger) save(ctx context.Context, subject subjects.Subject, records Records) error {
	if len(records) == 0 {
		if err := l.store.Delete(ctx, Key(subject)); err != nil {
			return fmt.Errorf("%w: delete %s: %w", errs.ErrStorage, Key(subject), err)
		}
		return nil
	}
	value, err := Encode(records)
	if err != nil {
		return fmt.Errorf("%w: encode ledger: %w", errs.ErrStorage, err)
	}
	if err := l.store.Set(ctx, Key(subject), value); err != nil {
		return fmt.Errorf("%w: set %s: %w", errs.ErrStorage, Key(subject), err)
	}
	return nil
}

func Encode(records Records) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses a persisted ledger. Display fields written by older clients
// are ignored, entries with no classes or a malformed date are dropped and
// attended is clamped to [0, total].
func Decode(value string) (Records, error) {
	var raw map[string]DayRecord
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, err
	}
	records := make(Records, len(raw))
	for date, r := range raw {
		if r.Total <= 0 {
			continue
		}
		if _, err := ParseDate(date); err != nil {
			continue
		}
		r.Attended = min(max(r.Attended, 0), r.Total)
		records[date] = r
	}
	return records, nil
}
