package migrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/classattendance/internal/attendance"
	"github.com/classattendance/internal/kv"
	"github.com/classattendance/internal/subjects"
)

// Run rewrites data imported from the mobile app into the canonical form.
// It is safe to run on every start.
func Run(ctx context.Context, logger *slog.Logger, store kv.Store) error {
	list, err := normalizeSubjects(ctx, logger, store)
	if err != nil {
		return fmt.Errorf("normalize subjects: %w", err)
	}
	for _, subject := range list {
		if err := normalizeLedger(ctx, logger, store, subject); err != nil {
			return fmt.Errorf("normalize ledger of %q: %w", subject, err)
		}
	}
	return nil
}

// normalizeSubjects trims names and drops empty and duplicate ones, which the
// mobile app allowed. Ledgers follow their subject to the trimmed name.
func normalizeSubjects(ctx context.Context, logger *slog.Logger, store kv.Store) ([]subjects.Subject, error) {
	value, err := store.Get(ctx, subjects.Key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	stored, err := subjects.Decode(value)
	if err != nil {
		logger.WarnContext(ctx, "subjects are not decodable, skipping migration", "error", err)
		return nil, nil
	}

	normalized := make([]subjects.Subject, 0, len(stored))
	for _, s := range stored {
		subject, err := subjects.Parse(string(s))
		if err != nil {
			continue
		}
		if s != subject {
			if err := moveLedger(ctx, logger, store, s, subject); err != nil {
				return nil, fmt.Errorf("move ledger of %q: %w", s, err)
			}
		}
		if slices.Contains(normalized, subject) {
			continue
		}
		normalized = append(normalized, subject)
	}

	if slices.Equal(stored, normalized) {
		return normalized, nil
	}
	encoded, err := subjects.Encode(normalized)
	if err != nil {
		return nil, err
	}
	if err := store.Set(ctx, subjects.Key, encoded); err != nil {
		return nil, fmt.Errorf("set: %w", err)
	}
	logger.InfoContext(ctx, "subjects migrated", "before", len(stored), "after", len(normalized))
	return normalized, nil
}

// moveLedger merges the ledger stored under from into the ledger of to and
// deletes the old key. Days already recorded under to are kept.
func moveLedger(ctx context.Context, logger *slog.Logger, store kv.Store, from, to subjects.Subject) error {
	fromKey, toKey := attendance.Key(from), attendance.Key(to)
	value, err := store.Get(ctx, fromKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	moved, err := attendance.Decode(value)
	if err != nil {
		logger.WarnContext(ctx, "ledger is not decodable, skipping move", "subject", from, "error", err)
		return nil
	}

	records := attendance.Records{}
	if value, err := store.Get(ctx, toKey); err == nil {
		existing, err := attendance.Decode(value)
		if err != nil {
			logger.WarnContext(ctx, "ledger is not decodable, skipping move", "subject", to, "error", err)
			return nil
		}
		records = existing
	} else if !errors.Is(err, kv.ErrNotFound) {
		return err
	}
	for date, record := range moved {
		if _, ok := records[date]; !ok {
			records[date] = record
		}
	}

	if len(records) > 0 {
		encoded, err := attendance.Encode(records)
		if err != nil {
			return err
		}
		if err := store.Set(ctx, toKey, encoded); err != nil {
			return fmt.Errorf("set: %w", err)
		}
	}
	if err := store.Delete(ctx, fromKey); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	logger.InfoContext(ctx, "ledger moved", "from", from, "to", to, "days", len(moved))
	return nil
}

// normalizeLedger strips the display fields the mobile app stored next to the
// counts and drops days without classes.
func normalizeLedger(ctx context.Context, logger *slog.Logger, store kv.Store, subject subjects.Subject) error {
	key := attendance.Key(subject)
	value, err := store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	records, err := attendance.Decode(value)
	if err != nil {
		logger.WarnContext(ctx, "ledger is not decodable, skipping migration", "subject", subject, "error", err)
		return nil
	}

	if len(records) == 0 {
		if err := store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		logger.InfoContext(ctx, "empty ledger removed", "subject", subject)
		return nil
	}

	encoded, err := attendance.Encode(records)
	if err != nil {
		return err
	}
	if encoded == value {
		return nil
	}
	if err := store.Set(ctx, key, encoded); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	logger.InfoContext(ctx, "ledger migrated", "subject", subject, "days", len(records))
	return nil
}
