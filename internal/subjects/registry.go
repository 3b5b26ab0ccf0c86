package subjects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/classattendance/internal/errs"
	"github.com/classattendance/internal/kv"
)

// Key is where the ordered list of subject names is persisted.
const Key = "subjects"

// Hook is called after a subject has been added to or removed from the
// registry.
type Hook func(context.Context, Subject) error

type Registry struct {
	logger *slog.Logger
	store  kv.Store

	guard sync.RWMutex

	addedHooks   []Hook
	removedHooks []Hook
}

func NewRegistry(logger *slog.Logger, store kv.Store) *Registry {
	return &Registry{
		logger: logger,
		store:  store,
	}
}

// OnAdded registers a hook run after every successful Add.
func (r *Registry) OnAdded(hook Hook) {
	r.addedHooks = append(r.addedHooks, hook)
}

// OnRemoved registers a hook run after every successful Remove. Hook failures
// are logged and do not undo the removal.
func (r *Registry) OnRemoved(hook Hook) {
	r.removedHooks = append(r.removedHooks, hook)
}

// List returns subjects in insertion order. Unreadable data is reported as an
// empty registry.
func (r *Registry) List(ctx context.Context) []Subject {
	r.guard.RLock()
	defer r.guard.RUnlock()

	subjects, err := r.load(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "load subjects", "error", err)
		return []Subject{}
	}
	return subjects
}

func (r *Registry) Contains(ctx context.Context, subject Subject) bool {
	return slices.Contains(r.List(ctx), subject)
}

func (r *Registry) Add(ctx context.Context, name string) (Subject, error) {
	subject, err := Parse(name)
	if err != nil {
		return "", err
	}

	if err := r.mutate(ctx, func(subjects []Subject) ([]Subject, error) {
		if slices.Contains(subjects, subject) {
			return nil, fmt.Errorf("%w: subject %q", errs.ErrDuplicate, subject)
		}
		return append(subjects, subject), nil
	}); err != nil {
		return "", err
	}

	r.logger.InfoContext(ctx, "subject added", "subject", subject)
	r.runHooks(ctx, "added", r.addedHooks, subject)
	return subject, nil
}

func (r *Registry) Remove(ctx context.Context, subject Subject) error {
	if err := r.mutate(ctx, func(subjects []Subject) ([]Subject, error) {
		i := slices.Index(subjects, subject)
		if i < 0 {
			return nil, fmt.Errorf("%w: subject %q", errs.ErrNotFound, subject)
		}
		return slices.Delete(subjects, i, i+1), nil
	}); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "subject removed", "subject", subject)
	r.runHooks(ctx, "removed", r.removedHooks, subject)
	return nil
}

// mutate applies fn to the stored list and persists the result. Hooks are run
// by the callers once the lock is released, so they may call back into the
// registry.
func (r *Registry) mutate(ctx context.Context, fn func([]Subject) ([]Subject, error)) error {
	r.guard.Lock()
	defer r.guard.Unlock()

	subjects, err := r.load(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(subjects)
	if err != nil {
		return err
	}
	return r.save(ctx, updated)
}

func (r *Registry) runHooks(ctx context.Context, event string, hooks []Hook, subject Subject) {
	for _, hook := range hooks {
		if err := hook(ctx, subject); err != nil {
			r.logger.WarnContext(ctx, "subject hook failed",
				"event", event,
				"subject", subject,
				"error", err)
		}
	}
}

// load returns the stored list. A missing key or a value that does not decode
// is an empty registry; only store failures are returned.
func (r *Registry) load(ctx context.Context) ([]Subject, error) {
	value, err := r.store.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return []Subject{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", errs.ErrStorage, Key, err)
	}
	subjects, err := Decode(value)
	if err != nil {
		r.logger.WarnContext(ctx, "corrupt subjects, treating as empty", "error", err)
		return []Subject{}, nil
	}
	return subjects, nil
}

func (r *Registry) save(ctx context.Context, subjects []Subject) error {
	value, err := Encode(subjects)
	if err != nil {
		return fmt.Errorf("%w: encode subjects: %w", errs.ErrStorage, err)
	}
	if err := r.store.Set(ctx, Key, value); err != nil {
		return fmt.Errorf("%w: set %s: %w", errs.ErrStorage, Key, err)
	}
	return nil
}
