// FILE: confspec/watch.go

package confspec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// ConfigChangeFunc is invoked with the previous and new configuration
// whenever a watched source produces fresh data.
type ConfigChangeFunc func(oldConfig, newConfig map[string]any)

// ChangeHandler tracks the current configuration snapshot and dispatches
// change notifications: the whole-config callback fires on every update,
// and each item whose value differs from the previous snapshot has its
// watch target invoked. Safe for concurrent use; updates are serialized.
type ChangeHandler struct {
	mu       sync.Mutex
	current  map[string]any
	spec     *Spec
	onChange ConfigChangeFunc
}

// NewChangeHandler creates a handler seeded with the given baseline
// configuration. onChange may be nil.
func NewChangeHandler(spec *Spec, baseline Config, onChange ConfigChangeFunc) *ChangeHandler {
	return &ChangeHandler{
		current:  baseline.Map(),
		spec:     spec,
		onChange: onChange,
	}
}

// HandleChange accepts a new configuration snapshot, fires the callbacks,
// and replaces the stored baseline.
func (h *ChangeHandler) HandleChange(newConfig map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.onChange != nil {
		h.onChange(h.current, newConfig)
	}

	separator := h.spec.Separator()
	flatNew := flattenMap(newConfig, separator, "")
	flatOld := flattenMap(h.current, separator, "")

	keys := make([]string, 0, len(flatNew))
	for key := range flatNew {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		newValue := flatNew[key]
		oldValue := flatOld[key]
		if reflect.DeepEqual(newValue, oldValue) {
			continue
		}
		item := h.spec.FindItem(key)
		if item != nil && item.watchTarget != nil {
			item.watchTarget(oldValue, newValue)
		}
	}

	h.current = deepCopyMap(newConfig)
}

// Current returns a copy of the handler's current snapshot.
func (h *ChangeHandler) Current() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return deepCopyMap(h.current)
}

// WatchOptions configures poll-based source watching.
type WatchOptions struct {
	// PollInterval between source reads. Values below MinPollInterval
	// are raised to it.
	PollInterval time.Duration

	// Debounce is the settle period after a file change is detected
	// before the file is reloaded.
	Debounce time.Duration
}

// DefaultWatchOptions returns the standard watch settings.
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval: DefaultPollInterval,
		Debounce:     DefaultDebounce,
	}
}

func (o WatchOptions) normalized() WatchOptions {
	if o.PollInterval < MinPollInterval {
		o.PollInterval = MinPollInterval
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	return o
}

// WatchSource blocks, monitoring the registered source and pushing each
// change to the handler. Sources implementing WatchableSource use their
// native mechanism; file sources are stat-polled with deletion treated as
// fatal; everything else is polled by comparing successive reads.
// Returns when ctx is canceled or the source fails unrecoverably.
func (s *Spec) WatchSource(ctx context.Context, label string, handler *ChangeHandler, opts WatchOptions) error {
	source, ok := s.GetSource(label)
	if !ok {
		return fmt.Errorf("%w: no source registered under label %q", ErrSource, label)
	}
	opts = opts.normalized()

	if watchable, ok := source.(WatchableSource); ok {
		return watchable.Watch(ctx, handler.HandleChange)
	}
	if file, ok := source.(*fileSource); ok {
		return s.watchFile(ctx, label, file, handler, opts)
	}
	return s.pollSource(ctx, label, source, handler, opts)
}

// WatchSources watches several registered sources concurrently, stopping
// all of them when any one fails. Blocks until every watch has returned.
func (s *Spec) WatchSources(ctx context.Context, handler *ChangeHandler, opts WatchOptions, labels ...string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var errs []error
	var wg conc.WaitGroup

	for _, label := range labels {
		label := label
		wg.Go(func() {
			err := s.WatchSource(ctx, label, handler, opts)
			if err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancel()
			}
		})
	}
	wg.Wait()

	return errors.Join(errs...)
}

func (s *Spec) watchFile(ctx context.Context, label string, file *fileSource, handler *ChangeHandler, opts WatchOptions) error {
	info, err := os.Stat(file.filename)
	if err != nil {
		return fmt.Errorf("%w: cannot watch %s: %v", ErrSource, file.filename, err)
	}
	lastMod := info.ModTime()
	lastSize := info.Size()

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(file.filename)
		if err != nil {
			return fmt.Errorf("%w: watched file %s was removed, aborting watch",
				ErrSource, file.filename)
		}
		if info.ModTime().Equal(lastMod) && info.Size() == lastSize {
			continue
		}

		// Let in-flight writes settle before reading.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.Debounce):
		}

		info, err = os.Stat(file.filename)
		if err != nil {
			return fmt.Errorf("%w: watched file %s was removed, aborting watch",
				ErrSource, file.filename)
		}
		lastMod = info.ModTime()
		lastSize = info.Size()

		data, err := file.GetData(ctx)
		if err != nil {
			s.logger.Warn("failed to reload watched file",
				zap.String("label", label), zap.Error(err))
			continue
		}
		handler.HandleChange(data)
	}
}

func (s *Spec) pollSource(ctx context.Context, label string, source Source, handler *ChangeHandler, opts WatchOptions) error {
	last, err := source.GetData(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		data, err := source.GetData(ctx)
		if err != nil {
			s.logger.Warn("failed to poll source",
				zap.String("label", label), zap.Error(err))
			continue
		}
		if reflect.DeepEqual(data, last) {
			continue
		}
		last = data
		handler.HandleChange(data)
	}
}
