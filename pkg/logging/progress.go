package logging

import (
	"sync/atomic"
	"time"

	"github.com/eunmann/huimine/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// ProgressTracker counts processed units of work (frontier nodes,
// transactions) and emits throttled progress events. It is safe for
// concurrent use.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	skipped   atomic.Int64
	lastLog   atomic.Int64
	startTime time.Time
	interval  time.Duration
	log       zerolog.Logger
	phase     string
}

// NewProgressTracker creates a new progress tracker that logs at most once
// per second.
func NewProgressTracker(phase string, total int64, log zerolog.Logger) *ProgressTracker {
	now := time.Now()
	pt := &ProgressTracker{
		total:     total,
		startTime: now,
		interval:  time.Second,
		log:       log,
		phase:     phase,
	}
	pt.lastLog.Store(now.UnixNano())
	return pt
}

// RecordCompletion records n completed units and logs progress if the
// log interval has elapsed.
func (pt *ProgressTracker) RecordCompletion(n int64) {
	pt.completed.Add(n)
	pt.maybeLog()
}

// RecordSkip records that a unit was skipped.
func (pt *ProgressTracker) RecordSkip() {
	pt.skipped.Add(1)
	pt.maybeLog()
}

func (pt *ProgressTracker) maybeLog() {
	last := pt.lastLog.Load()
	now := time.Now().UnixNano()
	if now-last < int64(pt.interval) {
		return
	}
	if !pt.lastLog.CompareAndSwap(last, now) {
		return
	}
	NewCompletionEvent(pt.log, "progress", pt.phase, pt.Elapsed()).
		ProgressFromTracker(pt).
		LogDebug("progress")
}

// Progress returns current progress stats.
func (pt *ProgressTracker) Progress() (completed, skipped, total int64) {
	return pt.completed.Load(), pt.skipped.Load(), pt.total
}

// ProgressPct returns the progress percentage (0-100).
func (pt *ProgressTracker) ProgressPct() float64 {
	done := pt.completed.Load() + pt.skipped.Load()
	if pt.total == 0 {
		return 100.0
	}
	return float64(done) * 100.0 / float64(pt.total)
}

// ETA returns the estimated time remaining based on the overall rate.
func (pt *ProgressTracker) ETA() time.Duration {
	done := pt.completed.Load() + pt.skipped.Load()
	if done == 0 {
		return 0
	}
	remaining := pt.total - done
	if remaining <= 0 {
		return 0
	}
	perUnit := time.Since(pt.startTime) / time.Duration(done)
	return perUnit * time.Duration(remaining)
}

// Elapsed returns time since tracking started.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// Remaining returns how many units are remaining.
func (pt *ProgressTracker) Remaining() int64 {
	return pt.total - pt.completed.Load() - pt.skipped.Load()
}

// CompletionEvent helps build consistent completion log events.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	phase   string
	elapsed time.Duration
	keys    []string
	fields  map[string]interface{}
}

// NewCompletionEvent creates a new completion event builder.
func NewCompletionEvent(log zerolog.Logger, event, phase string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{
		log:     log,
		event:   event,
		phase:   phase,
		elapsed: elapsed,
		fields:  make(map[string]interface{}),
	}
}

func (ce *CompletionEvent) set(key string, val interface{}) *CompletionEvent {
	if _, ok := ce.fields[key]; !ok {
		ce.keys = append(ce.keys, key)
	}
	ce.fields[key] = val
	return ce
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	return ce.set(key, val)
}

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent {
	return ce.set(key, val)
}

// Float64 adds a float64 field.
func (ce *CompletionEvent) Float64(key string, val float64) *CompletionEvent {
	return ce.set(key, val)
}

// Count adds count with optional human-readable companion.
func (ce *CompletionEvent) Count(key string, n int64) *CompletionEvent {
	ce.set(key, n)
	if IsPrettyMode() {
		ce.set(key+"_h", humanfmt.Count(n))
	}
	return ce
}

// Bytes adds byte count with optional human-readable companion.
func (ce *CompletionEvent) Bytes(key string, bytes int64) *CompletionEvent {
	ce.set(key, bytes)
	if IsPrettyMode() {
		ce.set(key+"_h", humanfmt.Bytes(bytes))
	}
	return ce
}

// ProgressFromTracker adds progress fields from a ProgressTracker.
func (ce *CompletionEvent) ProgressFromTracker(pt *ProgressTracker) *CompletionEvent {
	completed, skipped, total := pt.Progress()
	ce.set("completed", completed)
	ce.set("skipped", skipped)
	ce.set("total", total)
	if total > 0 {
		ce.set("progress_pct", pt.ProgressPct())
		ce.set("remaining", pt.Remaining())
	}
	if eta := pt.ETA(); eta > 0 {
		ce.set("eta_ms", eta.Milliseconds())
		if IsPrettyMode() {
			ce.set("eta_h", humanfmt.Duration(eta))
		}
	}
	return ce
}

// Log emits the completion event at info level.
func (ce *CompletionEvent) Log(msg string) {
	ce.emit(ce.log.Info(), msg)
}

// LogDebug emits the completion event at debug level.
func (ce *CompletionEvent) LogDebug(msg string) {
	ce.emit(ce.log.Debug(), msg)
}

func (ce *CompletionEvent) emit(e *zerolog.Event, msg string) {
	e = e.Str("event", ce.event).
		Str("phase", ce.phase).
		Int64("duration_ms", ce.elapsed.Milliseconds())

	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}

	for _, k := range ce.keys {
		e = e.Interface(k, ce.fields[k])
	}

	e.Msg(msg)
}

// PhaseComplete logs a phase completion event.
func PhaseComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "phase_completed", phase, elapsed)
}

// LevelComplete logs the completion of one itemset size level.
func LevelComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "level_completed", phase, elapsed)
}

// FileCreated logs a file creation completion event.
func FileCreated(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "file_created", phase, elapsed)
}
