package history

import (
	"context"
	"time"

	"github.com/nerrad567/beacon-bridge/internal/device"
)

// writeTimeout bounds one history insert.
const writeTimeout = 2 * time.Second

// Logger is the logging interface used by the Recorder.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder appends registry updates to a Repository and prunes old rows.
type Recorder struct {
	repo   Repository
	source string
	logger Logger
}

// NewRecorder creates a Recorder tagging entries with source. A nil logger
// discards output.
func NewRecorder(repo Repository, source string, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, source: source, logger: logger}
}

// Record is a device.Listener. Write failures are logged, never returned,
// so a full disk cannot stall the pipeline.
func (r *Recorder) Record(snap device.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Record(ctx, snap, r.source); err != nil {
		r.logger.Error("failed to record reading history", "device_id", snap.DeviceID, "error", err)
	}
}

// RunPruner deletes entries older than retention every interval until ctx
// is cancelled. A non-positive retention disables pruning.
func (r *Recorder) RunPruner(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}

	prune := func() {
		n, err := r.repo.Prune(ctx, retention)
		if err != nil {
			r.logger.Error("failed to prune reading history", "error", err)
			return
		}
		if n > 0 {
			r.logger.Info("pruned reading history", "rows", n, "retention", retention.String())
		}
	}

	prune()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
