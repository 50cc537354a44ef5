package ui

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

const progressUpdateFrequency = 50 * time.Millisecond

func NewProgressWriter(w io.Writer) progress.Writer {
	writer := progress.NewWriter()
	writer.SetOutputWriter(w)
	writer.SetAutoStop(true)
	writer.SetTrackerLength(30)
	writer.SetUpdateFrequency(progressUpdateFrequency)
	writer.SetStyle(progress.StyleBlocks)
	writer.Style().Visibility.ETA = true
	writer.Style().Visibility.Speed = true
	writer.Style().Visibility.Value = true

	return writer
}

// BuildProgress tracks pages written during a site build.
type BuildProgress struct {
	tracker *progress.Tracker
	done    chan struct{}
}

// NewBuildProgress starts rendering a tracker for total pages.
func NewBuildProgress(w io.Writer, total int) *BuildProgress {
	writer := NewProgressWriter(w)
	tracker := &progress.Tracker{
		Message: "writing pages",
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	writer.AppendTracker(tracker)

	b := &BuildProgress{tracker: tracker, done: make(chan struct{})}
	go func() {
		defer close(b.done)
		writer.Render()
	}()

	return b
}

// Increment is safe to call from build workers.
func (b *BuildProgress) Increment() {
	b.tracker.Increment(1)
}

// Stop marks the tracker done and waits for the final render. Auto-stop
// ends rendering once every tracker is done.
func (b *BuildProgress) Stop(err error) {
	if err != nil {
		b.tracker.MarkAsErrored()
	} else {
		b.tracker.MarkAsDone()
	}
	<-b.done
}
