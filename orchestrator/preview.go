/*
preview.go - Latest-request-wins preview fetching

PURPOSE:
  A reviewer may switch months faster than previews come back. Only the
  response for the currently selected period may reach the display; anything
  older is dropped with ErrStalePreview.

MECHANISM:
  Every Load or Clear bumps a sequence number and cancels the context of the
  request in flight. A response is accepted only if its sequence number is
  still the latest when it returns.
*/
package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/warp/salary-engine/generic"
	"github.com/warp/salary-engine/salary"
)

// ErrStalePreview is returned for a response superseded by a newer selection.
var ErrStalePreview = errors.New("preview is for a period no longer selected")

// PreviewLoader fetches previews for one teacher.
type PreviewLoader struct {
	collab    salary.Collaborator
	teacherID generic.TeacherID

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	period  generic.PeriodKey
	current *salary.Preview
}

// NewPreviewLoader creates a loader.
func NewPreviewLoader(c salary.Collaborator, teacherID generic.TeacherID) *PreviewLoader {
	return &PreviewLoader{collab: c, teacherID: teacherID}
}

// previewRequest is one started load.
type previewRequest struct {
	ctx    context.Context
	cancel context.CancelFunc
	seq    uint64
	period generic.PeriodKey
}

// Load requests the preview for period, superseding any request in flight.
func (l *PreviewLoader) Load(ctx context.Context, period generic.PeriodKey) (*salary.PreviewDisplay, error) {
	return l.fetch(l.start(ctx, period))
}

// start supersedes the request in flight and registers a new one.
func (l *PreviewLoader) start(ctx context.Context, period generic.PeriodKey) previewRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalidate()
	l.period = period
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	return previewRequest{ctx: ctx, cancel: cancel, seq: l.seq, period: period}
}

// fetch calls the collaborator and accepts the response only if req is
// still the latest request.
func (l *PreviewLoader) fetch(req previewRequest) (*salary.PreviewDisplay, error) {
	p, err := l.collab.Preview(req.ctx, l.teacherID, req.period)

	l.mu.Lock()
	defer l.mu.Unlock()
	defer req.cancel()
	if req.seq != l.seq {
		return nil, ErrStalePreview
	}
	l.cancel = nil

	if err != nil {
		return nil, err
	}
	if !p.Period.Equal(req.period) {
		return nil, ErrStalePreview
	}
	l.current = p
	d := salary.Display(*p)
	return &d, nil
}

// Clear drops the displayed preview and any request in flight.
func (l *PreviewLoader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalidate()
}

// Current returns the displayed preview, if any.
func (l *PreviewLoader) Current() (*salary.Preview, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current, l.current != nil
}

// invalidate must be called with mu held.
func (l *PreviewLoader) invalidate() {
	l.seq++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.current = nil
}
