package orchestrator

import (
	"errors"
	"fmt"

	"github.com/warp/salary-engine/generic"
)

// Placement says where feedback is shown.
type Placement string

const (
	PlacementNone   Placement = ""
	PlacementInline Placement = "inline" // next to the offending field
	PlacementBanner Placement = "banner"
)

// Feedback is the user-facing form of an error.
type Feedback struct {
	Kind      generic.Kind
	Placement Placement
	Message   string
	Code      string            // conflict code, if any
	Fields    map[string]string // field -> message, for inline feedback
	Retryable bool              // offer a retry action
	Resync    bool              // the list was refetched
}

// IsZero reports whether there is nothing to show.
func (f Feedback) IsZero() bool { return f.Placement == PlacementNone }

// Present maps an error onto feedback. It accepts any error, including nil.
func Present(err error) Feedback {
	if err == nil || errors.Is(err, ErrStalePreview) {
		return Feedback{}
	}
	if errors.Is(err, ErrRequestInFlight) || errors.Is(err, ErrBusy) {
		return Feedback{
			Kind:      generic.KindValidation,
			Placement: PlacementBanner,
			Message:   "Please wait for the current request to finish.",
		}
	}

	if errors.Is(err, ErrNotActionable) {
		return Feedback{
			Kind:      generic.KindValidation,
			Placement: PlacementBanner,
			Message:   err.Error(),
		}
	}

	kind := generic.KindOf(err)
	switch kind {
	case generic.KindValidation:
		fb := Feedback{Kind: kind, Placement: PlacementInline, Fields: map[string]string{}}
		var ve *generic.ValidationError
		if errors.As(err, &ve) {
			for _, f := range ve.Fields {
				if _, seen := fb.Fields[f.Field]; !seen {
					fb.Fields[f.Field] = f.Message
				}
			}
		}
		fb.Message = err.Error()
		if len(fb.Fields) == 0 {
			fb.Placement = PlacementBanner
		}
		return fb

	case generic.KindConflict:
		fb := Feedback{Kind: kind, Placement: PlacementBanner, Resync: true}
		var ce *generic.ConflictError
		if errors.As(err, &ce) {
			fb.Code = ce.Code
		}
		fb.Message = conflictMessage(fb.Code)
		return fb

	case generic.KindNotFound:
		return Feedback{
			Kind:      kind,
			Placement: PlacementBanner,
			Message:   fmt.Sprintf("Not found: %v", err),
		}

	case generic.KindNetwork:
		return Feedback{
			Kind:      kind,
			Placement: PlacementBanner,
			Message:   "Could not reach the server.",
			Retryable: true,
		}
	}

	return Feedback{
		Kind:      generic.KindInternal,
		Placement: PlacementBanner,
		Message:   fmt.Sprintf("Something went wrong: %v", err),
	}
}

func conflictMessage(code string) string {
	switch code {
	case generic.CodeDuplicatePeriod:
		return "A salary calculation already exists for this period. The list has been refreshed."
	case generic.CodeInvalidState:
		return "This calculation was changed in the meantime. The list has been refreshed."
	case generic.CodeNoRateConfig:
		return "No rate configuration is set up for this teacher."
	}
	return "The request was refused. The list has been refreshed."
}
