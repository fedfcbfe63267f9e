package salary

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"

	"github.com/warp/salary-engine/generic"
)

// Reason length limits.
const (
	MinReasonLength       = 10
	MaxReopenReasonLength = 500
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")

	validate = validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Check runs struct-tag validation and converts failures into a
// *generic.ValidationError keyed by JSON field name.
func Check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &generic.ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, generic.FieldError{
			Field:   fe.Field(),
			Message: fe.Translate(translator),
		})
	}
	return out
}

// =============================================================================
// APPROVAL
// =============================================================================

// ApprovalInput is what a reviewer submits when approving.
type ApprovalInput struct {
	Amount decimal.Decimal
	Reason string
}

type adjustmentForm struct {
	Reason string `json:"adjustment_reason" validate:"required,min=10"`
}

// ValidateApproval checks an approval against the calculated amount and
// returns the normalized input. The reason is dropped whenever the amounts
// are equal, even if one was typed in an earlier attempt.
func ValidateApproval(calculated decimal.Decimal, in ApprovalInput) (ApprovalInput, error) {
	if in.Amount.IsNegative() {
		return in, generic.NewValidationError("approved_amount", "approved_amount must be zero or positive")
	}

	if in.Amount.Equal(calculated) {
		return ApprovalInput{Amount: in.Amount}, nil
	}

	reason := strings.TrimSpace(in.Reason)
	if err := Check(adjustmentForm{Reason: reason}); err != nil {
		return in, err
	}
	return ApprovalInput{Amount: in.Amount, Reason: reason}, nil
}

// RequiresAdjustmentReason reports whether approving amount needs a justification.
func RequiresAdjustmentReason(calculated, amount decimal.Decimal) bool {
	return !amount.Equal(calculated)
}

// ParseAmount parses a typed amount. Empty, malformed and negative input are
// validation errors on approved_amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, generic.NewValidationError("approved_amount", "approved_amount is a required field")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, generic.NewValidationError("approved_amount", "approved_amount must be a number")
	}
	if d.IsNegative() {
		return decimal.Zero, generic.NewValidationError("approved_amount", "approved_amount must be zero or positive")
	}
	return d, nil
}

// =============================================================================
// REOPEN
// =============================================================================

type reopenForm struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

// ValidateReopen checks a reopen justification and returns it trimmed.
func ValidateReopen(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if err := Check(reopenForm{Reason: reason}); err != nil {
		return "", err
	}
	return reason, nil
}
