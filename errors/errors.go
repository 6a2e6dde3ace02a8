package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategorySource  Category = "source"
	CategoryResize  Category = "resize"
	CategoryEncode  Category = "encode"
	CategoryDecode  Category = "decode"
	CategoryBudget  Category = "budget"
	CategoryResult  Category = "result"
	CategoryReport  Category = "report"
	CategoryStorage Category = "storage"
	CategoryConfig  Category = "config"
	CategoryInput   Category = "input"
)

// Reason is the caller-visible failure variant of a compression request.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonSourceUnavailable Reason = "source_unavailable"
	ReasonBudgetUnreachable Reason = "budget_unreachable"
	ReasonResultCorrupted   Reason = "result_corrupted"
)

// Sentinel errors for the three terminal failure modes plus common inputs.
var (
	ErrSourceUnavailable = errors.New("source image unavailable")
	ErrBudgetUnreachable = errors.New("byte budget unreachable")
	ErrResultCorrupted   = errors.New("compressed result is corrupted")

	ErrUnsupportedFormat  = errors.New("unsupported image format")
	ErrInvalidDimensions  = errors.New("invalid dimensions")
	ErrEmptyInput         = errors.New("empty input")
	ErrUnknownBackend     = errors.New("unknown resizer backend")
	ErrInvalidBudget      = errors.New("budget must be positive")
	ErrWorkerPoolFull     = errors.New("worker pool queue full")
	ErrProcessorStopped   = errors.New("processor stopped")
	ErrAttachmentTooLarge = errors.New("attachment exceeds size ceiling")
)

// ProcessingError is the structured error type used throughout the module.
type ProcessingError struct {
	Category Category
	Op       string // operation name
	Err      error
	Reason   Reason
}

func (e *ProcessingError) Error() string {
	if e.Reason != ReasonNone {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Category, e.Reason, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a ProcessingError without a caller-visible reason.
func New(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// SourceUnavailable reports that no usable raster could be obtained.
func SourceUnavailable(op string, err error) *ProcessingError {
	if err == nil {
		err = ErrSourceUnavailable
	} else if !errors.Is(err, ErrSourceUnavailable) {
		err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return &ProcessingError{Category: CategorySource, Op: op, Err: err, Reason: ReasonSourceUnavailable}
}

// BudgetUnreachable reports an exhausted dimension x quality search.
func BudgetUnreachable(op string, budget int64) *ProcessingError {
	return &ProcessingError{
		Category: CategoryBudget,
		Op:       op,
		Err:      fmt.Errorf("%w: %d bytes", ErrBudgetUnreachable, budget),
		Reason:   ReasonBudgetUnreachable,
	}
}

// ResultCorrupted reports an encode that decoded to a degenerate raster.
func ResultCorrupted(op string, err error) *ProcessingError {
	if err == nil {
		err = ErrResultCorrupted
	} else if !errors.Is(err, ErrResultCorrupted) {
		err = fmt.Errorf("%w: %w", ErrResultCorrupted, err)
	}
	return &ProcessingError{Category: CategoryResult, Op: op, Err: err, Reason: ReasonResultCorrupted}
}

// ReasonOf extracts the failure reason from err, or ReasonNone.
func ReasonOf(err error) Reason {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ReasonNone
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	return false
}
