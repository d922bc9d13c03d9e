package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/exambank/internal/model"
)

// ErrInvalidQuestion is wrapped by every validation failure.
var ErrInvalidQuestion = errors.New("invalid question")

// ValidationError describes the first rule a question broke.
type ValidationError struct {
	Field string
	Rule  string
	Param string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", e.Field, e.Param)
	case "max":
		return fmt.Sprintf("%s allows at most %s entries", e.Field, e.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field, e.Param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", e.Field, e.Param)
	case "option_count":
		return fmt.Sprintf("%s must have exactly %s options", e.Field, e.Param)
	case "in_range":
		return fmt.Sprintf("%s must index an existing option (0..%s)", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s failed %s", e.Field, e.Rule)
	}
}

func (e *ValidationError) Unwrap() error { return ErrInvalidQuestion }

// BatchError rejects a whole batch because of the record at Index.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("question %d: %v", e.Index+1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(questionRules, model.Question{})
	return v
}

// questionRules checks the constraints that span fields.
func questionRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(model.Question)

	switch q.Type {
	case model.TypeMultipleChoice:
		if len(q.Options) != 4 {
			sl.ReportError(q.Options, "options", "Options", "option_count", "4")
			return
		}
	case model.TypeTrueFalse:
		if len(q.Options) != 2 {
			sl.ReportError(q.Options, "options", "Options", "option_count", "2")
			return
		}
	}
	if len(q.Options) > 0 && q.CorrectAnswerIndex >= len(q.Options) {
		sl.ReportError(q.CorrectAnswerIndex, "correct_answer_index", "CorrectAnswerIndex",
			"in_range", fmt.Sprint(len(q.Options)-1))
	}
}

// Validate checks a question against the catalog invariants. Whitespace-only
// stems, topics and options count as missing.
func Validate(q model.Question) error {
	q.Stem = strings.TrimSpace(q.Stem)
	q.Topic = strings.TrimSpace(q.Topic)
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = strings.TrimSpace(o)
	}
	q.Options = opts

	err := validate.Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
}

// ValidateBatch validates every question and rejects the batch on the first
// failure. Nothing is dropped or coerced.
func ValidateBatch(qs []model.Question) error {
	for i, q := range qs {
		if err := Validate(q); err != nil {
			return &BatchError{Index: i, Err: err}
		}
	}
	return nil
}
