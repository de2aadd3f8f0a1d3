package exam

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// NewQuestion is a question as submitted by an administrator.
type NewQuestion struct {
	Question           string   `json:"question" validate:"required"`
	Code               string   `json:"code,omitempty"`
	Language           string   `json:"language,omitempty"`
	Image              string   `json:"image,omitempty"`
	Options            []string `json:"options" validate:"min=2,dive,required"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex" validate:"required"`
	Points             int      `json:"points" validate:"gte=0"` // 0 means default
}

// NewTest is a test definition as submitted by an administrator.
type NewTest struct {
	Title               string        `json:"title" validate:"required"`
	Description         string        `json:"description,omitempty"`
	Branch              string        `json:"branch,omitempty"`
	Questions           []NewQuestion `json:"questions" validate:"required,min=1,dive"`
	Duration            int           `json:"duration" validate:"gt=0"`
	ScheduledAt         *time.Time    `json:"scheduledAt,omitempty"`
	QuestionsPerStudent *int          `json:"questionsPerStudent,omitempty" validate:"omitempty,gt=0"`
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	enLocale := en.New()
	translator, _ = ut.New(enLocale, enLocale).GetTranslator("en")

	validate = validator.New(validator.WithRequiredStructEnabled())
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

// Validate checks a test definition and returns a *ValidationError listing
// every problem found, or nil.
func (nt NewTest) Validate() error {
	verr := &ValidationError{}

	if err := validate.Struct(nt); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate test: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.add(fieldPath(fe.Namespace()), fe.Translate(translator))
		}
	}

	// Answer key indices are checked even when other fields failed so the
	// caller sees every problem at once.
	for i, q := range nt.Questions {
		if q.CorrectAnswerIndex == nil || len(q.Options) == 0 {
			continue
		}
		if idx := *q.CorrectAnswerIndex; idx < 0 || idx >= len(q.Options) {
			verr.add(
				fmt.Sprintf("questions[%d].correctAnswerIndex", i),
				fmt.Sprintf("must be between 0 and %d", len(q.Options)-1),
			)
		}
	}

	return verr.orNil()
}

// fieldPath drops the leading struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
