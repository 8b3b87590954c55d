package quiz

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims every text field.
func (in QuizInput) Normalize() QuizInput {
	out := in
	out.Title = strings.TrimSpace(in.Title)
	out.Description = strings.TrimSpace(in.Description)
	out.Questions = make([]QuestionInput, len(in.Questions))
	for i, q := range in.Questions {
		out.Questions[i] = QuestionInput{
			Text:          strings.TrimSpace(q.Text),
			OptionA:       strings.TrimSpace(q.OptionA),
			OptionB:       strings.TrimSpace(q.OptionB),
			OptionC:       strings.TrimSpace(q.OptionC),
			OptionD:       strings.TrimSpace(q.OptionD),
			CorrectAnswer: strings.ToUpper(strings.TrimSpace(q.CorrectAnswer)),
		}
	}
	return out
}

// Validate reports every shape problem as an *apperr.ValidationError.
func (in QuizInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Invalid("quiz", err.Error())
	}
	ve := &apperr.ValidationError{}
	for _, fe := range fieldErrs {
		ve.Add(fieldPath(fe.Namespace()), message(fe))
	}
	return ve
}

// fieldPath drops the struct name: "QuizInput.questions[1].option_B" -> "questions[1].option_B".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
