package action

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/nestmate/internal/household"
	"github.com/dukerupert/nestmate/internal/model"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("member_type", validateMemberType)
	_ = v.RegisterValidation("repeat", validateRepeat)
	_ = v.RegisterValidation("event_type", validateEventType)
	_ = v.RegisterValidation("goal_type", validateGoalType)
	_ = v.RegisterValidation("category", validateCategory)
	_ = v.RegisterValidation("calendar_date", validateDate)
	v.RegisterStructValidation(validateEventRange, EventInput{})
	v.RegisterStructValidation(validateGoalTarget, GoalInput{})
	return v
}

func validateMemberType(fl validator.FieldLevel) bool {
	switch model.MemberType(fl.Field().String()) {
	case model.MemberHuman, model.MemberPet, model.MemberPlant, model.MemberAI:
		return true
	}
	return false
}

func validateRepeat(fl validator.FieldLevel) bool {
	switch model.Repeat(fl.Field().String()) {
	case model.RepeatNone, model.RepeatDaily, model.RepeatWeekly, model.RepeatMonthly:
		return true
	}
	return false
}

func validateEventType(fl validator.FieldLevel) bool {
	switch model.EventType(fl.Field().String()) {
	case model.EventPlain, model.EventVote:
		return true
	}
	return false
}

func validateGoalType(fl validator.FieldLevel) bool {
	switch model.GoalType(fl.Field().String()) {
	case model.GoalVision, model.GoalYear, model.GoalMonth, model.GoalWeek:
		return true
	}
	return false
}

func validateCategory(fl validator.FieldLevel) bool {
	c := model.Category(fl.Field().String())
	for _, known := range model.Categories {
		if c == known {
			return true
		}
	}
	return false
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := household.ParseDate(fl.Field().String())
	return err == nil
}

func validateEventRange(sl validator.StructLevel) {
	in := sl.Current().Interface().(EventInput)
	if in.EndDate != "" && in.EndDate < in.Date {
		sl.ReportError(in.EndDate, "EndDate", "end_date", "gtefield", "Date")
	}
}

func validateGoalTarget(sl validator.StructLevel) {
	in := sl.Current().Interface().(GoalInput)
	if in.Type == model.GoalVision && in.Target != 0 {
		sl.ReportError(in.Target, "Target", "target", "vision_no_target", "")
	}
	if in.Type != model.GoalVision && in.Target <= 0 {
		sl.ReportError(in.Target, "Target", "target", "gt", "0")
	}
}

// check validates in and wraps any failure in ErrInvalidInput. The
// validator.ValidationErrors stay reachable through errors.As.
func (a *Actions) check(in any) error {
	err := a.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, describe(fe))
	}
	return &InputError{Fields: fields, err: verrs}
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min", "gte", "gt":
		return fmt.Sprintf("%s is too small", field)
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, strings.ToLower(fe.Param()))
	case "email":
		return field + " must be an email address"
	case "url":
		return field + " must be a URL"
	case "vision_no_target":
		return "vision goals have no target"
	}
	return fmt.Sprintf("%s is invalid", field)
}

// InputError lists the fields that failed validation.
type InputError struct {
	Fields []string
	err    error
}

func (e *InputError) Error() string {
	return "invalid input: " + strings.Join(e.Fields, "; ")
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func (e *InputError) Unwrap() error { return e.err }
