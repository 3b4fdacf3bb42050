// Package inputval checks tagged config structs with waffle/pantry/validate
// and turns rule failures into operator-readable messages.
//
//	type zoneInput struct {
//	    Timezone string `json:"timezone" validate:"required,timezone" label:"Time zone"`
//	}
//
//	if res := inputval.Validate(zoneInput{Timezone: tz}); res.HasErrors() {
//	    return errors.New(res.First())
//	}
package inputval

import (
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/waffle/pantry/validate"
)

// Result is the outcome of Validate.
type Result struct {
	Errors []FieldError
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string // json name, or the Go name when untagged
	Label   string
	Message string
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

var (
	validator     *validate.Validator
	validatorOnce sync.Once
)

func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		validator = validate.New(validate.WithStopOnFirstError())
		validator.RegisterRuleFunc("httpurl", func(value any) bool {
			s, ok := value.(string)
			return ok && IsValidHTTPURL(s)
		}, "httpurl")
	})
	return validator
}

// Validate runs the `validate` tags of s. Besides the pantry/validate
// built-ins (required, oneof, timezone, max) it understands httpurl.
// Messages use the field's `label` tag.
func Validate(s any) *Result {
	res := &Result{}
	err := getValidator().Struct(s)
	if err == nil {
		return res
	}

	errs, ok := err.(validate.Errors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}

	labels := fieldLabels(s)
	for _, e := range errs {
		label := labels[e.Field]
		if label == "" {
			label = e.Field
		}
		res.Errors = append(res.Errors, FieldError{
			Field:   e.Field,
			Label:   label,
			Message: formatMessage(label, e.Rule, e.Param),
		})
	}
	return res
}

// fieldLabels maps each field's wire name to its label tag.
func fieldLabels(s any) map[string]string {
	labels := map[string]string{}
	v := reflect.Indirect(reflect.ValueOf(s))
	if v.Kind() != reflect.Struct {
		return labels
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		label := f.Tag.Get("label")
		if label == "" {
			continue
		}
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag != "" && tag != "-" {
			name = tag
		}
		labels[name] = label
	}
	return labels
}

func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "oneof":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "timezone":
		return label + " must be an IANA time zone such as America/Chicago."
	case "max":
		return label + " must be at most " + param + " characters."
	case "httpurl":
		return label + " must be an http:// or https:// URL."
	}
	return label + " is invalid."
}

// IsValidHTTPURL reports whether s parses as an http or https URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}
