package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	val "github.com/go-playground/validator/v10"
)

// ghanaPhone accepts +233 or 0 followed by a mobile network prefix and seven digits.
var ghanaPhone = regexp.MustCompile(`^(?:\+233|0)(?:20|50|24|54|27|57|26|56|23|28)\d{7}$`)

var validate = newValidator()

var messages = map[string]string{
	"required": "{field} is required",
	"email":    "{field} must be a valid email address",
	"min":      "{field} must be at least {param} characters long",
	"max":      "{field} must be at most {param} characters long",
	"gte":      "{field} must be greater than or equal to {param}",
	"lte":      "{field} must be less than or equal to {param}",
	"gt":       "{field} must be greater than {param}",
	"oneof":    "{field} must be one of {param}",
	"datetime": "{field} must be a date in YYYY-MM-DD format",
	"ghphone":  "{field} must be a valid Ghana phone number",
}

func newValidator() *val.Validate {
	v := val.New(val.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.RegisterValidation("ghphone", func(fl val.FieldLevel) bool {
		return ghanaPhone.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(err)
	}
	return v
}

// validateStruct runs the struct tags and converts failures into a ValidationError
// whose message is the first failing field.
func validateStruct(data interface{}) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var valErrors val.ValidationErrors
	if !errors.As(err, &valErrors) {
		return err
	}

	verr := &ValidationError{Fields: make(map[string]string, len(valErrors))}
	for _, fe := range valErrors {
		msg := message(fe)
		verr.Fields[fe.Field()] = msg
		if verr.Message == "" {
			verr.Message = msg
		}
	}
	return verr
}

func message(fe val.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fe.Error()
	}
	msg := strings.ReplaceAll(tmpl, "{field}", fe.Field())
	return strings.ReplaceAll(msg, "{param}", fe.Param())
}

func normalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
}
