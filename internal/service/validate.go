package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern    = regexp.MustCompile(`^\+?[0-9][0-9 ()/-]{4,19}$`)
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// empty clears the number
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || phonePattern.MatchString(s)
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return v
}

// validateStruct runs the struct tags of in and converts failures into a
// field-scoped validation error.
func validateStruct(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Internal(err)
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := fieldPath(fe)
		fields[name] = append(fields[name], fieldMessage(fe))
	}
	return ValidationFailed("Invalid input.", fields)
}

// fieldPath drops the root struct name from the namespace, leaving e.g.
// "details[1].features".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "phone":
		return "Enter a valid phone number."
	case "username":
		return "Enter a valid username. It may contain only letters, numbers and @/./+/-/_ characters."
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	case "min":
		if isCollection(fe) {
			return "Must contain at least " + fe.Param() + " item(s)."
		}
		if isNumber(fe) {
			return "Must be at least " + fe.Param() + "."
		}
		return "Must be at least " + fe.Param() + " characters long."
	case "max":
		if isCollection(fe) {
			return "Must contain at most " + fe.Param() + " item(s)."
		}
		if isNumber(fe) {
			return "Must be at most " + fe.Param() + "."
		}
		return "Must be at most " + fe.Param() + " characters long."
	case "gt":
		return "Must be greater than " + fe.Param() + "."
	case "gte":
		return "Must be greater than or equal to " + fe.Param() + "."
	case "lte":
		return "Must be less than or equal to " + fe.Param() + "."
	}
	return "Invalid value."
}

func isCollection(fe validator.FieldError) bool {
	switch fe.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return true
	}
	return false
}

func isNumber(fe validator.FieldError) bool {
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// mergeFields folds extra field messages into err when err is a validation
// error, or builds one.
func mergeFields(err error, extra map[string][]string) error {
	if len(extra) == 0 {
		return err
	}
	if err == nil {
		return ValidationFailed("Invalid input.", extra)
	}
	var se *Error
	if errors.As(err, &se) && se.Kind == KindValidation {
		if se.Fields == nil {
			se.Fields = map[string][]string{}
		}
		for k, v := range extra {
			se.Fields[k] = append(se.Fields[k], v...)
		}
		return se
	}
	return err
}
