package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// knownValue is implemented by enumerations such as session types.
type knownValue interface {
	Valid() bool
}

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name so clients see student_id, not StudentID.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})

	// "known" accepts only values whose Valid method reports true.
	_ = validate.RegisterValidation("known", func(fl validator.FieldLevel) bool {
		if v, ok := fl.Field().Interface().(knownValue); ok {
			return v.Valid()
		}
		return false
	})
}

// GetValidator returns the validator instance
func GetValidator() *validator.Validate {
	return validate
}

// ValidateStruct validates a request body
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidationError is one failed rule of a request body
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FormatValidationError flattens validator errors for the API envelope.
func FormatValidationError(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   fieldError.Field(),
				Tag:     fieldError.Tag(),
				Message: getErrorMessage(fieldError),
			})
		}
	}

	return errors
}

func getErrorMessage(fieldError validator.FieldError) string {
	field := fieldError.Field()
	isList := fieldError.Kind() == reflect.Slice

	switch fieldError.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if isList {
			return fmt.Sprintf("%s must contain at least %s items", field, fieldError.Param())
		}
		if fieldError.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fieldError.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fieldError.Param())
	case "max":
		if isList {
			return fmt.Sprintf("%s must contain at most %s items", field, fieldError.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters long", field, fieldError.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "known":
		return fmt.Sprintf("%s has an unknown value %v", field, fieldError.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldError.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
