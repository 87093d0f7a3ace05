package manifest

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// FieldError is one validation failure of a definition.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateDefinition returns the field errors of def.
func validateDefinition(def *Definition) []FieldError {
	var out []FieldError
	for resource, methods := range def.Resources {
		if strings.TrimSpace(resource) == "" {
			out = append(out, FieldError{Field: "resources", Message: "resource name is required"})
		}
		for name := range methods {
			if strings.TrimSpace(name) == "" {
				out = append(out, FieldError{Field: "resources[" + resource + "]", Message: "method name is required"})
			}
		}
	}

	err := getValidator().Struct(def)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, e := range verrs {
		out = append(out, FieldError{Field: fieldPath(e.Namespace()), Message: message(e)})
	}
	return out
}

// fieldPath drops the leading struct name: "Definition.resources[User][byId].path"
// becomes "resources[User][byId].path".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}
