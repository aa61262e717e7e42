package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/catalogs/article"
	"stockflow/internal/domain/catalogs/client"
	"stockflow/internal/domain/documents/invoice"
	"stockflow/internal/domain/documents/stock_movement"
)

// SetupValidator configures gin's validator: field names come from json/form
// tags and the domain enum tags are registered.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return RegisterValidations(v)
}

// RegisterValidations adds the domain tags to v:
// location, movementtype, clienttype, invoicestatus.
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	tags := map[string]func(string) bool{
		"location":      func(s string) bool { return article.Location(s).Valid() },
		"movementtype":  func(s string) bool { return stock_movement.Type(s).Valid() },
		"clienttype":    func(s string) bool { return client.Type(s).Valid() },
		"invoicestatus": func(s string) bool { return invoice.Status(s).Valid() },
	}
	for tag, valid := range tags {
		valid := valid
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		}); err != nil {
			return err
		}
	}
	return nil
}

// BindingError converts a gin binding error into a VALIDATION_ERROR.
// The first failing field is reported in details.field.
func BindingError(err error, message string) *apperror.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		appErr := apperror.NewFieldValidation(fieldPath(first), validationMessage(first)).
			WithDetail("rule", first.Tag())
		if first.Param() != "" {
			appErr = appErr.WithDetail("param", first.Param())
		}
		return appErr
	}
	return apperror.NewValidation(message).WithDetail("error", err.Error())
}

// fieldPath drops the root struct name from the namespace ("Req.lines[0].quantity").
// Embedded structs have no name of their own and leave empty segments.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	i := strings.IndexByte(ns, '.')
	if i < 0 {
		return fe.Field()
	}
	parts := strings.Split(ns[i+1:], ".")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		if fe.Kind() == reflect.Slice {
			return "must have at least " + fe.Param() + " elements"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "uuid":
		return "invalid UUID format"
	case "location":
		return "location must be STORE or DEPOT"
	case "movementtype":
		return "movement type must be IN or OUT"
	case "clienttype":
		return "client type must be INDIVIDUAL or ORGANIZATION"
	case "invoicestatus":
		return "status must be UNPAID or PAID"
	default:
		return "invalid value"
	}
}
