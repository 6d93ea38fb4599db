package deployments

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("cron6", func(fl validator.FieldLevel) bool {
			return len(strings.Fields(fl.Field().String())) == 6
		})
		validate = v
	})
	return validate
}

// Validate checks a create request locally.
func (r *CreateRequest) Validate() error {
	if err := getValidator().Struct(r); err != nil {
		return toValidationError(err)
	}
	if r.Strategy != StrategyScheduled && r.Schedule != "" {
		return sdkerrors.NewValidationError("schedule", "can only be set when strategy is SCHEDULED", r.Schedule)
	}
	return nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return sdkerrors.NewValidationError("", err.Error(), nil)
	}
	fe := fieldErrs[0]
	return sdkerrors.NewValidationError(fe.Field(), describe(fe), fe.Value())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return fmt.Sprintf("is required when %s", strings.Replace(fe.Param(), " ", " is ", 1))
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "cron6":
		return "must be a 6-field cron expression"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// validateID rejects ids that would change the request path.
func validateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return sdkerrors.NewValidationError(field, "is required", id)
	}
	if strings.ContainsAny(id, "/?#% \t\n") {
		return sdkerrors.NewValidationError(field, "contains characters not allowed in an id", id)
	}
	return nil
}

func validateReplicas(n int) error {
	if n < 0 {
		return sdkerrors.NewValidationError("replicas", "must be at least 0", n)
	}
	return nil
}

func validateTimeout(seconds int) error {
	if seconds <= 0 {
		return sdkerrors.NewValidationError("timeout", "must be greater than 0", seconds)
	}
	return nil
}
