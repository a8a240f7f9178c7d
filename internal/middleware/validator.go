package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	reportIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	ownerIDPattern  = regexp.MustCompile(`^[A-Za-z0-9_.@-]{1,128}$`)
)

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("reportid", matches(reportIDPattern))
	v.RegisterValidation("ownerid", matches(ownerIDPattern))
	return v
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// ValidateStruct checks the `validate` tags on a request body.
// Failures are validator.ValidationErrors.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// ValidationMessage renders the first failed rule for the client.
func ValidationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "invalid request"
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " cannot be empty"
	case "max":
		return fmt.Sprintf("%s is longer than %s characters", fe.Field(), fe.Param())
	default:
		return "invalid " + fe.Field()
	}
}

// SanitizeString removes null bytes and control characters, keeping tabs and newlines.
func SanitizeString(input string) string {
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

func ValidateOwnerID(id string) error {
	if err := validate.Var(id, "required,ownerid"); err != nil {
		return fmt.Errorf("invalid owner ID format")
	}
	return nil
}

// ValidateReportID accepts store-assigned ids: UUIDs or plain integers.
func ValidateReportID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if err := validate.Var(id, "reportid"); err != nil {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
