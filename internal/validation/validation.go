// Package validation holds the shared validator used by service request
// types. Failures come back as feeerrors.ErrValidation.
package validation

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
	schooldomain "github.com/smallbiznis/feeledger/internal/school/domain"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// decimals compare as numbers, so gt=0 works on amounts
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("academic_year", func(fl validator.FieldLevel) bool {
			return schooldomain.ValidateAcademicYear(fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("grade", func(fl validator.FieldLevel) bool {
			_, err := schooldomain.ParseGrade(fl.Field().String())
			return err == nil
		})
		instance = v
	})
	return instance
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	if err := get().Struct(v); err != nil {
		return feeerrors.Validation(err)
	}
	return nil
}
