package transport

import (
	"classifieds_backend/internal/categories"
	"classifieds_backend/platform/validator"

	govalidator "github.com/go-playground/validator/v10"
)

// RegisterValidations adds the ad-specific tags used by the request types.
func RegisterValidations(val *validator.Validator) error {
	return val.RegisterValidation("adcategory", func(fl govalidator.FieldLevel) bool {
		return categories.IsKnown(fl.Field().String())
	})
}
