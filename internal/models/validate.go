package models

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"paragoniusz-backend/internal/receipt"
)

// RegisterValidators installs the custom binding validators used by the
// request models. Call once during startup.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("decimal_amount", validDecimalAmount)
	}
}

// validDecimalAmount accepts a positive decimal string with at most two
// fractional digits, capped at 999999.99.
func validDecimalAmount(fl validator.FieldLevel) bool {
	amount, err := receipt.ParseAmount(fl.Field().String())
	if err != nil {
		return false
	}
	return receipt.ValidateAmount(amount) == nil
}
