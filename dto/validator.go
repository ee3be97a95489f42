package dto

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var phoneFrRegex = regexp.MustCompile(`^0[1-9][0-9]{8}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("phone_fr", validatePhoneFr)
}

func GetValidator() *validator.Validate {
	return validate
}

// validatePhoneFr accepts exactly-10-digit French numbers (0X XX XX XX XX,
// digits only after sanitization).
func validatePhoneFr(fl validator.FieldLevel) bool {
	return phoneFrRegex.MatchString(fl.Field().String())
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors"`
}

func FormatValidationErrors(err error) []ValidationError {
	var errs []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			var message string

			switch fieldError.Tag() {
			case "required":
				message = "Le champ " + fieldError.Field() + " est obligatoire"
			case "email":
				message = "Format d'email invalide"
			case "phone_fr":
				message = "Le numéro de téléphone doit comporter 10 chiffres"
			case "max":
				message = "Le champ " + fieldError.Field() + " dépasse " + fieldError.Param() + " caractères"
			case "min":
				message = "Le champ " + fieldError.Field() + " doit comporter au moins " + fieldError.Param() + " caractères"
			default:
				message = "Le champ " + fieldError.Field() + " est invalide"
			}

			errs = append(errs, ValidationError{
				Field:   fieldError.Field(),
				Message: message,
			})
		}
	}

	return errs
}

func CreateValidationErrorResponse(err error) ValidationErrorResponse {
	return ValidationErrorResponse{
		Code:    400,
		Message: "Validation échouée",
		Errors:  FormatValidationErrors(err),
	}
}
