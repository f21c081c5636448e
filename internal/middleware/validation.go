package middleware

import (
	"eventfest-backend/internal/apperrors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ParseAndValidate decodes the request body into dest and runs struct
// validation. Failures surface as VALIDATION_FAILED errors naming the first
// offending field; the app error handler renders them.
func ParseAndValidate(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return apperrors.ValidationFailed("invalid request body")
	}

	if err := validate.Struct(dest); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		firstError := validationErrors[0]

		var errorMessage string
		switch firstError.Tag() {
		case "required":
			errorMessage = firstError.Field() + " is required"
		case "email":
			errorMessage = "invalid email format"
		case "min":
			errorMessage = firstError.Field() + " is too short"
		case "max":
			errorMessage = firstError.Field() + " is too long"
		case "uuid":
			errorMessage = "invalid UUID format"
		case "gte":
			errorMessage = firstError.Field() + " must be at least " + firstError.Param()
		case "gt":
			errorMessage = firstError.Field() + " must be greater than " + firstError.Param()
		case "oneof":
			errorMessage = firstError.Field() + " must be one of: " + firstError.Param()
		default:
			errorMessage = "validation failed for " + firstError.Field()
		}

		return apperrors.ValidationFailed(errorMessage)
	}

	return nil
}

// ValidateBody is the route-middleware form of ParseAndValidate; the parsed
// body is stashed in locals for the handler.
func ValidateBody(dest interface{}) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := ParseAndValidate(c, dest); err != nil {
			return err
		}
		c.Locals("validatedBody", dest)
		return c.Next()
	}
}
