package middleware

import (
	"fmt"
	"strings"

	"eventfest-backend/internal/config"
	"eventfest-backend/internal/models"
	"eventfest-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// JWTMiddleware verifies bearer tokens issued by the external auth service
// and copies the identity claims into request locals. Token issuance and
// credential handling are not this service's concern.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(cfg.JWTSecret),
		ContextKey:   "user",
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			user := c.Locals("user").(*jwt.Token)
			claims := user.Claims.(jwt.MapClaims)
			c.Locals("user_id", claims["user_id"])
			c.Locals("user_role", claims["role"])
			c.Locals("user_email", claims["email"])
			c.Locals("participant_type", claims["participant_type"])
			return c.Next()
		},
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	return utils.Error(c, "Unauthorized", fiber.StatusUnauthorized)
}

// OptionalJWT populates the identity locals when a valid bearer token is
// present and lets the request through either way. Public routes whose
// response widens for authenticated callers (draft events for their owner)
// use this instead of JWTMiddleware.
func OptionalJWT(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(auth, "Bearer ") {
			return c.Next()
		}

		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			// An unusable token downgrades to anonymous rather than failing
			// a public route.
			return c.Next()
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			c.Locals("user_id", claims["user_id"])
			c.Locals("user_role", claims["role"])
			c.Locals("user_email", claims["email"])
			c.Locals("participant_type", claims["participant_type"])
		}
		return c.Next()
	}
}

// CurrentUser rebuilds the authenticated identity from the verified claims.
// This is the only place handlers obtain an actor from.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	idStr, ok := c.Locals("user_id").(string)
	if !ok || idStr == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user identity")
	}

	user := &models.User{ID: id}
	if role, ok := c.Locals("user_role").(string); ok {
		user.Role = models.Role(role)
	}
	if email, ok := c.Locals("user_email").(string); ok {
		user.Email = email
	}
	if pt, ok := c.Locals("participant_type").(string); ok && pt != "" {
		user.ParticipantType = models.ParticipantType(pt)
	} else {
		user.ParticipantType = models.ParticipantNonIIIT
	}
	return user, nil
}

func AdminOnly(c *fiber.Ctx) error {
	userRole, ok := c.Locals("user_role").(string)
	if !ok || userRole != string(models.RoleAdmin) {
		return utils.Error(c, "Admin access required", fiber.StatusForbidden)
	}
	return c.Next()
}

func OrganizerOrAdmin(c *fiber.Ctx) error {
	userRole, ok := c.Locals("user_role").(string)
	if !ok || (userRole != string(models.RoleAdmin) && userRole != string(models.RoleOrganizer)) {
		return utils.Error(c, "Organizer or admin access required", fiber.StatusForbidden)
	}
	return c.Next()
}

func ParticipantOnly(c *fiber.Ctx) error {
	userRole, ok := c.Locals("user_role").(string)
	if !ok || userRole != string(models.RoleParticipant) {
		return utils.Error(c, "Participant access required", fiber.StatusForbidden)
	}
	return c.Next()
}
