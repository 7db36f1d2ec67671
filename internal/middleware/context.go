package middleware

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const identityKey = "identity"

var errNoIdentity = errors.New("no authenticated identity in context")

// GetIdentity returns the caller admitted by the gate, or nil for anonymous
// requests.
func GetIdentity(c *fiber.Ctx) *services.Identity {
	if id, ok := c.Locals(identityKey).(*services.Identity); ok {
		return id
	}
	return nil
}

func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	id := GetIdentity(c)
	if id == nil {
		return uuid.Nil, errNoIdentity
	}
	return id.UserID, nil
}

func setIdentity(c *fiber.Ctx, id *services.Identity) {
	c.Locals(identityKey, id)
}
