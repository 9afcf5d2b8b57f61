package rest

import (
	"strings"

	"github.com/buzkaaclicker/persona"
	"github.com/gofiber/fiber/v2"
)

const userLocalsKey = "user"

// TokenVerifier resolves the user behind an access token.
type TokenVerifier interface {
	Verify(accessToken string) (persona.User, error)
}

// RequestAuthorizer accepts "Authorization: Bearer <access token>" and stores
// the resolved persona.User in the request locals.
func RequestAuthorizer(verifier TokenVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		auth := ctx.Get(fiber.HeaderAuthorization)
		if auth == "" {
			return fiber.ErrUnauthorized
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			return fiber.NewError(fiber.ErrBadRequest.Code, "invalid auth type")
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		user, err := verifier.Verify(token)
		if err != nil {
			RequestLog(ctx).WithError(err).Debugln("Rejected access token.")
			return fiber.ErrUnauthorized
		}

		RequestLog(ctx).
			WithField("user_id", user.Id).
			Infoln("Authorized access.")

		ctx.Locals(userLocalsKey, user)
		return nil
	}
}

type SessionController struct{}

func (c *SessionController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Get("/session", combineHandlers(requestAuthorizer, c.serveCurrentSession))
}

func (c *SessionController) serveCurrentSession(ctx *fiber.Ctx) error {
	user, ok := ctx.Locals(userLocalsKey).(persona.User)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return ctx.JSON(map[string]string{
		"userId": string(user.Id),
		"email":  user.Email,
	})
}
