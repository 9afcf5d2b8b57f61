package rest

import (
	"fmt"
	"net/url"

	"github.com/buzkaaclicker/persona"
	"github.com/gofiber/fiber/v2"
)

type ProfileController struct {
	Store persona.ProfileStore
}

func (c *ProfileController) InstallTo(app *fiber.App) {
	app.Get("/profile/:user_id", c.serveProfile)
}

func (c *ProfileController) serveProfile(ctx *fiber.Ctx) error {
	userId, err := url.PathUnescape(ctx.Params("user_id"))
	if err != nil || userId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	profile, err := c.Store.Get(ctx.Context(), persona.UserId(userId))
	if err != nil {
		if persona.KindOf(err) == persona.KindNotFound {
			return fiber.NewError(fiber.StatusNotFound, "profile not found")
		} else {
			return fmt.Errorf("get profile by user id: %w", err)
		}
	}

	type ProfileResponse struct {
		Username  string  `json:"username"`
		AvatarUrl *string `json:"avatarUrl"`
	}
	return ctx.JSON(ProfileResponse{
		Username:  profile.Username,
		AvatarUrl: profile.AvatarUrl,
	})
}
