// Package web renders the auth and profile screens as HTML. Every browser
// gets its own UI client, identified by a cookie.
package web

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/buzkaaclicker/persona/auth"
	"github.com/buzkaaclicker/persona/screen"
	"github.com/buzkaaclicker/persona/transport/rest"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/template/django/v3"
)

const (
	clientCookie = "persona_client"

	storageMaxAge = 3600
)

//go:embed views
var viewsFS embed.FS

func NewEngine() *django.Engine {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	return django.NewFileSystem(http.FS(views), ".django")
}

// ErrorHandler renders errors as an HTML page. Internal errors are logged and
// replaced by a generic message.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := fiber.ErrInternalServerError.Message
	if fe, ok := err.(*fiber.Error); ok {
		code, message = fe.Code, fe.Message
	} else {
		rest.RequestLog(ctx).WithError(err).Errorln("Internal server error.")
	}
	return ctx.Status(code).Render("error", fiber.Map{
		"status":  code,
		"message": message,
	})
}

// ServeStorage serves uploaded files from dir under prefix. Files are never
// sniffed or rendered as documents of this origin.
func ServeStorage(app *fiber.App, prefix string, dir string) {
	app.Use(prefix, func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		ctx.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		ctx.Set(fiber.HeaderContentSecurityPolicy, "default-src 'none'; sandbox")
		ctx.Set(fiber.HeaderContentDisposition, "inline")
		return err
	})
	app.Static(prefix, dir, fiber.Static{
		Browse: false,
		MaxAge: storageMaxAge,
	})
}

type Controller struct {
	Clients *Clients
	// SecureCookie marks the client cookie https only.
	SecureCookie bool
}

func (c *Controller) InstallTo(app *fiber.App) {
	app.Get("/", c.serveIndex)
	app.Post("/auth/sign-in", c.serveSignIn)
	app.Post("/auth/sign-up", c.serveSignUp)
	app.Get("/auth/confirm", c.serveConfirm)
	app.Post("/auth/sign-out", c.serveSignOut)
	app.Post("/auth/refresh", c.serveRefresh)
	app.Post("/profile", c.serveUpdateProfile)
	app.Post("/profile/avatar", c.serveUploadAvatar)
}

// client returns the UI client bound to the request cookie, creating a new
// one when the cookie is missing or the client was evicted.
func (c *Controller) client(ctx *fiber.Ctx) *Client {
	if client, ok := c.Clients.Get(ctx.Cookies(clientCookie)); ok {
		return client
	}
	client := c.Clients.Create(ctx.Context())
	ctx.Cookie(&fiber.Cookie{
		Name:     clientCookie,
		Value:    client.Id,
		Path:     "/",
		HTTPOnly: true,
		Secure:   c.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(c.Clients.IdleTTL),
	})
	return client
}

func (c *Controller) serveIndex(ctx *fiber.Ctx) error {
	client := c.client(ctx)
	// refreshes an expired session before picking the screen
	if _, err := client.Provider.GetCurrentSession(ctx.Context()); err != nil {
		rest.RequestLog(ctx).WithError(err).Warnln("Could not get current session.")
	}

	switch client.Controller.Screen() {
	case screen.ScreenProfile:
		profile := client.Controller.Profile
		profile.EnsureLoaded(ctx.Context())
		state := profile.State()
		avatarUrl := ""
		if state.AvatarUrl != nil {
			avatarUrl = *state.AvatarUrl
		}
		return ctx.Render("profile", fiber.Map{
			"user_id":    string(state.UserId),
			"email":      state.Email,
			"username":   state.Username,
			"avatar_url": avatarUrl,
			"message":    state.Message,
			"loaded":     state.Loaded,
			"loading":    state.Loading,
			"uploading":  state.Uploading,
		})
	case screen.ScreenAuth:
		state := client.Controller.Auth.State()
		return ctx.Render("auth", fiber.Map{
			"email":   state.Email,
			"message": state.Message,
			"loading": state.Loading,
		})
	default:
		return ctx.Render("loading", fiber.Map{})
	}
}

func (c *Controller) serveSignIn(ctx *fiber.Ctx) error {
	client := c.client(ctx)
	err := client.Controller.Auth.SignIn(ctx.Context(), formValue(ctx, "email"), formValue(ctx, "password"))
	return redirectHome(ctx, err)
}

func (c *Controller) serveSignUp(ctx *fiber.Ctx) error {
	client := c.client(ctx)
	err := client.Controller.Auth.SignUp(ctx.Context(), formValue(ctx, "email"), formValue(ctx, "password"))
	return redirectHome(ctx, err)
}

func (c *Controller) serveConfirm(ctx *fiber.Ctx) error {
	token := utils.CopyString(ctx.Query("token"))
	if token == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing token")
	}
	client := c.client(ctx)
	err := client.Provider.Confirm(ctx.Context(), token)
	if errors.Is(err, auth.ErrInvalidGrant) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	return redirectHome(ctx, nil)
}

func (c *Controller) serveSignOut(ctx *fiber.Ctx) error {
	client := c.client(ctx)
	err := client.Controller.Profile.SignOut(ctx.Context())
	return redirectHome(ctx, err)
}

func (c *Controller) serveRefresh(ctx *fiber.Ctx) error {
	client := c.client(ctx)
	err := client.Provider.Refresh(ctx.Context())
	switch {
	case errors.Is(err, auth.ErrNotSignedIn), errors.Is(err, auth.ErrInvalidGrant):
		// the client is signed out now, the index shows the auth screen
		err = nil
	case err != nil:
		err = fmt.Errorf("refresh session: %w", err)
	}
	return redirectHome(ctx, err)
}

func (c *Controller) serveUpdateProfile(ctx *fiber.Ctx) error {
	client := c.client(ctx)
	profile := client.Controller.Profile
	if client.Controller.Screen() == screen.ScreenProfile {
		profile.SetUsername(formValue(ctx, "username"))
	}
	err := profile.UpdateProfile(ctx.Context())
	return redirectHome(ctx, err)
}

func (c *Controller) serveUploadAvatar(ctx *fiber.Ctx) error {
	client := c.client(ctx)

	// a missing or empty file part leaves file nil
	var file *persona.AvatarFile
	header, err := ctx.FormFile("avatar")
	if err == nil && header.Size > 0 {
		content, err := header.Open()
		if err != nil {
			return fmt.Errorf("open uploaded file: %w", err)
		}
		defer content.Close()
		file = &persona.AvatarFile{
			Name:        header.Filename,
			ContentType: header.Header.Get(fiber.HeaderContentType),
			Size:        header.Size,
			Content:     content,
		}
	}

	err = client.Controller.Profile.UploadAvatar(ctx.Context(), file)
	return redirectHome(ctx, err)
}

// formValue copies the value out of the request buffer, which fasthttp reuses
// once the handler returns. Screens keep these strings across requests.
func formValue(ctx *fiber.Ctx, key string) string {
	return utils.CopyString(ctx.FormValue(key))
}

// redirectHome finishes a form action. Screen errors already live in the
// screen message; only a busy screen is reported to the browser.
func redirectHome(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, screen.ErrBusy):
		return fiber.NewError(fiber.StatusConflict, "Another request is still in progress.")
	case errors.Is(err, screen.ErrNoSession):
	case err != nil:
		return err
	}
	return ctx.Redirect("/", fiber.StatusSeeOther)
}
