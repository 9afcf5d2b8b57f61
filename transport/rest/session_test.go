package rest

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/buzkaaclicker/persona"
	"github.com/buzkaaclicker/persona/mock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestRequestAuthorizer(t *testing.T) {
	assert := assert.New(t)

	verifier := mock.TokenVerifier{
		VerifyFn: func(accessToken string) (persona.User, error) {
			if accessToken != "valid" {
				return persona.User{}, errors.New("invalid access token")
			}
			return persona.User{Id: "U1", Email: "a@b.com"}, nil
		},
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	controller := SessionController{}
	controller.InstallTo(RequestAuthorizer(verifier), app)

	cases := []struct {
		authorization string
		returnCode    int
		returnBody    string
	}{
		{authorization: "", returnCode: fiber.StatusUnauthorized,
			returnBody: JsonErrorMessageResponse("Unauthorized")},
		{authorization: "Basic dXNlcjpwYXNz", returnCode: fiber.StatusBadRequest,
			returnBody: JsonErrorMessageResponse("invalid auth type")},
		{authorization: "Bearer forged", returnCode: fiber.StatusUnauthorized,
			returnBody: JsonErrorMessageResponse("Unauthorized")},
		{authorization: "Bearer valid", returnCode: fiber.StatusOK,
			returnBody: `{"email":"a@b.com","userId":"U1"}`},
	}
	for _, useCase := range cases {
		req := httptest.NewRequest("GET", "/session", nil)
		if useCase.authorization != "" {
			req.Header.Set("Authorization", useCase.authorization)
		}
		resp, err := app.Test(req)
		if !assert.NoError(err, useCase.authorization) {
			continue
		}
		body, err := io.ReadAll(resp.Body)
		assert.NoError(err)
		assert.Equal(useCase.returnCode, resp.StatusCode, useCase.authorization)
		assert.Equal(useCase.returnBody, string(body), useCase.authorization)
	}
}
