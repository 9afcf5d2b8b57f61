package mock

import "github.com/buzkaaclicker/persona"

type TokenVerifier struct {
	VerifyFn func(accessToken string) (persona.User, error)
}

func (v TokenVerifier) Verify(accessToken string) (persona.User, error) {
	return v.VerifyFn(accessToken)
}
