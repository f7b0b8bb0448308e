package client

import "net/http"

type AuthEngine interface {
	SetApiKey(request *http.Request)
}

// AccessTokenAuth authenticates admin API calls with a private app access token.
type AccessTokenAuth struct {
	token string
}

func NewAccessTokenAuth(token string) *AccessTokenAuth {
	if token == "" {
		return nil
	}
	return &AccessTokenAuth{token: token}
}

func (a *AccessTokenAuth) SetApiKey(request *http.Request) {
	if a == nil {
		return
	}
	request.Header.Set("X-Shopify-Access-Token", a.token)
}
