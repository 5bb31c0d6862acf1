package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/managedsolutions7/k2weighingfe-sub000/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a token and establishes the session.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, error) {
	var res loginResponse
	if err := c.call(ctx, "login", http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, &res); err != nil {
		return models.User{}, err
	}
	if res.Token == "" {
		return models.User{}, errors.New("login: no token in response")
	}
	if c.session == nil {
		return res.User, nil
	}
	if err := c.session.Establish(res.Token, res.User); err != nil {
		return models.User{}, err
	}
	c.log.Info("signed in", "user_email", res.User.Email, "role", c.session.Role())
	return c.session.User(), nil
}

// Logout forgets the local session. The token is stateless on the server side.
func (c *Client) Logout() error {
	if c.session == nil {
		return nil
	}
	return c.session.Clear()
}
