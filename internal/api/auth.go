package api

import (
	"context"
	"fmt"

	"bazario-admin/internal/domain"
)

// AuthAPI wraps the auth/* endpoint group.
type AuthAPI struct {
	c *Client
}

// SignInRequest represents the credentials sent to POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResponse is the payload returned by sign-in and 2FA validation.
type SignInResponse struct {
	User   *domain.User  `json:"user"`
	Tokens domain.Tokens `json:"tokens"`
}

// SignIn authenticates and stores the resulting session.
func (a *AuthAPI) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	var resp SignInResponse
	if err := a.c.Post(WithAuthFlow(ctx), "/auth/signin", SignInRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.Tokens.AccessToken == "" {
		return nil, fmt.Errorf("sign-in response missing user or tokens")
	}
	if err := a.c.session.SignIn(resp.User, resp.Tokens); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// SignUp registers a new account.
func (a *AuthAPI) SignUp(ctx context.Context, email, password, firstName, lastName string) error {
	body := map[string]string{
		"email":     email,
		"password":  password,
		"firstName": firstName,
		"lastName":  lastName,
	}
	return a.c.Post(WithAuthFlow(ctx), "/auth/signup", body, nil)
}

// Refresh exchanges a refresh token for a new token pair. The transport's
// 401 recovery calls this; it does not touch the session itself.
func (a *AuthAPI) Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	var resp struct {
		Tokens domain.Tokens `json:"tokens"`
	}
	body := map[string]string{"refreshToken": refreshToken}
	if err := a.c.Post(WithAuthFlow(ctx), "/auth/refresh", body, &resp); err != nil {
		return domain.Tokens{}, err
	}
	if resp.Tokens.AccessToken == "" {
		return domain.Tokens{}, fmt.Errorf("refresh response missing access token")
	}
	return resp.Tokens, nil
}

// SignOut clears the session. The backend call is best-effort: the local
// session is cleared even when the network is down.
func (a *AuthAPI) SignOut(ctx context.Context) error {
	err := a.c.Post(WithAuthFlow(ctx), "/auth/signout", nil, nil)
	if clearErr := a.c.session.Clear(); clearErr != nil {
		return clearErr
	}
	return err
}

// PhoneExists checks whether a phone number is already registered.
func (a *AuthAPI) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := a.c.Post(ctx, "/auth/phone-exists", map[string]string{"phone": phone}, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// SendTwoFactor requests a 2FA code for the given phone.
func (a *AuthAPI) SendTwoFactor(ctx context.Context, phone string) error {
	return a.c.Post(WithAuthFlow(ctx), "/auth/2fa/send", map[string]string{"phone": phone}, nil)
}

// ValidateTwoFactor validates a 2FA code and stores the resulting session.
func (a *AuthAPI) ValidateTwoFactor(ctx context.Context, phone, code string) (*domain.User, error) {
	var resp SignInResponse
	body := map[string]string{"phone": phone, "code": code}
	if err := a.c.Post(WithAuthFlow(ctx), "/auth/2fa/validate", body, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.Tokens.AccessToken == "" {
		return nil, fmt.Errorf("2fa response missing user or tokens")
	}
	if err := a.c.session.SignIn(resp.User, resp.Tokens); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// ResetPassword starts a password reset for the given email.
func (a *AuthAPI) ResetPassword(ctx context.Context, email string) error {
	return a.c.Post(WithAuthFlow(ctx), "/auth/password-reset", map[string]string{"email": email}, nil)
}

// ConfirmOTP confirms a one-time password.
func (a *AuthAPI) ConfirmOTP(ctx context.Context, email, otp string) error {
	return a.c.Post(WithAuthFlow(ctx), "/auth/otp/confirm", map[string]string{"email": email, "otp": otp}, nil)
}

// ResendOTP requests a fresh one-time password.
func (a *AuthAPI) ResendOTP(ctx context.Context, email string) error {
	return a.c.Post(WithAuthFlow(ctx), "/auth/otp/resend", map[string]string{"email": email}, nil)
}
