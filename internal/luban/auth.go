package luban

import (
	"context"
	"errors"
	"fmt"
)

// Challenge is what the OTP webhook returns: the worker's upstream id and the
// code it texted them.
type Challenge struct {
	UserID string
	OTP    string
}

// LoginResult is the upstream login response.
type LoginResult struct {
	AuthToken string
	Message   string
	User      *User
}

// RequestOTP asks the OTP webhook to text a code to the number.
func (c *Client) RequestOTP(ctx context.Context, country, number string) (Challenge, error) {
	target := *c.otpWebhook
	q := target.Query()
	q.Set("country", country)
	q.Set("number", number)
	target.RawQuery = q.Encode()

	var resp struct {
		ID     FlexID `json:"id"`
		UserID FlexID `json:"user_id"`
		OTP    FlexID `json:"otp"`
	}
	if err := c.getJSON(ctx, "request_otp", target.String(), &resp); err != nil {
		return Challenge{}, err
	}

	userID := string(resp.ID)
	if userID == "" {
		userID = string(resp.UserID)
	}
	if userID == "" || resp.OTP == "" {
		return Challenge{}, fmt.Errorf("request_otp: %w", ErrInvalidResponse)
	}
	return Challenge{UserID: userID, OTP: string(resp.OTP)}, nil
}

// Login exchanges the user id and OTP for an upstream token and profile.
func (c *Client) Login(ctx context.Context, userID, otp string) (LoginResult, error) {
	payload := map[string]any{"id": idValue(userID), "otp": otp}

	var resp struct {
		AuthToken string `json:"authToken"`
		Message   string `json:"message"`
		User      []User `json:"user"`
	}
	if err := c.postJSON(ctx, "login", c.endpoint("auth", "login"), payload, &resp); err != nil {
		return LoginResult{}, err
	}
	if resp.AuthToken == "" {
		return LoginResult{}, &StatusError{Op: "login", StatusCode: 200, Message: resp.Message}
	}

	result := LoginResult{AuthToken: resp.AuthToken, Message: resp.Message}
	if len(resp.User) > 0 {
		user := resp.User[0]
		result.User = &user
	}
	return result, nil
}

// LoginFailureMessage extracts the upstream reason from a failed Login.
func LoginFailureMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return "未知錯誤"
}
