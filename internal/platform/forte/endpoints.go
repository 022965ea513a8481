package forte

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	apperrors "lara-bot/internal/common/errors"
)

// StatusRejected marks a 4xx answer whose message came from the backend.
const StatusRejected = "rejected"

const genericFailure = "🔥 에러가 발생했습니다. 잠시 후 다시 시도해주세요."

func rejected(resp *Response, fallback string) *apperrors.AppError {
	return apperrors.NewDomainError(zerolog.InfoLevel, StatusRejected, resp.Message(fallback)).
		WithDetail("http_status", resp.Status)
}

func unexpected(resp *Response) *apperrors.AppError {
	return apperrors.NewDomainError(zerolog.WarnLevel, apperrors.StatusError, genericFailure).
		WithDetail("http_status", resp.Status)
}

// GetDiscordUser looks up the backend account linked to a Discord account.
// linked is false when the backend answers with a record lacking an id.
func (c *Client) GetDiscordUser(ctx context.Context, discordID string) (user *User, linked bool, err error) {
	resp, err := c.Do(ctx, http.MethodGet, "/discords/"+url.PathEscape(discordID), nil)
	if err != nil {
		return nil, false, err
	}
	obj, ok := resp.Object()
	if !ok {
		return nil, false, nil
	}
	if _, has := obj["id"]; !has {
		return nil, false, nil
	}
	user = &User{}
	if err := resp.Decode(user); err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode discord user")
	}
	return user, true, nil
}

// GetUser fetches a user by backend id. found is false for a 4xx answer or a
// body without an id.
func (c *Client) GetUser(ctx context.Context, userID string) (user *User, found bool, err error) {
	resp, err := c.Do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, false, err
	}
	if !resp.OK() && !resp.ClientError() {
		return nil, false, unexpected(resp)
	}
	if !resp.OK() {
		return nil, false, nil
	}
	obj, ok := resp.Object()
	if !ok {
		return nil, false, nil
	}
	if _, has := obj["id"]; !has {
		return nil, false, nil
	}
	user = &User{}
	if err := resp.Decode(user); err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode user")
	}
	return user, true, nil
}

// GetAttendance returns the raw attendance lookup.
func (c *Client) GetAttendance(ctx context.Context, discordID string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, fmt.Sprintf("/discords/%s/attendances", url.PathEscape(discordID)), nil)
}

// PostAttendance returns the raw check-in answer.
func (c *Client) PostAttendance(ctx context.Context, discordID string) (*Response, error) {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/discords/%s/attendances", url.PathEscape(discordID)), nil)
}

// Unpack returns the raw box-opening answer.
func (c *Client) Unpack(ctx context.Context, discordID, boxType string, isPremium bool) (*Response, error) {
	premium := 0
	if isPremium {
		premium = 1
	}
	q := url.Values{}
	q.Set("box", boxType)
	q.Set("isPremium", fmt.Sprint(premium))
	path := fmt.Sprintf("/discords/%s/attendances/unpack?%s", url.PathEscape(discordID), q.Encode())
	return c.Do(ctx, http.MethodPost, path, nil)
}

// CreditPoints deposits points and returns the receipt id. A 4xx answer is a
// DomainError carrying the backend's message.
func (c *Client) CreditPoints(ctx context.Context, userID string, points int64) (ID, error) {
	resp, err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/users/%s/points", url.PathEscape(userID)), map[string]int64{"points": points})
	if err != nil {
		return "", err
	}
	switch {
	case resp.ClientError():
		return "", rejected(resp, "Unknown Error")
	case !resp.OK():
		return "", unexpected(resp)
	}
	var out receiptResponse
	if err := resp.Decode(&out); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode receipt")
	}
	if out.ReceiptID == "" {
		out.ReceiptID = "-1"
	}
	return out.ReceiptID, nil
}

// ListItems returns every purchase record of the user.
func (c *Client) ListItems(ctx context.Context, userID string) ([]Item, error) {
	resp, err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/users/%s/items", url.PathEscape(userID)), nil)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.ClientError():
		return nil, rejected(resp, "Unknown Error")
	case !resp.OK():
		return nil, unexpected(resp)
	}
	var items []Item
	if err := resp.Decode(&items); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode items")
	}
	return items, nil
}

// DeleteItem asks the backend to withdraw one purchase.
func (c *Client) DeleteItem(ctx context.Context, userID string, itemID ID) error {
	resp, err := c.Do(ctx, http.MethodDelete, fmt.Sprintf("/users/%s/items/%s", url.PathEscape(userID), url.PathEscape(itemID.String())), nil)
	if err != nil {
		return err
	}
	switch {
	case resp.ClientError():
		return rejected(resp, "Unknown Error")
	case !resp.OK():
		return unexpected(resp)
	}
	return nil
}

// RefreshClientToken rotates the API token of an OAuth client.
func (c *Client) RefreshClientToken(ctx context.Context, clientID string) (string, error) {
	resp, err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/clients/%s/refresh", url.PathEscape(clientID)), nil)
	if err != nil {
		return "", err
	}
	switch {
	case resp.ClientError():
		return "", rejected(resp, "Unknown Error")
	case !resp.OK():
		return "", unexpected(resp)
	}
	var out tokenResponse
	if err := resp.Decode(&out); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode token")
	}
	return out.Token, nil
}
