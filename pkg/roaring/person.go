package roaring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const personPath = "/person/1.0/person"

// PersonLookupResponse is the lookup response body, kept verbatim.
type PersonLookupResponse struct {
	raw json.RawMessage
}

// Raw returns the undecoded response body.
func (r *PersonLookupResponse) Raw() json.RawMessage {
	return r.raw
}

// Decode unmarshals the response body into v.
func (r *PersonLookupResponse) Decode(v any) error {
	return json.Unmarshal(r.raw, v)
}

// MarshalJSON returns the body unchanged.
func (r *PersonLookupResponse) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// Person looks up a person by personal number. An expired token is refreshed
// first; a refresh failure is returned as *AuthError, any failure of the lookup
// itself as *LookupError. A failed lookup leaves the stored token untouched.
func (c *Client) Person(ctx context.Context, personalNumber string) (*PersonLookupResponse, error) {
	tok, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("personalNumber", personalNumber)

	req, err := c.newRequest(ctx, http.MethodGet, personPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &LookupError{PersonalNumber: personalNumber, Message: "build lookup request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok.Token)

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, &LookupError{PersonalNumber: personalNumber, Message: "lookup request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LookupError{
			StatusCode:     resp.StatusCode,
			PersonalNumber: personalNumber,
			Message:        "read lookup response",
			Cause:          err,
		}
	}

	if !isSuccess(resp.StatusCode) {
		if len(body) > 4096 {
			body = body[:4096]
		}
		return nil, &LookupError{
			StatusCode:     resp.StatusCode,
			PersonalNumber: personalNumber,
			Message:        fmt.Sprintf("lookup endpoint returned HTTP %d", resp.StatusCode),
			Body:           strings.TrimSpace(string(body)),
		}
	}

	if !json.Valid(body) {
		return nil, &LookupError{
			StatusCode:     resp.StatusCode,
			PersonalNumber: personalNumber,
			Message:        "lookup response is not valid JSON",
		}
	}

	return &PersonLookupResponse{raw: body}, nil
}
