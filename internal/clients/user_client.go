package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// UserClient resolves bearer tokens through the user service.
type UserClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewUserClient builds a client for the user service. A nil httpClient gets
// a default with a 5s timeout; there is no shared global client.
func NewUserClient(baseURL string, httpClient *http.Client) *UserClient {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &UserClient{baseURL: baseURL, httpClient: httpClient}
}

// Me exchanges a bearer token for the authenticated user's identity.
func (c *UserClient) Me(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return nil, fmt.Errorf("clients: failed to build /me request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("clients: user service unreachable")
		return nil, ErrServiceUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthenticated
	default:
		log.Warn().Int("status", resp.StatusCode).Msg("clients: unexpected user service response")
		return nil, ErrServiceUnavailable
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("clients: failed to decode /me response: %w", err)
	}
	if identity.ID == 0 || identity.Email == "" {
		return nil, fmt.Errorf("clients: user service returned incomplete identity")
	}

	return &identity, nil
}
