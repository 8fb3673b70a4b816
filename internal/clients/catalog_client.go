package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// CatalogClient fetches current book data from the catalog service.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCatalogClient(baseURL string, httpClient *http.Client) *CatalogClient {
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	return &CatalogClient{baseURL: baseURL, httpClient: httpClient}
}

// GetBook returns the point-in-time book record. The caller must not assume
// the stock count stays valid after this returns.
func (c *CatalogClient) GetBook(ctx context.Context, bookID int64) (*BookInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/books/%d", c.baseURL, bookID), nil)
	if err != nil {
		return nil, fmt.Errorf("clients: failed to build book request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Int64("book_id", bookID).Msg("clients: catalog service unreachable")
		return nil, ErrServiceUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrBookNotFound
	default:
		log.Warn().Int("status", resp.StatusCode).Int64("book_id", bookID).Msg("clients: unexpected catalog service response")
		return nil, ErrServiceUnavailable
	}

	var book BookInfo
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, fmt.Errorf("clients: failed to decode book response: %w", err)
	}
	if book.ID == 0 || book.Title == "" || book.Author == "" {
		return nil, fmt.Errorf("clients: catalog service returned incomplete book record")
	}

	return &book, nil
}
