// Package openlibrary is a thin client for the public Open Library API,
// used by the catalog service for external book discovery and imports.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL   = "https://openlibrary.org"
	defaultCoversURL = "https://covers.openlibrary.org"
)

// Book is the normalized shape Open Library records are reduced to before
// they reach the catalog API.
type Book struct {
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	ISBN            *string  `json:"isbn"`
	CoverURL        *string  `json:"cover_url"`
	PublicationYear *int     `json:"publication_year"`
	Publisher       *string  `json:"publisher"`
	Subjects        []string `json:"subjects"`
	Key             string   `json:"key"`
	Source          string   `json:"source"`
}

type SearchResult struct {
	Books  []Book `json:"books"`
	Total  int    `json:"total"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// Client talks to Open Library. It is constructed with an injected
// *http.Client; there is no package-level instance.
type Client struct {
	baseURL    string
	coversURL  string
	httpClient *http.Client
}

func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    defaultBaseURL,
		coversURL:  defaultCoversURL,
		httpClient: httpClient,
	}
}

// NewClientWithBaseURL exists for tests pointing at an httptest server.
func NewClientWithBaseURL(baseURL, coversURL string, httpClient *http.Client) *Client {
	c := NewClient(httpClient)
	c.baseURL = baseURL
	c.coversURL = coversURL
	return c
}

// Search queries the Open Library search endpoint.
func (c *Client) Search(ctx context.Context, query string, limit, offset int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("fields", "key,title,author_name,first_publish_year,isbn,cover_i,publisher,subject,edition_count")

	var payload struct {
		NumFound int `json:"numFound"`
		Docs     []struct {
			Key              string   `json:"key"`
			Title            string   `json:"title"`
			AuthorName       []string `json:"author_name"`
			FirstPublishYear *int     `json:"first_publish_year"`
			ISBN             []string `json:"isbn"`
			CoverID          *int64   `json:"cover_i"`
			Publisher        []string `json:"publisher"`
			Subject          []string `json:"subject"`
		} `json:"docs"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/search.json?"+params.Encode(), &payload); err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(payload.Docs))
	for _, doc := range payload.Docs {
		book := Book{
			Title:           orUnknown(doc.Title, "Unknown Title"),
			Author:          joinOrUnknown(doc.AuthorName),
			PublicationYear: doc.FirstPublishYear,
			Subjects:        limitSlice(doc.Subject, 5),
			Key:             doc.Key,
			Source:          "open_library",
		}
		if len(doc.ISBN) > 0 {
			book.ISBN = &doc.ISBN[0]
		}
		if len(doc.Publisher) > 0 {
			book.Publisher = &doc.Publisher[0]
		}
		book.CoverURL = c.coverURL(doc.CoverID, book.ISBN)
		books = append(books, book)
	}

	return &SearchResult{Books: books, Total: payload.NumFound, Offset: offset, Limit: limit}, nil
}

// BySubject lists works filed under an Open Library subject.
func (c *Client) BySubject(ctx context.Context, subject string, limit, offset int) (*SearchResult, error) {
	subject = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(subject))

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("details", "true")

	var payload struct {
		WorkCount int `json:"work_count"`
		Works     []struct {
			Key              string `json:"key"`
			Title            string `json:"title"`
			FirstPublishYear *int   `json:"first_publish_year"`
			CoverID          *int64 `json:"cover_id"`
			Authors          []struct {
				Name string `json:"name"`
			} `json:"authors"`
			Subject []string `json:"subject"`
		} `json:"works"`
	}
	endpoint := fmt.Sprintf("%s/subjects/%s.json?%s", c.baseURL, url.PathEscape(subject), params.Encode())
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(payload.Works))
	for _, work := range payload.Works {
		names := make([]string, 0, len(work.Authors))
		for _, a := range work.Authors {
			names = append(names, a.Name)
		}
		book := Book{
			Title:           orUnknown(work.Title, "Unknown Title"),
			Author:          joinOrUnknown(names),
			PublicationYear: work.FirstPublishYear,
			Subjects:        limitSlice(work.Subject, 5),
			Key:             work.Key,
			Source:          "open_library",
		}
		book.CoverURL = c.coverURL(work.CoverID, nil)
		books = append(books, book)
	}

	return &SearchResult{Books: books, Total: payload.WorkCount, Offset: offset, Limit: limit}, nil
}

// ByISBN looks up one edition. A nil result means Open Library has no record
// for that ISBN.
func (c *Client) ByISBN(ctx context.Context, isbn string) (*Book, error) {
	endpoint := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, url.PathEscape(isbn))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("openlibrary: failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openlibrary: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openlibrary: unexpected status code: %d", resp.StatusCode)
	}

	var payload struct {
		Key        string   `json:"key"`
		Title      string   `json:"title"`
		Publishers []string `json:"publishers"`
		Subjects   []string `json:"subjects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openlibrary: failed to decode response: %w", err)
	}

	book := &Book{
		Title:    orUnknown(payload.Title, "Unknown Title"),
		Author:   "Unknown Author", // edition records reference authors by key only
		ISBN:     &isbn,
		Subjects: limitSlice(payload.Subjects, 5),
		Key:      payload.Key,
		Source:   "open_library",
	}
	if len(payload.Publishers) > 0 {
		joined := strings.Join(payload.Publishers, ", ")
		book.Publisher = &joined
	}
	book.CoverURL = c.coverURL(nil, book.ISBN)

	return book, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("openlibrary: failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("openlibrary: request failed")
		return fmt.Errorf("openlibrary: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openlibrary: unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("openlibrary: failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) coverURL(coverID *int64, isbn *string) *string {
	var u string
	switch {
	case coverID != nil:
		u = fmt.Sprintf("%s/b/id/%d-M.jpg", c.coversURL, *coverID)
	case isbn != nil:
		u = fmt.Sprintf("%s/b/isbn/%s-M.jpg", c.coversURL, *isbn)
	default:
		return nil
	}
	return &u
}

func orUnknown(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func joinOrUnknown(names []string) string {
	if len(names) == 0 {
		return "Unknown Author"
	}
	return strings.Join(names, ", ")
}

func limitSlice(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
