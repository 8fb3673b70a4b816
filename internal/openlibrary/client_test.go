package openlibrary_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senecabooks/bookstore-services/internal/openlibrary"
)

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "20", r.URL.Query().Get("offset"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"numFound": 2,
			"docs": [
				{
					"key": "/works/OL1W",
					"title": "The Go Programming Language",
					"author_name": ["Alan Donovan", "Brian Kernighan"],
					"first_publish_year": 2015,
					"isbn": ["9780134190440", "0134190440"],
					"cover_i": 123,
					"publisher": ["Addison-Wesley"],
					"subject": ["Go (Computer program language)", "Programming", "a", "b", "c", "d", "e"]
				},
				{
					"key": "/works/OL2W",
					"title": "Go in Action"
				}
			]
		}`))
	}))
	defer server.Close()

	client := openlibrary.NewClientWithBaseURL(server.URL, "http://covers.test", server.Client())

	result, err := client.Search(context.Background(), "golang", 10, 20)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 20, result.Offset)
	require.Len(t, result.Books, 2)

	first := result.Books[0]
	assert.Equal(t, "The Go Programming Language", first.Title)
	assert.Equal(t, "Alan Donovan, Brian Kernighan", first.Author)
	require.NotNil(t, first.ISBN)
	assert.Equal(t, "9780134190440", *first.ISBN)
	require.NotNil(t, first.CoverURL)
	assert.Equal(t, "http://covers.test/b/id/123-M.jpg", *first.CoverURL)
	assert.Len(t, first.Subjects, 5)
	assert.Equal(t, "open_library", first.Source)

	second := result.Books[1]
	assert.Equal(t, "Unknown Author", second.Author)
	assert.Nil(t, second.ISBN)
	assert.Nil(t, second.CoverURL)
}

func TestClient_BySubject_NormalizesSubject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subjects/science_fiction.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"work_count": 1,
			"works": [
				{
					"key": "/works/OL3W",
					"title": "Dune",
					"first_publish_year": 1965,
					"cover_id": 456,
					"authors": [{"name": "Frank Herbert"}],
					"subject": ["Science fiction"]
				}
			]
		}`))
	}))
	defer server.Close()

	client := openlibrary.NewClientWithBaseURL(server.URL, "http://covers.test", server.Client())

	result, err := client.BySubject(context.Background(), "Science Fiction", 20, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Books, 1)
	assert.Equal(t, "Dune", result.Books[0].Title)
	assert.Equal(t, "Frank Herbert", result.Books[0].Author)
	require.NotNil(t, result.Books[0].CoverURL)
	assert.Equal(t, "http://covers.test/b/id/456-M.jpg", *result.Books[0].CoverURL)
}

func TestClient_ByISBN(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/isbn/9780451524935.json", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"key": "/books/OL4M",
				"title": "1984",
				"publishers": ["Signet Classics"],
				"subjects": ["Dystopias"]
			}`))
		}))
		defer server.Close()

		client := openlibrary.NewClientWithBaseURL(server.URL, "http://covers.test", server.Client())

		book, err := client.ByISBN(context.Background(), "9780451524935")

		require.NoError(t, err)
		require.NotNil(t, book)
		assert.Equal(t, "1984", book.Title)
		require.NotNil(t, book.ISBN)
		assert.Equal(t, "9780451524935", *book.ISBN)
		require.NotNil(t, book.Publisher)
		assert.Equal(t, "Signet Classics", *book.Publisher)
		require.NotNil(t, book.CoverURL)
		assert.Equal(t, "http://covers.test/b/isbn/9780451524935-M.jpg", *book.CoverURL)
	})

	t.Run("missing_record_returns_nil", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := openlibrary.NewClientWithBaseURL(server.URL, "http://covers.test", server.Client())

		book, err := client.ByISBN(context.Background(), "0000000000")

		require.NoError(t, err)
		assert.Nil(t, book)
	})

	t.Run("server_error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := openlibrary.NewClientWithBaseURL(server.URL, "http://covers.test", server.Client())

		_, err := client.ByISBN(context.Background(), "9780451524935")

		require.Error(t, err)
	})
}
