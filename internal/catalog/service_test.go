package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senecabooks/bookstore-services/internal/catalog"
	"github.com/senecabooks/bookstore-services/internal/openlibrary"
)

type mockRepository struct {
	getByIDFunc   func(ctx context.Context, id int64) (*catalog.Book, error)
	getByISBNFunc func(ctx context.Context, isbn string) (*catalog.Book, error)
	listFunc      func(ctx context.Context, filter catalog.ListFilter) ([]catalog.Book, int64, error)
	createFunc    func(ctx context.Context, b *catalog.Book) (*catalog.Book, error)
	updateFunc    func(ctx context.Context, id int64, update catalog.BookUpdate) (*catalog.Book, error)
	deleteFunc    func(ctx context.Context, id int64) error
	categoriesFunc func(ctx context.Context) ([]string, error)
	authorsFunc    func(ctx context.Context) ([]string, error)
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*catalog.Book, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) GetByISBN(ctx context.Context, isbn string) (*catalog.Book, error) {
	return m.getByISBNFunc(ctx, isbn)
}

func (m *mockRepository) List(ctx context.Context, filter catalog.ListFilter) ([]catalog.Book, int64, error) {
	return m.listFunc(ctx, filter)
}

func (m *mockRepository) Create(ctx context.Context, b *catalog.Book) (*catalog.Book, error) {
	return m.createFunc(ctx, b)
}

func (m *mockRepository) Update(ctx context.Context, id int64, update catalog.BookUpdate) (*catalog.Book, error) {
	return m.updateFunc(ctx, id, update)
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockRepository) Categories(ctx context.Context) ([]string, error) {
	return m.categoriesFunc(ctx)
}

func (m *mockRepository) Authors(ctx context.Context) ([]string, error) {
	return m.authorsFunc(ctx)
}

type mockExternal struct {
	searchFunc    func(ctx context.Context, query string, limit, offset int) (*openlibrary.SearchResult, error)
	bySubjectFunc func(ctx context.Context, subject string, limit, offset int) (*openlibrary.SearchResult, error)
	byISBNFunc    func(ctx context.Context, isbn string) (*openlibrary.Book, error)
}

func (m *mockExternal) Search(ctx context.Context, query string, limit, offset int) (*openlibrary.SearchResult, error) {
	return m.searchFunc(ctx, query, limit, offset)
}

func (m *mockExternal) BySubject(ctx context.Context, subject string, limit, offset int) (*openlibrary.SearchResult, error) {
	return m.bySubjectFunc(ctx, subject, limit, offset)
}

func (m *mockExternal) ByISBN(ctx context.Context, isbn string) (*openlibrary.Book, error) {
	return m.byISBNFunc(ctx, isbn)
}

func TestService_CreateBook_RejectsDuplicateISBN(t *testing.T) {
	isbn := "978-0132350884"
	repo := &mockRepository{
		getByISBNFunc: func(ctx context.Context, got string) (*catalog.Book, error) {
			assert.Equal(t, isbn, got)
			return &catalog.Book{ID: 1, ISBN: &isbn}, nil
		},
		createFunc: func(ctx context.Context, b *catalog.Book) (*catalog.Book, error) {
			t.Fatal("create must not run when the ISBN already exists")
			return nil, nil
		},
	}
	svc := catalog.NewService(repo, &mockExternal{})

	_, err := svc.CreateBook(context.Background(), &catalog.Book{Title: "Clean Code", Author: "Robert C. Martin", ISBN: &isbn})

	assert.ErrorIs(t, err, catalog.ErrISBNExists)
}

func TestService_CreateBook_PassesThroughWhenISBNIsFree(t *testing.T) {
	isbn := "978-0132350884"
	repo := &mockRepository{
		getByISBNFunc: func(ctx context.Context, got string) (*catalog.Book, error) {
			return nil, catalog.ErrNotFound
		},
		createFunc: func(ctx context.Context, b *catalog.Book) (*catalog.Book, error) {
			created := *b
			created.ID = 5
			return &created, nil
		},
	}
	svc := catalog.NewService(repo, &mockExternal{})

	created, err := svc.CreateBook(context.Background(), &catalog.Book{Title: "Clean Code", Author: "Robert C. Martin", ISBN: &isbn})

	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
}

func TestService_ImportByISBN(t *testing.T) {
	t.Run("creates_book_with_placeholder_prices", func(t *testing.T) {
		isbn := "9780451524935"
		publisher := "Signet Classics"
		year := 1950

		var stored *catalog.Book
		repo := &mockRepository{
			getByISBNFunc: func(ctx context.Context, got string) (*catalog.Book, error) {
				return nil, catalog.ErrNotFound
			},
			createFunc: func(ctx context.Context, b *catalog.Book) (*catalog.Book, error) {
				stored = b
				created := *b
				created.ID = 9
				return &created, nil
			},
		}
		external := &mockExternal{
			byISBNFunc: func(ctx context.Context, got string) (*openlibrary.Book, error) {
				assert.Equal(t, isbn, got)
				return &openlibrary.Book{
					Title:           "1984",
					Author:          "George Orwell",
					ISBN:            &isbn,
					Publisher:       &publisher,
					PublicationYear: &year,
					Subjects:        []string{"Dystopias", "Political fiction"},
				}, nil
			},
		}
		svc := catalog.NewService(repo, external)

		created, err := svc.ImportByISBN(context.Background(), isbn)

		require.NoError(t, err)
		assert.Equal(t, int64(9), created.ID)
		require.NotNil(t, stored)
		assert.Equal(t, "1984", stored.Title)
		assert.True(t, stored.Price.Equal(decimal.RequireFromString("19.99")), "price %s", stored.Price)
		assert.True(t, stored.RentPrice.Equal(decimal.RequireFromString("2.99")), "rent price %s", stored.RentPrice)
		assert.True(t, stored.Available)
		assert.Equal(t, 1, stored.StockQuantity)
		require.NotNil(t, stored.Category)
		assert.Equal(t, "Dystopias", *stored.Category)
	})

	t.Run("no_external_record", func(t *testing.T) {
		external := &mockExternal{
			byISBNFunc: func(ctx context.Context, isbn string) (*openlibrary.Book, error) {
				return nil, nil
			},
		}
		svc := catalog.NewService(&mockRepository{}, external)

		_, err := svc.ImportByISBN(context.Background(), "0000000000")

		assert.ErrorIs(t, err, catalog.ErrExternalNotFound)
	})

	t.Run("external_failure_is_wrapped", func(t *testing.T) {
		external := &mockExternal{
			byISBNFunc: func(ctx context.Context, isbn string) (*openlibrary.Book, error) {
				return nil, errors.New("connection refused")
			},
		}
		svc := catalog.NewService(&mockRepository{}, external)

		_, err := svc.ImportByISBN(context.Background(), "9780451524935")

		require.Error(t, err)
		assert.NotErrorIs(t, err, catalog.ErrExternalNotFound)
	})
}

func TestService_GetBook_NotFound(t *testing.T) {
	repo := &mockRepository{
		getByIDFunc: func(ctx context.Context, id int64) (*catalog.Book, error) {
			return nil, catalog.ErrNotFound
		},
	}
	svc := catalog.NewService(repo, &mockExternal{})

	_, err := svc.GetBook(context.Background(), 999)

	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
