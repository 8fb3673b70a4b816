package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/senecabooks/bookstore-services/internal/openlibrary"
)

// Imported books get placeholder prices until an admin sets real ones.
var (
	defaultImportPrice     = decimal.NewFromFloat(19.99)
	defaultImportRentPrice = decimal.NewFromFloat(2.99)
)

var ErrExternalNotFound = errors.New("no Open Library record for this ISBN")

// ExternalLookup is the slice of the Open Library client the service needs.
type ExternalLookup interface {
	Search(ctx context.Context, query string, limit, offset int) (*openlibrary.SearchResult, error)
	BySubject(ctx context.Context, subject string, limit, offset int) (*openlibrary.SearchResult, error)
	ByISBN(ctx context.Context, isbn string) (*openlibrary.Book, error)
}

type Service interface {
	GetBook(ctx context.Context, id int64) (*Book, error)
	ListBooks(ctx context.Context, filter ListFilter) ([]Book, int64, error)
	CreateBook(ctx context.Context, b *Book) (*Book, error)
	UpdateBook(ctx context.Context, id int64, update BookUpdate) (*Book, error)
	DeleteBook(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
	Authors(ctx context.Context) ([]string, error)

	SearchExternal(ctx context.Context, query string, limit, offset int) (*openlibrary.SearchResult, error)
	ExternalBySubject(ctx context.Context, subject string, limit, offset int) (*openlibrary.SearchResult, error)
	ImportByISBN(ctx context.Context, isbn string) (*Book, error)
}

type service struct {
	repo     Repository
	external ExternalLookup
}

func NewService(repo Repository, external ExternalLookup) Service {
	return &service{repo: repo, external: external}
}

func (s *service) GetBook(ctx context.Context, id int64) (*Book, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Int64("book_id", id).Msg("service: failed to fetch book")
		return nil, fmt.Errorf("service: failed to fetch book: %w", err)
	}
	return b, nil
}

func (s *service) ListBooks(ctx context.Context, filter ListFilter) ([]Book, int64, error) {
	books, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list books")
		return nil, 0, fmt.Errorf("service: failed to list books: %w", err)
	}
	return books, total, nil
}

func (s *service) CreateBook(ctx context.Context, b *Book) (*Book, error) {
	if b.ISBN != nil {
		if _, err := s.repo.GetByISBN(ctx, *b.ISBN); err == nil {
			return nil, ErrISBNExists
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("service: failed to check ISBN: %w", err)
		}
	}

	created, err := s.repo.Create(ctx, b)
	if err != nil {
		if errors.Is(err, ErrISBNExists) {
			return nil, ErrISBNExists
		}
		log.Error().Err(err).Str("title", b.Title).Msg("service: failed to create book")
		return nil, fmt.Errorf("service: failed to create book: %w", err)
	}

	log.Info().Int64("book_id", created.ID).Str("title", created.Title).Msg("service: book created")
	return created, nil
}

func (s *service) UpdateBook(ctx context.Context, id int64, update BookUpdate) (*Book, error) {
	updated, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrISBNExists) {
			return nil, err
		}
		log.Error().Err(err).Int64("book_id", id).Msg("service: failed to update book")
		return nil, fmt.Errorf("service: failed to update book: %w", err)
	}
	return updated, nil
}

func (s *service) DeleteBook(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Int64("book_id", id).Msg("service: failed to delete book")
		return fmt.Errorf("service: failed to delete book: %w", err)
	}
	log.Info().Int64("book_id", id).Msg("service: book deleted")
	return nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

func (s *service) Authors(ctx context.Context) ([]string, error) {
	return s.repo.Authors(ctx)
}

func (s *service) SearchExternal(ctx context.Context, query string, limit, offset int) (*openlibrary.SearchResult, error) {
	result, err := s.external.Search(ctx, query, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("service: external search failed")
		return nil, fmt.Errorf("service: external search failed: %w", err)
	}
	return result, nil
}

func (s *service) ExternalBySubject(ctx context.Context, subject string, limit, offset int) (*openlibrary.SearchResult, error) {
	result, err := s.external.BySubject(ctx, subject, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("service: external subject browse failed")
		return nil, fmt.Errorf("service: external subject browse failed: %w", err)
	}
	return result, nil
}

// ImportByISBN pulls a record from Open Library and creates a catalog row
// with placeholder pricing. Re-importing an existing ISBN fails the same way
// a duplicate create does.
func (s *service) ImportByISBN(ctx context.Context, isbn string) (*Book, error) {
	external, err := s.external.ByISBN(ctx, isbn)
	if err != nil {
		log.Error().Err(err).Str("isbn", isbn).Msg("service: external ISBN lookup failed")
		return nil, fmt.Errorf("service: external ISBN lookup failed: %w", err)
	}
	if external == nil {
		return nil, ErrExternalNotFound
	}

	b := &Book{
		Title:           external.Title,
		Author:          external.Author,
		ISBN:            external.ISBN,
		Publisher:       external.Publisher,
		PublicationYear: external.PublicationYear,
		Price:           defaultImportPrice,
		RentPrice:       defaultImportRentPrice,
		Available:       true,
		StockQuantity:   1,
	}
	if len(external.Subjects) > 0 {
		b.Category = &external.Subjects[0]
	}

	return s.CreateBook(ctx, b)
}
