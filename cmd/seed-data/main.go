package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type seedBook struct {
	Title    string
	Author   string
	ISBN     string
	Category string
}

var bookCatalog = []seedBook{
	{"Clean Code: A Handbook of Agile Software Craftsmanship", "Robert C. Martin", "978-0132350884", "Programming"},
	{"The Pragmatic Programmer", "David Thomas, Andrew Hunt", "978-0201616224", "Programming"},
	{"Code Complete", "Steve McConnell", "978-0735619670", "Programming"},
	{"Python Crash Course", "Eric Matthes", "978-1593276036", "Programming"},
	{"Effective Java", "Joshua Bloch", "978-0134685997", "Programming"},
	{"Kubernetes in Action", "Marko Luksa", "978-1617293725", "Technology"},
	{"Introduction to Algorithms", "Thomas Cormen", "978-0262033844", "Mathematics"},
	{"To Kill a Mockingbird", "Harper Lee", "978-0061120081", "Fiction"},
	{"1984", "George Orwell", "978-0452284234", "Science Fiction"},
	{"Pride and Prejudice", "Jane Austen", "978-0141439513", "Romance"},
	{"The Great Gatsby", "F. Scott Fitzgerald", "978-0743273567", "Fiction"},
	{"Dune", "Frank Herbert", "978-0441172719", "Science Fiction"},
	{"The Hobbit", "J.R.R. Tolkien", "978-0547928227", "Fantasy"},
	{"Sapiens: A Brief History of Humankind", "Yuval Noah Harari", "978-0062316097", "History"},
	{"Thinking, Fast and Slow", "Daniel Kahneman", "978-0374533557", "Psychology"},
}

var firstNames = []string{"Alice", "Bob", "Carol", "David", "Emma", "Frank", "Grace", "Henry", "Irene", "Jack"}
var lastNames = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Wilson", "Moore"}

type seeder struct {
	userURL    string
	catalogURL string
	orderURL   string
	client     *http.Client
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "seed-data").Logger()

	userURL := flag.String("user-url", "http://localhost:8001", "user service base URL")
	catalogURL := flag.String("catalog-url", "http://localhost:8002", "catalog service base URL")
	orderURL := flag.String("order-url", "http://localhost:8003", "order service base URL")
	userCount := flag.Int("users", 10, "number of users to create")
	bookCount := flag.Int("books", len(bookCatalog), "number of books to create")
	orderCount := flag.Int("orders", 20, "number of orders to create")
	adminEmail := flag.String("admin-email", "admin@seneca.ca", "admin account email")
	adminPassword := flag.String("admin-password", "admin12345", "admin account password")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	s := &seeder{
		userURL:    *userURL,
		catalogURL: *catalogURL,
		orderURL:   *orderURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}

	adminToken, err := s.ensureAdmin(*adminEmail, *adminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up admin account")
	}
	log.Info().Str("email", *adminEmail).Msg("Admin account ready")

	tokens := s.seedUsers(rng, *userCount)
	log.Info().Int("count", len(tokens)).Msg("Users created")

	bookIDs := s.seedBooks(rng, adminToken, *bookCount)
	log.Info().Int("count", len(bookIDs)).Msg("Books created")

	created := s.seedOrders(rng, tokens, bookIDs, *orderCount)
	log.Info().Int("count", created).Msg("Orders created")
}

func (s *seeder) post(url, token string, payload interface{}, out interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

// ensureAdmin registers the admin account (ignoring "already registered")
// and logs in to obtain a token.
func (s *seeder) ensureAdmin(email, password string) (string, error) {
	register := map[string]interface{}{
		"email":     email,
		"password":  password,
		"full_name": "Platform Admin",
		"is_admin":  true,
	}
	if _, err := s.post(s.userURL+"/register", "", register, nil); err != nil {
		return "", fmt.Errorf("register admin: %w", err)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	code, err := s.post(s.userURL+"/login", "", map[string]string{"email": email, "password": password}, &tokenResp)
	if err != nil {
		return "", fmt.Errorf("login admin: %w", err)
	}
	if code != http.StatusOK || tokenResp.AccessToken == "" {
		return "", fmt.Errorf("admin login failed with status %d", code)
	}
	return tokenResp.AccessToken, nil
}

func (s *seeder) seedUsers(rng *rand.Rand, count int) []string {
	tokens := make([]string, 0, count)
	for i := 0; i < count; i++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		email := fmt.Sprintf("%s.%s.%d@seneca.ca", first, last, i)
		password := fmt.Sprintf("password%d!", i)

		register := map[string]interface{}{
			"email":     email,
			"password":  password,
			"full_name": first + " " + last,
		}
		if _, err := s.post(s.userURL+"/register", "", register, nil); err != nil {
			log.Warn().Err(err).Str("email", email).Msg("Failed to register user")
			continue
		}

		var tokenResp struct {
			AccessToken string `json:"access_token"`
		}
		code, err := s.post(s.userURL+"/login", "", map[string]string{"email": email, "password": password}, &tokenResp)
		if err != nil || code != http.StatusOK {
			log.Warn().Err(err).Int("status", code).Str("email", email).Msg("Failed to log in user")
			continue
		}
		tokens = append(tokens, tokenResp.AccessToken)
	}
	return tokens
}

func (s *seeder) seedBooks(rng *rand.Rand, adminToken string, count int) []int64 {
	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		book := bookCatalog[i%len(bookCatalog)]
		isbn := book.ISBN
		if i >= len(bookCatalog) {
			isbn = fmt.Sprintf("%s-%d", book.ISBN, i)
		}

		price := decimal.NewFromInt(int64(10 + rng.Intn(50))).Add(decimal.RequireFromString("0.99"))
		payload := map[string]interface{}{
			"title":          book.Title,
			"author":         book.Author,
			"isbn":           isbn,
			"category":       book.Category,
			"price":          price,
			"rent_price":     price.Div(decimal.NewFromInt(10)).Round(2),
			"stock_quantity": 1 + rng.Intn(20),
		}

		var created struct {
			ID int64 `json:"id"`
		}
		code, err := s.post(s.catalogURL+"/books", adminToken, payload, &created)
		if err != nil {
			log.Warn().Err(err).Str("title", book.Title).Msg("Failed to create book")
			continue
		}
		if code != http.StatusOK {
			log.Warn().Int("status", code).Str("title", book.Title).Msg("Book not created")
			continue
		}
		ids = append(ids, created.ID)
	}
	return ids
}

func (s *seeder) seedOrders(rng *rand.Rand, tokens []string, bookIDs []int64, count int) int {
	if len(tokens) == 0 || len(bookIDs) == 0 {
		return 0
	}

	created := 0
	for i := 0; i < count; i++ {
		token := tokens[rng.Intn(len(tokens))]
		payload := map[string]interface{}{
			"book_id":  bookIDs[rng.Intn(len(bookIDs))],
			"quantity": 1 + rng.Intn(3),
		}
		if rng.Intn(2) == 0 {
			payload["order_type"] = "buy"
		} else {
			payload["order_type"] = "rent"
			payload["rental_days"] = 1 + rng.Intn(30)
		}

		code, err := s.post(s.orderURL+"/orders", token, payload, nil)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create order")
			continue
		}
		if code != http.StatusOK {
			log.Warn().Int("status", code).Msg("Order not created")
			continue
		}
		created++
	}
	return created
}
