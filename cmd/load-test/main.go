package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type result struct {
	duration time.Duration
	ok       bool
}

type report struct {
	Name              string
	TotalRequests     int
	Successful        int
	Failed            int
	SuccessRate       float64
	RequestsPerSecond float64
	Avg               time.Duration
	Min               time.Duration
	Max               time.Duration
	P50               time.Duration
	P95               time.Duration
	P99               time.Duration
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "load-test").Logger()

	userURL := flag.String("user-url", "http://localhost:8001", "user service base URL")
	catalogURL := flag.String("catalog-url", "http://localhost:8002", "catalog service base URL")
	orderURL := flag.String("order-url", "http://localhost:8003", "order service base URL")
	email := flag.String("email", "user@seneca.ca", "account used for authenticated requests")
	password := flag.String("password", "user12345", "account password")
	requests := flag.Int("requests", 200, "requests per scenario")
	workers := flag.Int("workers", 10, "concurrent workers")
	withOrders := flag.Bool("orders", false, "include order-creation load (writes rows)")
	flag.Parse()

	client := &http.Client{Timeout: 15 * time.Second}

	token, err := login(client, *userURL, *email, *password)
	if err != nil {
		log.Warn().Err(err).Msg("Login failed, running unauthenticated scenarios only")
	}

	scenarios := []struct {
		name string
		fn   func() bool
	}{
		{"GET /books", func() bool { return get(client, *catalogURL+"/books", "") }},
		{"GET /books?search=python", func() bool { return get(client, *catalogURL+"/books?search=python", "") }},
		{"GET /books/{id}", func() bool { return get(client, *catalogURL+"/books/1", "") }},
	}
	if token != "" {
		scenarios = append(scenarios, struct {
			name string
			fn   func() bool
		}{"GET /orders", func() bool { return get(client, *orderURL+"/orders", token) }})
		if *withOrders {
			scenarios = append(scenarios, struct {
				name string
				fn   func() bool
			}{"POST /orders", func() bool { return createOrder(client, *orderURL, token) }})
		}
	}

	for _, sc := range scenarios {
		r := run(sc.name, sc.fn, *requests, *workers)
		printReport(r)
	}
}

func run(name string, fn func() bool, total, workers int) report {
	jobs := make(chan struct{}, total)
	results := make(chan result, total)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				ok := fn()
				results <- result{duration: time.Since(start), ok: ok}
			}
		}()
	}

	started := time.Now()
	for i := 0; i < total; i++ {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()
	close(results)
	elapsed := time.Since(started)

	durations := make([]time.Duration, 0, total)
	succeeded := 0
	var sum time.Duration
	for r := range results {
		durations = append(durations, r.duration)
		sum += r.duration
		if r.ok {
			succeeded++
		}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	rep := report{
		Name:          name,
		TotalRequests: total,
		Successful:    succeeded,
		Failed:        total - succeeded,
	}
	if total > 0 {
		rep.SuccessRate = float64(succeeded) / float64(total) * 100
		rep.RequestsPerSecond = float64(total) / elapsed.Seconds()
		rep.Avg = sum / time.Duration(total)
		rep.Min = durations[0]
		rep.Max = durations[len(durations)-1]
		rep.P50 = percentile(durations, 50)
		rep.P95 = percentile(durations, 95)
		rep.P99 = percentile(durations, 99)
	}
	return rep
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func printReport(r report) {
	fmt.Printf("\n=== %s ===\n", r.Name)
	fmt.Printf("requests:     %d (ok %d, failed %d, %.1f%% success)\n", r.TotalRequests, r.Successful, r.Failed, r.SuccessRate)
	fmt.Printf("throughput:   %.1f req/s\n", r.RequestsPerSecond)
	fmt.Printf("latency avg:  %s (min %s, max %s)\n", r.Avg, r.Min, r.Max)
	fmt.Printf("percentiles:  p50 %s, p95 %s, p99 %s\n", r.P50, r.P95, r.P99)
}

func login(client *http.Client, userURL, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(userURL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	return tokenResp.AccessToken, nil
}

func get(client *http.Client, url, token string) bool {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

func createOrder(client *http.Client, orderURL, token string) bool {
	body, _ := json.Marshal(map[string]interface{}{
		"book_id":    1,
		"order_type": "buy",
		"quantity":   1,
	})

	req, err := http.NewRequest(http.MethodPost, orderURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
