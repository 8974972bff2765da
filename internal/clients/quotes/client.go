package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockleague/engine/internal/domain"
)

// Client fetches quote snapshots from the quote gateway service.
// Responses are partial by design: symbols the upstream cannot price are
// simply absent from the result map, never an error for the whole call.
type Client struct {
	baseURL   string
	chunkSize int
	client    *http.Client
	log       zerolog.Logger
}

// NewClient creates a new quote gateway client
func NewClient(baseURL string, chunkSize int, log zerolog.Logger) *Client {
	if chunkSize < 1 {
		chunkSize = 50
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		chunkSize: chunkSize,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "quotes").Logger(),
	}
}

// GetQuotes fetches current quotes for a set of symbols. Requests are issued
// in bounded chunks so a large batch costs a handful of upstream calls, not
// one per account. A chunk that fails after retries is logged and skipped;
// an error is returned only when every chunk failed (total outage).
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	if len(symbols) == 0 {
		return map[string]domain.QuoteSnapshot{}, nil
	}

	result := make(map[string]domain.QuoteSnapshot, len(symbols))
	failedChunks := 0
	totalChunks := 0

	for start := 0; start < len(symbols); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(symbols) {
			end = len(symbols)
		}
		chunk := symbols[start:end]
		totalChunks++

		quotes, err := c.fetchChunk(ctx, chunk)
		if err != nil {
			failedChunks++
			c.log.Warn().Err(err).
				Int("chunk_size", len(chunk)).
				Msg("Quote chunk failed, continuing with remaining chunks")
			continue
		}

		for symbol, q := range quotes {
			result[symbol] = q
		}
	}

	if failedChunks == totalChunks {
		return nil, fmt.Errorf("quote gateway unavailable: all %d chunks failed", totalChunks)
	}

	if len(result) < len(symbols) {
		c.log.Warn().
			Int("requested", len(symbols)).
			Int("received", len(result)).
			Msg("Partial quote response")
	}

	return result, nil
}

// fetchChunk requests one bounded set of symbols, retrying with backoff
func (c *Client) fetchChunk(ctx context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	const maxRetries = 3

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt-1)) * time.Second
			c.log.Debug().
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Msg("Retrying quote chunk")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		quotes, err := c.doRequest(ctx, symbols)
		if err == nil {
			return quotes, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, symbols []string) (map[string]domain.QuoteSnapshot, error) {
	endpoint := fmt.Sprintf("%s/v1/quotes?symbols=%s",
		c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote gateway returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	quotes := make(map[string]domain.QuoteSnapshot, len(parsed.Quotes))
	for _, q := range parsed.Quotes {
		if q.Symbol == "" || q.Price <= 0 {
			// Upstream occasionally returns zero-priced placeholders
			continue
		}
		quotes[q.Symbol] = domain.QuoteSnapshot{
			Symbol:        q.Symbol,
			Price:         q.Price,
			ChangePercent: q.ChangePercent,
		}
	}

	return quotes, nil
}
