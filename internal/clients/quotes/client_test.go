package quotes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteServer(t *testing.T, prices map[string]float64, calls *int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}

		symbols := strings.Split(r.URL.Query().Get("symbols"), ",")
		resp := quoteResponse{}
		for _, symbol := range symbols {
			if price, ok := prices[symbol]; ok {
				resp.Quotes = append(resp.Quotes, wireQuote{Symbol: symbol, Price: price})
			}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGetQuotes(t *testing.T) {
	srv := quoteServer(t, map[string]float64{"AAPL": 150.25, "MSFT": 300}, nil)
	defer srv.Close()

	client := NewClient(srv.URL, 50, zerolog.Nop())

	quotes, err := client.GetQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, 150.25, quotes["AAPL"].Price)
}

func TestGetQuotes_PartialResponseIsNotAnError(t *testing.T) {
	srv := quoteServer(t, map[string]float64{"AAPL": 150.25}, nil)
	defer srv.Close()

	client := NewClient(srv.URL, 50, zerolog.Nop())

	quotes, err := client.GetQuotes(context.Background(), []string{"AAPL", "DELISTED"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	_, found := quotes["DELISTED"]
	assert.False(t, found)
}

func TestGetQuotes_ChunksLargeBatches(t *testing.T) {
	calls := 0
	srv := quoteServer(t, map[string]float64{"A": 1, "B": 2, "C": 3, "D": 4, "E": 5}, &calls)
	defer srv.Close()

	client := NewClient(srv.URL, 2, zerolog.Nop())

	quotes, err := client.GetQuotes(context.Background(), []string{"A", "B", "C", "D", "E"})
	require.NoError(t, err)
	assert.Len(t, quotes, 5)
	assert.Equal(t, 3, calls) // ceil(5/2)
}

func TestGetQuotes_TotalOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 50, zerolog.Nop())

	_, err := client.GetQuotes(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
}

func TestGetQuotes_SkipsZeroPricedPlaceholders(t *testing.T) {
	srv := quoteServer(t, map[string]float64{"AAPL": 150.25, "HALTED": 0}, nil)
	defer srv.Close()

	client := NewClient(srv.URL, 50, zerolog.Nop())

	quotes, err := client.GetQuotes(context.Background(), []string{"AAPL", "HALTED"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	_, found := quotes["HALTED"]
	assert.False(t, found)
}

func TestGetQuotes_EmptySymbolList(t *testing.T) {
	client := NewClient("http://unused", 50, zerolog.Nop())

	quotes, err := client.GetQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}
