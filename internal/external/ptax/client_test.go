package ptax

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/macrofactor/internal/provider"
	"github.com/wonny/macrofactor/pkg/config"
	"github.com/wonny/macrofactor/pkg/httputil"
	"github.com/wonny/macrofactor/pkg/logger"
)

const samplePayload = `{
	"@odata.context": "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata$metadata#_CotacaoDolarPeriodo",
	"value": [
		{"cotacaoCompra": 4.8910, "cotacaoVenda": 4.8916, "dataHoraCotacao": "2024-01-02 13:04:27.584"},
		{"cotacaoCompra": 4.9206, "cotacaoVenda": 4.9212, "dataHoraCotacao": "2024-01-03 13:11:30.110"}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{HTTP: config.HTTPConfig{Timeout: 5 * time.Second}}
	c := NewClient(httputil.New(cfg, logger.Nop()), srv.URL, logger.Nop())
	c.now = func() time.Time { return time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchSides(t *testing.T) {
	tests := []struct {
		seriesID string
		name     string
		want     float64
	}{
		{"buy", "usdbrl_buy", 4.8910},
		{"SELL", "usdbrl_sell", 4.8916},
		{"mid", "usdbrl_mid", 4.8913},
		{"", "usdbrl_mid", 4.8913},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.True(t, strings.HasSuffix(r.URL.Path, "/odata/CotacaoDolarPeriodo(dataInicial=@dataInicial,dataFinalCotacao=@dataFinalCotacao)"))
				assert.Equal(t, "'01-02-2024'", r.URL.Query().Get("@dataInicial"))
				assert.Equal(t, "'01-31-2024'", r.URL.Query().Get("@dataFinalCotacao"))
				assert.Equal(t, "json", r.URL.Query().Get("$format"))
				_, _ = w.Write([]byte(samplePayload))
			})

			s, err := client.Fetch(context.Background(), tt.seriesID, provider.DateRange{
				Start: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			})
			require.NoError(t, err)
			require.Equal(t, 2, s.Len())
			assert.Equal(t, tt.name, s.Name)
			assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.Points[0].Date)
			assert.InDelta(t, tt.want, s.Points[0].Value, 1e-12)
		})
	}
}

func TestFetchErrors(t *testing.T) {
	t.Run("unknown side", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		_, err := client.Fetch(context.Background(), "close", provider.DateRange{})
		assert.ErrorContains(t, err, "unknown side")
	})

	t.Run("no fixings in range", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"value":[]}`))
		})
		_, err := client.Fetch(context.Background(), "mid", provider.DateRange{})
		assert.ErrorIs(t, err, provider.ErrEmpty)
	})

	t.Run("server error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := client.Fetch(context.Background(), "mid", provider.DateRange{})
		assert.Error(t, err)
	})
}

func TestParseQuotesBadTimestamp(t *testing.T) {
	_, err := parseQuotes("x", []Quote{{Buy: 1, Sell: 1, DateTime: "02/01/2024"}}, SideBuy)
	assert.Error(t, err)

	_, err = parseQuotes("x", []Quote{{Buy: 1, Sell: 1, DateTime: "2024"}}, SideBuy)
	assert.Error(t, err)
}
