package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebot/goswap/exchange"
)

const testSecret = "testsecret"

// fakeBinance is an httptest double for the spot API. It checks request
// signatures the way the real backend does and records order parameters for
// assertions.
type fakeBinance struct {
	t *testing.T

	mainBalance string
	openOrders  int
	orders      []url.Values
}

func (f *fakeBinance) verifySigned(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get(headerAPIKey) != "testkey" {
		http.Error(w, `{"code":-2014,"msg":"API-key format invalid."}`, http.StatusUnauthorized)
		return false
	}
	raw := r.URL.RawQuery
	idx := strings.LastIndex(raw, "&signature=")
	if idx < 0 {
		http.Error(w, `{"code":-1022,"msg":"Signature missing."}`, http.StatusBadRequest)
		return false
	}
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(raw[:idx]))
	if hex.EncodeToString(mac.Sum(nil)) != raw[idx+len("&signature="):] {
		http.Error(w, `{"code":-1022,"msg":"Signature for this request is not valid."}`, http.StatusBadRequest)
		return false
	}
	return true
}

func (f *fakeBinance) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/ping", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbols":[
			{"symbol":"ETHUSDT","status":"TRADING","baseAsset":"ETH","quoteAsset":"USDT","filters":[
				{"filterType":"LOT_SIZE","stepSize":"0.001","minQty":"0.001"},
				{"filterType":"PRICE_FILTER","tickSize":"0.01"}]},
			{"symbol":"USDTTRY","status":"TRADING","baseAsset":"USDT","quoteAsset":"TRY","quoteAssetPrecision":1,"filters":[
				{"filterType":"LOT_SIZE","stepSize":"0.01","minQty":"0.1"},
				{"filterType":"PRICE_FILTER","tickSize":"0.001"},
				{"filterType":"NOTIONAL","minNotional":"1"}]},
			{"symbol":"LUNAUSDT","status":"BREAK","baseAsset":"LUNA","quoteAsset":"USDT","filters":[
				{"filterType":"LOT_SIZE","stepSize":"0.01","minQty":"0.01"},
				{"filterType":"PRICE_FILTER","tickSize":"0.0001"}]},
			{"symbol":"ETHBTC","status":"TRADING","baseAsset":"ETH","quoteAsset":"BTC","filters":[]}
		]}`)
	})
	mux.HandleFunc("/api/v3/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"symbol":"ETHUSDT","price":"2000.00"},
			{"symbol":"USDTTRY","price":"27.5"},
			{"symbol":"LUNAUSDT","price":"0.0001"},
			{"symbol":"ETHBTC","price":"0.05"}
		]`)
	})
	mux.HandleFunc("/api/v3/account", func(w http.ResponseWriter, r *http.Request) {
		if !f.verifySigned(w, r) {
			return
		}
		fmt.Fprintf(w, `{"balances":[
			{"asset":"USDT","free":"%s","locked":"0"},
			{"asset":"ETH","free":"0.5","locked":"0"}
		]}`, f.mainBalance)
	})
	mux.HandleFunc("/api/v3/ticker/bookTicker", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "ETHUSDT" {
			http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"symbol":"ETHUSDT","bidPrice":"1999.99","askPrice":"2000.01"}`)
	})
	mux.HandleFunc("/api/v3/order", func(w http.ResponseWriter, r *http.Request) {
		if !f.verifySigned(w, r) {
			return
		}
		params := r.URL.Query()
		f.orders = append(f.orders, params)
		if params.Get("symbol") == "REJECTUSDT" {
			http.Error(w, `{"code":-2010,"msg":"Account has insufficient balance for requested action."}`, http.StatusBadRequest)
			return
		}
		if params.Get("type") == "LIMIT" {
			fmt.Fprint(w, `{"symbol":"ETHUSDT","orderId":42,"clientOrderId":"limit-1","status":"NEW","fills":[]}`)
			return
		}
		if params.Get("symbol") == "USDTTRY" {
			fmt.Fprint(w, `{"symbol":"USDTTRY","orderId":43,"clientOrderId":"mkt-2","status":"FILLED","fills":[
				{"price":"25","qty":"110"}
			]}`)
			return
		}
		fmt.Fprint(w, `{"symbol":"ETHUSDT","orderId":41,"clientOrderId":"mkt-1","status":"FILLED","fills":[
			{"price":"2000","qty":"0.030"},
			{"price":"2001","qty":"0.019"}
		]}`)
	})
	mux.HandleFunc("/api/v3/openOrders", func(w http.ResponseWriter, r *http.Request) {
		if !f.verifySigned(w, r) {
			return
		}
		if f.openOrders == 0 {
			http.Error(w, `{"code":-2011,"msg":"Unknown order sent."}`, http.StatusBadRequest)
			return
		}
		out := make([]map[string]any, 0, f.openOrders)
		for i := 0; i < f.openOrders; i++ {
			out = append(out, map[string]any{"symbol": "ETHUSDT", "orderId": 100 + i})
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeBinance) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, APIKey: "testkey", APISecret: testSecret})
}

func TestPing(t *testing.T) {
	c := newTestClient(t, &fakeBinance{t: t, mainBalance: "150"})
	require.NoError(t, c.Ping(context.Background()))
}

func TestSetupRegistersInstruments(t *testing.T) {
	c := newTestClient(t, &fakeBinance{t: t, mainBalance: "150"})
	require.NoError(t, c.Setup(context.Background(), "USDT", decimal.NewFromInt(100)))

	registry := c.Registry()
	require.Equal(t, 2, registry.Len(), "only tradable USDT pairs with complete filters register")

	eth, err := registry.ByName("ETH")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", eth.Symbol)
	assert.True(t, eth.IsBaseAsset)
	assert.Equal(t, exchange.SideBuy, eth.BuySide)
	assert.Contains(t, eth.Symbol, "USDT")
	assert.Equal(t, "0.001", eth.QuantityStep.String())
	assert.Equal(t, "2000", eth.StartPrice.String())

	try, err := registry.BySymbol("USDTTRY")
	require.NoError(t, err)
	assert.Equal(t, "TRY", try.Name)
	assert.False(t, try.IsBaseAsset)
	assert.Equal(t, exchange.SideSell, try.BuySide, "buying TRY sells the USDTTRY pair")
	assert.Equal(t, "0.1", try.QuantityStep.String(), "inverted pair steps by quote precision, not LOT_SIZE")
	assert.Equal(t, "1", try.MinQuantity.String(), "inverted pair minimum comes from the notional floor")

	// Setup froze the registry.
	assert.Error(t, registry.Register(eth))
}

func TestSetupInsufficientBalance(t *testing.T) {
	c := newTestClient(t, &fakeBinance{t: t, mainBalance: "50"})
	err := c.Setup(context.Background(), "USDT", decimal.NewFromInt(100))
	require.ErrorIs(t, err, exchange.ErrInsufficientBalance)
	assert.Equal(t, 0, c.Registry().Len(), "nothing registers on a failed setup")
}

func TestBuyThenLimitSellRoundTrip(t *testing.T) {
	fake := &fakeBinance{t: t, mainBalance: "150"}
	c := newTestClient(t, fake)
	ctx := context.Background()
	require.NoError(t, c.Setup(ctx, "USDT", decimal.NewFromInt(100)))
	eth, err := c.Registry().ByName("ETH")
	require.NoError(t, err)

	fills, err := c.Buy(ctx, eth, decimal.RequireFromString("99"))
	require.NoError(t, err)
	require.Len(t, fills, 2)
	total := fills.TotalQuantity()
	assert.Equal(t, "0.049", total.String())

	// The aggregated quantity, quantized, is valid limit-sell input.
	ack, err := c.PlaceLimitSell(ctx, eth, eth.QuantizeQuantity(total), decimal.RequireFromString("2100.005"))
	require.NoError(t, err)
	assert.Equal(t, "limit-1", ack.OrderID)

	placed := fake.orders[len(fake.orders)-1]
	assert.Equal(t, "SELL", placed.Get("side"))
	assert.Equal(t, "0.049", placed.Get("quantity"))
	assert.Equal(t, "2100", placed.Get("price"), "price quantized to the tick size")
	assert.Equal(t, "GTC", placed.Get("timeInForce"))
}

func TestMarketOrderUnits(t *testing.T) {
	fake := &fakeBinance{t: t, mainBalance: "150"}
	c := newTestClient(t, fake)
	ctx := context.Background()
	require.NoError(t, c.Setup(ctx, "USDT", decimal.NewFromInt(100)))

	eth, err := c.Registry().ByName("ETH")
	require.NoError(t, err)
	try, err := c.Registry().ByName("TRY")
	require.NoError(t, err)

	tests := []struct {
		name      string
		inst      *exchange.Instrument
		buy       bool
		qty       string
		wantSide  string
		wantParam string
	}{
		{"buy on base pair spends quote funds", eth, true, "99", "BUY", "quoteOrderQty"},
		{"sell on base pair sends base size", eth, false, "0.05", "SELL", "quantity"},
		{"buy on inverted pair sends base size", try, true, "99", "SELL", "quantity"},
		{"sell on inverted pair spends quote funds", try, false, "50", "BUY", "quoteOrderQty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.buy {
				_, err = c.Buy(ctx, tt.inst, decimal.RequireFromString(tt.qty))
			} else {
				_, err = c.Sell(ctx, tt.inst, decimal.RequireFromString(tt.qty))
			}
			require.NoError(t, err)
			sent := fake.orders[len(fake.orders)-1]
			assert.Equal(t, tt.wantSide, sent.Get("side"))
			assert.NotEmpty(t, sent.Get(tt.wantParam), "expected %s to carry the amount", tt.wantParam)
		})
	}
}

func TestMarketFillInvertedPair(t *testing.T) {
	fake := &fakeBinance{t: t, mainBalance: "150"}
	c := newTestClient(t, fake)
	ctx := context.Background()
	require.NoError(t, c.Setup(ctx, "USDT", decimal.NewFromInt(100)))
	try, err := c.Registry().ByName("TRY")
	require.NoError(t, err)

	// The wire fill is 110 USDT (base) at 25 TRY per USDT; the caller must see
	// 2750 TRY acquired at 0.04 USDT each, the same units the other backend
	// reports for this trade.
	fills, err := c.Buy(ctx, try, decimal.NewFromInt(110))
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, "2750", fills[0].Quantity.String(), "quantity runs in the instrument's asset")
	assert.Equal(t, "0.04", fills[0].Price.String(), "price is main asset per coin")
}

func TestBuyRejected(t *testing.T) {
	fake := &fakeBinance{t: t, mainBalance: "150"}
	c := newTestClient(t, fake)
	inst := &exchange.Instrument{
		Name: "REJECT", Symbol: "REJECTUSDT",
		SellSide: exchange.SideSell, BuySide: exchange.SideBuy, IsBaseAsset: true,
		QuantityStep: decimal.RequireFromString("0.001"),
	}
	_, err := c.Buy(context.Background(), inst, decimal.NewFromInt(10))
	var rejected *exchange.OrderRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadRequest, rejected.Status)
	assert.Equal(t, "-2010", rejected.Code)
	assert.NotEmpty(t, rejected.Raw)
}

func TestBuyBelowMinimumFailsFast(t *testing.T) {
	fake := &fakeBinance{t: t, mainBalance: "150"}
	c := newTestClient(t, fake)
	inst := &exchange.Instrument{
		Name: "ETH", Symbol: "ETHUSDT",
		SellSide: exchange.SideSell, BuySide: exchange.SideBuy, IsBaseAsset: true,
		QuantityStep: decimal.RequireFromString("0.001"),
		MinQuantity:  decimal.RequireFromString("0.01"),
	}
	_, err := c.Buy(context.Background(), inst, decimal.RequireFromString("0.005"))
	var invalid *exchange.ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Empty(t, fake.orders, "validation must happen before any request")
}

func TestCancelAllNoOpenOrders(t *testing.T) {
	fake := &fakeBinance{t: t, mainBalance: "150", openOrders: 0}
	c := newTestClient(t, fake)
	result, err := c.CancelAllOrders(context.Background(), ethTestInstrument())
	require.NoError(t, err, "nothing to cancel is not an error")
	assert.Equal(t, 0, result.Count())
}

func TestCancelAllReturnsIDs(t *testing.T) {
	fake := &fakeBinance{t: t, mainBalance: "150", openOrders: 2}
	c := newTestClient(t, fake)
	result, err := c.CancelAllOrders(context.Background(), ethTestInstrument())
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "101"}, result.OrderIDs)
}

func TestBalance(t *testing.T) {
	c := newTestClient(t, &fakeBinance{t: t, mainBalance: "150"})
	ctx := context.Background()

	free, err := c.Balance(ctx, exchange.AssetName("ETH"))
	require.NoError(t, err)
	assert.Equal(t, "0.5", free.String())

	// Instrument references resolve to the underlying asset name.
	free, err = c.Balance(ctx, ethTestInstrument())
	require.NoError(t, err)
	assert.Equal(t, "0.5", free.String())

	_, err = c.Balance(ctx, exchange.AssetName("DOGE"))
	assert.True(t, errors.Is(err, exchange.ErrAssetNotFound))
}

func TestTopOfBook(t *testing.T) {
	c := newTestClient(t, &fakeBinance{t: t, mainBalance: "150"})
	ctx := context.Background()

	book, err := c.TopOfBook(ctx, ethTestInstrument())
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", book.Symbol)
	assert.Equal(t, "1999.99", book.BidPrice.String())
	assert.Equal(t, "2000.01", book.AskPrice.String())

	unknown := ethTestInstrument()
	unknown.Symbol = "NOPEUSDT"
	_, err = c.TopOfBook(ctx, unknown)
	assert.True(t, errors.Is(err, exchange.ErrSymbolNotFound))
}

func ethTestInstrument() *exchange.Instrument {
	return &exchange.Instrument{
		Name: "ETH", Symbol: "ETHUSDT",
		SellSide: exchange.SideSell, BuySide: exchange.SideBuy, IsBaseAsset: true,
		QuantityStep: decimal.RequireFromString("0.001"),
		PriceStep:    decimal.RequireFromString("0.01"),
		MinQuantity:  decimal.RequireFromString("0.001"),
	}
}
