// Package kucoin implements the exchange contract against the KuCoin v1 REST
// API. Market orders only return an order id; the client polls the order
// until it leaves the active state and derives the fill from the reported
// deal size and deal funds. Unlike Binance, pairs where the main asset is the
// base currency need their limit prices and quantities inverted, because
// KuCoin always quotes in base/quote terms.
package kucoin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tradebot/goswap/exchange"
	"github.com/tradebot/goswap/pkg/httpclient"
	"github.com/tradebot/goswap/pkg/logger"
	"github.com/tradebot/goswap/pkg/ratelimit"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.kucoin.com"

const (
	// DefaultFillTimeout bounds how long a market order may stay active
	// before the client gives up with ErrOrderTimeout.
	DefaultFillTimeout = 2 * time.Minute

	pollInitialDelay = 250 * time.Millisecond
	pollMaxDelay     = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL       string
	APIKey        string
	APISecret     string
	APIPassphrase string

	// Live marks the client as pointed at real funds; mutating requests log a
	// warning when set.
	Live bool

	// FillTimeout overrides DefaultFillTimeout for the fill-confirmation poll.
	FillTimeout time.Duration
}

// Client talks to KuCoin. It satisfies exchange.Exchange.
type Client struct {
	http        *httpclient.Client
	signer      *signer
	live        bool
	fillTimeout time.Duration
	mainAsset   string
	registry    *exchange.Registry
	log         *logrus.Entry
}

var _ exchange.Exchange = (*Client)(nil)

// New creates a KuCoin client. Call Ping and CheckAuth to verify connectivity
// and credentials, and Setup before trading.
func New(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.FillTimeout
	if timeout <= 0 {
		timeout = DefaultFillTimeout
	}
	return &Client{
		http:        httpclient.New(base).WithLimiter(ratelimit.ForKucoin()),
		signer:      newSigner(opts.APIKey, opts.APISecret, opts.APIPassphrase),
		live:        opts.Live,
		fillTimeout: timeout,
		registry:    exchange.NewRegistry(),
		log:         logger.WithComponent("kucoin"),
	}
}

// Registry returns the instruments discovered by Setup.
func (c *Client) Registry() *exchange.Registry { return c.registry }

// Ping checks the API is reachable via the public timestamp endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodGet, "/api/v1/timestamp", nil, nil, false)
	return errors.Wrap(err, "ping")
}

// CheckAuth verifies the credentials by hitting a signed endpoint.
func (c *Client) CheckAuth(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodGet, "/api/v1/sub/user", nil, nil, true)
	return errors.Wrap(err, "auth check")
}

// Setup checks the main asset balance, then registers every enabled pair that
// quotes or bases the main asset.
func (c *Client) Setup(ctx context.Context, mainAsset string, requiredAmount decimal.Decimal) error {
	own, err := c.Balance(ctx, exchange.AssetName(mainAsset))
	if err != nil {
		return errors.Wrap(err, "setup")
	}
	c.log.Infof("account holds %s %s", own, mainAsset)
	if own.LessThan(requiredAmount) {
		return errors.Wrapf(exchange.ErrInsufficientBalance, "have %s %s, need %s", own, mainAsset, requiredAmount)
	}

	tickersRaw, err := c.call(ctx, http.MethodGet, "/api/v1/market/allTickers", nil, nil, false)
	if err != nil {
		return errors.Wrap(err, "setup: tickers")
	}
	var tickers allTickersData
	if err := json.Unmarshal(tickersRaw, &tickers); err != nil {
		return errors.Wrap(err, "setup: decode tickers")
	}
	prices := make(map[string]decimal.Decimal, len(tickers.Ticker))
	for _, t := range tickers.Ticker {
		prices[t.Symbol] = t.Last
	}

	symbolsRaw, err := c.call(ctx, http.MethodGet, "/api/v1/symbols", nil, nil, false)
	if err != nil {
		return errors.Wrap(err, "setup: symbols")
	}
	var symbols []symbolInfo
	if err := json.Unmarshal(symbolsRaw, &symbols); err != nil {
		return errors.Wrap(err, "setup: decode symbols")
	}

	registry := exchange.NewRegistry()
	for _, sym := range symbols {
		if sym.BaseCurrency != mainAsset && sym.QuoteCurrency != mainAsset {
			continue
		}
		if !sym.EnableTrading {
			c.log.Debugf("%s trading disabled, skipping", sym.Symbol)
			continue
		}
		price, ok := prices[sym.Symbol]
		if !ok {
			c.log.Debugf("no ticker for %s, skipping", sym.Symbol)
			continue
		}
		inst, err := instrumentFromSymbol(sym, mainAsset, price)
		if err != nil {
			c.log.Debugf("skipping %s: %v", sym.Symbol, err)
			continue
		}
		if err := registry.Register(inst); err != nil {
			c.log.Warnf("skipping %s: %v", sym.Symbol, err)
		}
	}
	registry.Freeze()

	c.registry = registry
	c.mainAsset = mainAsset
	c.log.Infof("registered %d instruments against %s", registry.Len(), mainAsset)
	return nil
}

// instrumentFromSymbol builds an instrument from pair metadata. The quantity
// step and minimum follow the unit the caller's quantities are denominated
// in: base increments when the main asset is the quote, quote increments when
// it is the base.
func instrumentFromSymbol(sym symbolInfo, mainAsset string, price decimal.Decimal) (*exchange.Instrument, error) {
	isBase := sym.QuoteCurrency == mainAsset
	inst := &exchange.Instrument{
		Name:         sym.BaseCurrency,
		Symbol:       sym.Symbol,
		SellSide:     exchange.SideSell,
		BuySide:      exchange.SideBuy,
		IsBaseAsset:  isBase,
		QuantityStep: sym.BaseIncrement,
		PriceStep:    sym.PriceIncrement,
		MinQuantity:  sym.BaseMinSize,
		StartPrice:   price,
	}
	if !isBase {
		inst.Name = sym.QuoteCurrency
		inst.SellSide = exchange.SideBuy
		inst.BuySide = exchange.SideSell
		inst.QuantityStep = sym.QuoteIncrement
		inst.MinQuantity = sym.QuoteMinSize
	}
	if err := inst.Validate(mainAsset); err != nil {
		return nil, err
	}
	return inst, nil
}

// Buy market-buys the instrument's asset, spending quantity main asset.
func (c *Client) Buy(ctx context.Context, inst *exchange.Instrument, quantity decimal.Decimal) (exchange.Fills, error) {
	return c.marketOrder(ctx, inst, true, quantity)
}

// Sell market-sells quantity of the instrument's asset.
func (c *Client) Sell(ctx context.Context, inst *exchange.Instrument, quantity decimal.Decimal) (exchange.Fills, error) {
	return c.marketOrder(ctx, inst, false, quantity)
}

func (c *Client) marketOrder(ctx context.Context, inst *exchange.Instrument, buying bool, quantity decimal.Decimal) (exchange.Fills, error) {
	qty := inst.QuantizeQuantity(quantity)
	if err := checkMinQuantity(inst, qty); err != nil {
		return nil, err
	}

	side := inst.SellSide
	if buying {
		side = inst.BuySide
	}
	req := orderRequest{
		ClientOID: uuid.NewString(),
		Side:      string(side),
		Symbol:    inst.Symbol,
		Type:      "market",
		TradeType: tradeTypeSpot,
	}
	// Buying spends the main asset, selling disposes the coin. Whichever of
	// the two is this pair's quote currency travels as funds, the other as
	// base size.
	if buying == inst.IsBaseAsset {
		req.Funds = qty.String()
	} else {
		req.Size = qty.String()
	}
	c.log.Infof("market %s %s qty=%s", side, inst.Symbol, qty)

	data, err := c.call(ctx, http.MethodPost, "/api/v1/orders", nil, &req, true)
	if err != nil {
		return nil, err
	}
	var created orderCreatedData
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	return c.awaitFill(ctx, inst, created.OrderID)
}

// awaitFill polls the order until it leaves the active state, backing off
// exponentially, and converts the deal totals into a fill. The deadline keeps
// a stuck order from blocking forever.
func (c *Client) awaitFill(ctx context.Context, inst *exchange.Instrument, orderID string) (exchange.Fills, error) {
	deadline := time.Now().Add(c.fillTimeout)
	delay := pollInitialDelay
	for {
		data, err := c.call(ctx, http.MethodGet, "/api/v1/orders/"+orderID, nil, nil, true)
		if err != nil {
			return nil, errors.Wrapf(err, "poll order %s", orderID)
		}
		var detail orderDetailData
		if err := json.Unmarshal(data, &detail); err != nil {
			return nil, errors.Wrapf(err, "decode order %s", orderID)
		}
		if !detail.IsActive {
			return fillFromDeal(inst, detail), nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(exchange.ErrOrderTimeout, "order %s still active after %s", orderID, c.fillTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > pollMaxDelay {
			delay = pollMaxDelay
		}
	}
}

// fillFromDeal orients the deal totals the way the caller's quantities run:
// deal size is base units, deal funds quote units. A pair where the main
// asset is the base reports the coin amount in funds, so the roles swap.
func fillFromDeal(inst *exchange.Instrument, detail orderDetailData) exchange.Fills {
	if detail.DealSize.IsZero() || detail.DealFunds.IsZero() {
		return exchange.Fills{}
	}
	if inst.IsBaseAsset {
		return exchange.Fills{{
			Quantity: detail.DealSize,
			Price:    detail.DealFunds.Div(detail.DealSize),
		}}
	}
	return exchange.Fills{{
		Quantity: detail.DealFunds,
		Price:    detail.DealSize.Div(detail.DealFunds),
	}}
}

// PlaceLimitSell places a hidden resting order on the instrument's sell side.
// When the main asset is the pair's base currency the exchange still prices
// in base/quote terms, so the requested price inverts (1/price) and the
// quantity converts to base units (price*quantity), both requantized.
func (c *Client) PlaceLimitSell(ctx context.Context, inst *exchange.Instrument, quantity, price decimal.Decimal) (*exchange.OrderAck, error) {
	if !price.IsPositive() {
		return nil, &exchange.ValidationError{Field: "price", Reason: "must be positive"}
	}
	// The minimum applies to the caller's units, so check before any
	// base/quote inversion.
	qty := inst.QuantizeQuantity(quantity)
	if err := checkMinQuantity(inst, qty); err != nil {
		return nil, err
	}
	px := inst.QuantizePrice(price)
	if !inst.IsBaseAsset {
		qty = inst.QuantizeQuantity(price.Mul(quantity))
		px = inst.QuantizePrice(decimal.NewFromInt(1).Div(price))
	}
	if !px.IsPositive() {
		return nil, &exchange.ValidationError{Field: "price", Reason: "quantizes to zero"}
	}

	req := orderRequest{
		ClientOID: uuid.NewString(),
		Side:      string(inst.SellSide),
		Symbol:    inst.Symbol,
		Type:      "limit",
		TradeType: tradeTypeSpot,
		Price:     px.String(),
		Size:      qty.String(),
		Hidden:    true,
	}
	c.log.Infof("limit %s %s size=%s price=%s", inst.SellSide, inst.Symbol, qty, px)

	data, err := c.call(ctx, http.MethodPost, "/api/v1/orders", nil, &req, true)
	if err != nil {
		return nil, err
	}
	var created orderCreatedData
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	return &exchange.OrderAck{OrderID: created.OrderID, Raw: data}, nil
}

// CancelAllOrders cancels every open spot order on the pair. A pair with
// nothing open yields an empty id list, which is already the unified shape.
func (c *Client) CancelAllOrders(ctx context.Context, inst *exchange.Instrument) (exchange.CancelResult, error) {
	params := url.Values{}
	params.Set("symbol", inst.Symbol)
	params.Set("tradeType", tradeTypeSpot)

	data, err := c.call(ctx, http.MethodDelete, "/api/v1/orders", params, nil, true)
	if err != nil {
		return exchange.CancelResult{}, err
	}
	var cancelled cancelAllData
	if err := json.Unmarshal(data, &cancelled); err != nil {
		return exchange.CancelResult{}, errors.Wrap(err, "decode cancel response")
	}
	return exchange.CancelResult{OrderIDs: cancelled.CancelledOrderIDs}, nil
}

// Balance returns the referenced asset's free trade-account balance. Funds
// held by resting orders are excluded; they are not spendable.
func (c *Client) Balance(ctx context.Context, ref exchange.BalanceRef) (decimal.Decimal, error) {
	data, err := c.call(ctx, http.MethodGet, "/api/v1/accounts", nil, nil, true)
	if err != nil {
		return decimal.Zero, err
	}
	var accounts []accountEntry
	if err := json.Unmarshal(data, &accounts); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode accounts")
	}
	name := ref.AssetName()
	for _, a := range accounts {
		if a.Type == accountTypeTrade && a.Currency == name {
			return a.Available, nil
		}
	}
	return decimal.Zero, errors.Wrap(exchange.ErrAssetNotFound, name)
}

// TopOfBook returns the best bid and ask from the level-1 order book.
func (c *Client) TopOfBook(ctx context.Context, inst *exchange.Instrument) (exchange.TopOfBook, error) {
	params := url.Values{}
	params.Set("symbol", inst.Symbol)
	data, err := c.call(ctx, http.MethodGet, "/api/v1/market/orderbook/level1", params, nil, false)
	if err != nil {
		return exchange.TopOfBook{}, err
	}
	// An unknown symbol still answers code 200000, with null data.
	if len(data) == 0 || string(data) == "null" {
		return exchange.TopOfBook{}, errors.Wrap(exchange.ErrSymbolNotFound, inst.Symbol)
	}
	var level1 level1Data
	if err := json.Unmarshal(data, &level1); err != nil {
		return exchange.TopOfBook{}, errors.Wrap(err, "decode level1")
	}
	return exchange.TopOfBook{
		Symbol:   inst.Symbol,
		BidPrice: level1.BestBid,
		AskPrice: level1.BestAsk,
	}, nil
}

// call sends one request and unwraps the response envelope. GET and DELETE
// carry parameters in the query string and sign with an empty body; POST
// serializes the body once and signs exactly those bytes.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, body any, signed bool) (json.RawMessage, error) {
	if c.live && method != http.MethodGet {
		c.log.Warn("LIVE order traffic")
	}

	pathWithQuery := path
	if len(params) > 0 {
		pathWithQuery = path + "?" + params.Encode()
	}

	opt := &httpclient.RequestOptions{}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode body")
		}
		opt.Body = raw
	}
	if signed {
		opt.Headers = c.signer.headers(method, pathWithQuery, opt.Body)
	}

	resp, err := c.http.Do(ctx, method, pathWithQuery, opt)
	if err != nil {
		return nil, err
	}
	return unwrap(resp, method, path)
}

// unwrap decodes the envelope and normalizes failures. Order placement and
// cancellation failures become OrderRejectedError so the caller sees the
// backend's code and message either way.
func unwrap(resp *resty.Response, method, path string) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, errors.Wrapf(err, "%s %s: status %d", method, path, resp.StatusCode())
	}
	if resp.IsSuccess() && env.Code == codeOK {
		return env.Data, nil
	}
	if path == "/api/v1/orders" {
		return nil, &exchange.OrderRejectedError{
			Status:  resp.StatusCode(),
			Code:    env.Code,
			Message: env.Msg,
			Raw:     resp.Body(),
		}
	}
	return nil, errors.Errorf("%s %s: status %d code %s: %s", method, path, resp.StatusCode(), env.Code, env.Msg)
}

func checkMinQuantity(inst *exchange.Instrument, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return &exchange.ValidationError{Field: "quantity", Reason: "quantizes to zero"}
	}
	if qty.LessThan(inst.MinQuantity) {
		return &exchange.ValidationError{
			Field:  "quantity",
			Reason: "below minimum " + inst.MinQuantity.String() + " for " + inst.Symbol,
		}
	}
	return nil
}
