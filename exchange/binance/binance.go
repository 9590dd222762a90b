// Package binance implements the exchange contract against the Binance spot
// REST API. Market orders fill synchronously: the order response already
// carries the fills, so no confirmation polling is needed on this backend.
package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tradebot/goswap/exchange"
	"github.com/tradebot/goswap/pkg/httpclient"
	"github.com/tradebot/goswap/pkg/logger"
	"github.com/tradebot/goswap/pkg/ratelimit"
)

// DefaultBaseURL is the production spot API host.
const DefaultBaseURL = "https://api.binance.com"

const headerAPIKey = "X-MBX-APIKEY"

// Options configures a Client.
type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL   string
	APIKey    string
	APISecret string

	// Live marks the client as pointed at real funds; mutating requests log a
	// warning when set.
	Live bool
}

// Client talks to Binance. It satisfies exchange.Exchange.
type Client struct {
	http      *httpclient.Client
	signer    *signer
	live      bool
	mainAsset string
	registry  *exchange.Registry
	log       *logrus.Entry
}

var _ exchange.Exchange = (*Client)(nil)

// New creates a Binance client. Call Ping to verify connectivity and Setup
// before trading.
func New(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		http:     httpclient.New(base).WithLimiter(ratelimit.ForBinance()),
		signer:   newSigner(opts.APIKey, opts.APISecret),
		live:     opts.Live,
		registry: exchange.NewRegistry(),
		log:      logger.WithComponent("binance"),
	}
}

// Registry returns the instruments discovered by Setup.
func (c *Client) Registry() *exchange.Registry { return c.registry }

// Ping checks the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/v3/ping", nil, false)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return errors.Errorf("ping: status %d", resp.StatusCode())
	}
	return nil
}

// Setup checks the main asset balance, then registers every tradable pair
// that quotes or bases the main asset.
func (c *Client) Setup(ctx context.Context, mainAsset string, requiredAmount decimal.Decimal) error {
	own, err := c.Balance(ctx, exchange.AssetName(mainAsset))
	if err != nil {
		return errors.Wrap(err, "setup")
	}
	c.log.Infof("account holds %s %s", own, mainAsset)
	if own.LessThan(requiredAmount) {
		return errors.Wrapf(exchange.ErrInsufficientBalance, "have %s %s, need %s", own, mainAsset, requiredAmount)
	}

	var info exchangeInfoResponse
	if err := c.getJSON(ctx, "/api/v3/exchangeInfo", nil, false, &info); err != nil {
		return errors.Wrap(err, "setup: exchange info")
	}
	var tickers []tickerPrice
	if err := c.getJSON(ctx, "/api/v3/ticker/price", nil, false, &tickers); err != nil {
		return errors.Wrap(err, "setup: prices")
	}
	prices := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		prices[t.Symbol] = t.Price
	}

	registry := exchange.NewRegistry()
	for _, sym := range info.Symbols {
		if sym.Status != statusTrading {
			continue
		}
		if sym.BaseAsset != mainAsset && sym.QuoteAsset != mainAsset {
			continue
		}
		price, ok := prices[sym.Symbol]
		if !ok {
			c.log.Debugf("no price for %s, skipping", sym.Symbol)
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

// instrumentFromSymbol builds an instrument from exchangeInfo metadata. The
// quantity step and minimum follow the unit the caller's quantities are
// denominated in: LOT_SIZE base units normally, the quote precision and the
// notional floor when the main asset is the pair's base.
func instrumentFromSymbol(sym symbolInfo, mainAsset string, price decimal.Decimal) (*exchange.Instrument, error) {
	var lot, priceFilter, notional *symbolFilter
	for idx := range sym.Filters {
		switch sym.Filters[idx].FilterType {
		case filterLotSize:
			lot = &sym.Filters[idx]
		case filterPrice:
			priceFilter = &sym.Filters[idx]
		case filterNotional, "MIN_" + filterNotional:
			notional = &sym.Filters[idx]
		}
	}
	if lot == nil || priceFilter == nil {
		return nil, errors.Errorf("missing %s or %s filter", filterLotSize, filterPrice)
	}

	isBase := sym.QuoteAsset == mainAsset
	inst := &exchange.Instrument{
		Name:         sym.BaseAsset,
		Symbol:       sym.Symbol,
		SellSide:     exchange.SideSell,
		BuySide:      exchange.SideBuy,
		IsBaseAsset:  isBase,
		QuantityStep: lot.StepSize,
		PriceStep:    priceFilter.TickSize,
		MinQuantity:  lot.MinQty,
		StartPrice:   price,
	}
	if !isBase {
		inst.Name = sym.QuoteAsset
		inst.SellSide = exchange.SideBuy
		inst.BuySide = exchange.SideSell
		// Quantities run in quote units on these pairs, so LOT_SIZE does not
		// apply to them.
		inst.QuantityStep = decimal.New(1, -sym.QuoteAssetPrecision)
		inst.MinQuantity = decimal.Zero
		if notional != nil {
			inst.MinQuantity = notional.MinNotional
		}
	}
	if err := inst.Validate(mainAsset); err != nil {
		return nil, err
	}
	return inst, nil
}

// Buy market-buys the instrument's asset, spending quantity main asset.
func (c *Client) Buy(ctx context.Context, inst *exchange.Instrument, quantity decimal.Decimal) (exchange.Fills, error) {
	return c.marketOrder(ctx, inst, inst.BuySide, quantity)
}

// Sell market-sells quantity of the instrument's asset.
func (c *Client) Sell(ctx context.Context, inst *exchange.Instrument, quantity decimal.Decimal) (exchange.Fills, error) {
	return c.marketOrder(ctx, inst, inst.SellSide, quantity)
}

func (c *Client) marketOrder(ctx context.Context, inst *exchange.Instrument, side exchange.Side, quantity decimal.Decimal) (exchange.Fills, error) {
	qty := inst.QuantizeQuantity(quantity)
	if err := checkMinQuantity(inst, qty); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", inst.Symbol)
	params.Set("type", "MARKET")
	params.Set("side", side.Upper())
	// A wire-level BUY spends the quote asset, so its quantity travels as
	// quote funds; a SELL disposes base units and travels as base size.
	if side == exchange.SideBuy {
		params.Set("quoteOrderQty", qty.String())
	} else {
		params.Set("quantity", qty.String())
	}
	c.log.Infof("market %s %s qty=%s", side, inst.Symbol, qty)

	resp, err := c.do(ctx, http.MethodPost, "/api/v3/order", params, true)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, rejection(resp)
	}
	var order orderResponse
	if err := json.Unmarshal(resp.Body(), &order); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	fills := make(exchange.Fills, 0, len(order.Fills))
	for _, f := range order.Fills {
		fills = append(fills, orientFill(inst, f))
	}
	return fills, nil
}

// orientFill converts a wire fill into the instrument's asset. Wire fills
// report base quantity at a quote-per-base price; on a pair where the main
// asset is the base, the instrument's asset is the quote, so the quantity
// becomes qty*price and the price inverts. Both backends then report the same
// units for the same trade.
func orientFill(inst *exchange.Instrument, f orderFill) exchange.Fill {
	if inst.IsBaseAsset || f.Price.IsZero() {
		return exchange.Fill{Quantity: f.Qty, Price: f.Price}
	}
	return exchange.Fill{
		Quantity: f.Qty.Mul(f.Price),
		Price:    decimal.NewFromInt(1).Div(f.Price),
	}
}

// PlaceLimitSell places a GTC limit order on the instrument's sell side.
func (c *Client) PlaceLimitSell(ctx context.Context, inst *exchange.Instrument, quantity, price decimal.Decimal) (*exchange.OrderAck, error) {
	qty := inst.QuantizeQuantity(quantity)
	px := inst.QuantizePrice(price)
	if err := checkMinQuantity(inst, qty); err != nil {
		return nil, err
	}
	if !px.IsPositive() {
		return nil, &exchange.ValidationError{Field: "price", Reason: "must be positive"}
	}

	params := url.Values{}
	params.Set("symbol", inst.Symbol)
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("side", inst.SellSide.Upper())
	params.Set("quantity", qty.String())
	params.Set("price", px.String())
	c.log.Infof("limit %s %s qty=%s price=%s", inst.SellSide, inst.Symbol, qty, px)

	resp, err := c.do(ctx, http.MethodPost, "/api/v3/order", params, true)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, rejection(resp)
	}
	var order orderResponse
	if err := json.Unmarshal(resp.Body(), &order); err != nil {
		return nil, errors.Wrap(err, "decode order response")
	}
	return &exchange.OrderAck{OrderID: order.ClientOrderID, Raw: resp.Body()}, nil
}

// CancelAllOrders cancels every open order on the pair. Binance answers a
// pair with no open orders with code -2011; that is normalized to an empty
// result so both backends agree.
func (c *Client) CancelAllOrders(ctx context.Context, inst *exchange.Instrument) (exchange.CancelResult, error) {
	params := url.Values{}
	params.Set("symbol", inst.Symbol)

	resp, err := c.do(ctx, http.MethodDelete, "/api/v3/openOrders", params, true)
	if err != nil {
		return exchange.CancelResult{}, err
	}
	if !resp.IsSuccess() {
		var apiErr apiError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Code == codeNoOpenOrders {
			return exchange.CancelResult{}, nil
		}
		return exchange.CancelResult{}, rejection(resp)
	}
	var cancelled []cancelledOrder
	if err := json.Unmarshal(resp.Body(), &cancelled); err != nil {
		return exchange.CancelResult{}, errors.Wrap(err, "decode cancel response")
	}
	result := exchange.CancelResult{}
	for _, o := range cancelled {
		result.OrderIDs = append(result.OrderIDs, strconv.FormatInt(o.OrderID, 10))
	}
	return result, nil
}

// Balance returns the free balance of the referenced asset.
func (c *Client) Balance(ctx context.Context, ref exchange.BalanceRef) (decimal.Decimal, error) {
	var account accountResponse
	if err := c.getJSON(ctx, "/api/v3/account", url.Values{}, true, &account); err != nil {
		return decimal.Zero, err
	}
	name := ref.AssetName()
	for _, b := range account.Balances {
		if b.Asset == name {
			return b.Free, nil
		}
	}
	return decimal.Zero, errors.Wrap(exchange.ErrAssetNotFound, name)
}

// TopOfBook returns the best bid and ask for the instrument's pair.
func (c *Client) TopOfBook(ctx context.Context, inst *exchange.Instrument) (exchange.TopOfBook, error) {
	params := url.Values{}
	params.Set("symbol", inst.Symbol)
	resp, err := c.do(ctx, http.MethodGet, "/api/v3/ticker/bookTicker", params, false)
	if err != nil {
		return exchange.TopOfBook{}, err
	}
	if !resp.IsSuccess() {
		return exchange.TopOfBook{}, errors.Wrap(exchange.ErrSymbolNotFound, inst.Symbol)
	}
	var book bookTickerResponse
	if err := json.Unmarshal(resp.Body(), &book); err != nil {
		return exchange.TopOfBook{}, errors.Wrap(err, "decode book ticker")
	}
	return exchange.TopOfBook{
		Symbol:   inst.Symbol,
		BidPrice: book.BidPrice,
		AskPrice: book.AskPrice,
	}, nil
}

// do sends one request. Signed requests get the stamped, signed query and the
// API key header; the query string is passed through verbatim so the bytes on
// the wire match the bytes that were signed.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool) (*resty.Response, error) {
	if c.live && method != http.MethodGet {
		c.log.Warn("LIVE order traffic")
	}

	opt := &httpclient.RequestOptions{}
	pathWithQuery := path
	if signed {
		if params == nil {
			params = url.Values{}
		}
		pathWithQuery = path + "?" + c.signer.signedQuery(params)
		opt.Headers = map[string]string{headerAPIKey: c.signer.apiKey}
	} else if len(params) > 0 {
		pathWithQuery = path + "?" + params.Encode()
	}
	return c.http.Do(ctx, method, pathWithQuery, opt)
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, signed bool, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, params, signed)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		var apiErr apiError
		_ = json.Unmarshal(resp.Body(), &apiErr)
		return errors.Errorf("GET %s: status %d code %d: %s", path, resp.StatusCode(), apiErr.Code, apiErr.Msg)
	}
	return errors.Wrapf(json.Unmarshal(resp.Body(), out), "decode %s", path)
}

// rejection normalizes a non-2xx order response into an OrderRejectedError.
func rejection(resp *resty.Response) error {
	var apiErr apiError
	_ = json.Unmarshal(resp.Body(), &apiErr)
	return &exchange.OrderRejectedError{
		Status:  resp.StatusCode(),
		Code:    strconv.Itoa(apiErr.Code),
		Message: apiErr.Msg,
		Raw:     resp.Body(),
	}
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
