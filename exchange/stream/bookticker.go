// Package stream provides a websocket feed of Binance top-of-book updates.
// It complements the REST TopOfBook read for callers that want a live view;
// nothing in the adapter layer depends on it.
package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tradebot/goswap/pkg/logger"
)

// DefaultEndpoint is Binance's raw-stream websocket host.
const DefaultEndpoint = "wss://stream.binance.com:9443/ws"

// BookTickerUpdate is one best-bid/ask change on a pair.
type BookTickerUpdate struct {
	Symbol   string
	BidPrice decimal.Decimal
	BidQty   decimal.Decimal
	AskPrice decimal.Decimal
	AskQty   decimal.Decimal
}

// bookTickerMessage is the wire shape of a <symbol>@bookTicker event.
type bookTickerMessage struct {
	UpdateID int64           `json:"u"`
	Symbol   string          `json:"s"`
	BidPrice decimal.Decimal `json:"b"`
	BidQty   decimal.Decimal `json:"B"`
	AskPrice decimal.Decimal `json:"a"`
	AskQty   decimal.Decimal `json:"A"`
}

// BookTicker streams top-of-book updates for one symbol.
type BookTicker struct {
	endpoint string
	symbol   string

	conn    *websocket.Conn
	updates chan BookTickerUpdate
	errs    chan error

	startOnce sync.Once
	closeOnce sync.Once
	log       *logrus.Entry
}

// NewBookTicker creates a feed for the given pair symbol (e.g. "ETHUSDT").
func NewBookTicker(symbol string) *BookTicker {
	return &BookTicker{
		endpoint: DefaultEndpoint,
		symbol:   symbol,
		updates:  make(chan BookTickerUpdate, 64),
		errs:     make(chan error, 1),
		log:      logger.WithComponent("stream"),
	}
}

// SetEndpoint overrides the websocket host, mainly for tests.
func (bt *BookTicker) SetEndpoint(endpoint string) { bt.endpoint = endpoint }

// Start connects and begins delivering updates. The feed stops when ctx is
// cancelled, Close is called or the connection drops; the terminating error
// is available on Err.
func (bt *BookTicker) Start(ctx context.Context) error {
	var err error
	bt.startOnce.Do(func() {
		streamURL := bt.endpoint + "/" + strings.ToLower(bt.symbol) + "@bookTicker"
		var conn *websocket.Conn
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
		if err != nil {
			err = errors.Wrapf(err, "dial %s", streamURL)
			return
		}
		bt.conn = conn
		bt.log.Infof("subscribed to %s book ticker", bt.symbol)

		go func() {
			<-ctx.Done()
			bt.Close()
		}()
		go bt.readLoop()
	})
	return err
}

// Updates delivers the stream. The channel closes when the feed stops.
func (bt *BookTicker) Updates() <-chan BookTickerUpdate { return bt.updates }

// Err reports the error that stopped the feed, if any.
func (bt *BookTicker) Err() <-chan error { return bt.errs }

// Close tears the connection down.
func (bt *BookTicker) Close() {
	bt.closeOnce.Do(func() {
		if bt.conn != nil {
			_ = bt.conn.Close()
		}
	})
}

func (bt *BookTicker) readLoop() {
	defer close(bt.updates)
	for {
		var msg bookTickerMessage
		if err := bt.conn.ReadJSON(&msg); err != nil {
			select {
			case bt.errs <- err:
			default:
			}
			return
		}
		update := BookTickerUpdate{
			Symbol:   msg.Symbol,
			BidPrice: msg.BidPrice,
			BidQty:   msg.BidQty,
			AskPrice: msg.AskPrice,
			AskQty:   msg.AskQty,
		}
		select {
		case bt.updates <- update:
		default:
			// Slow consumer; drop the stale update.
		}
	}
}
