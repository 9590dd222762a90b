// Command price-watcher renders the live top of book for one Binance pair in
// the terminal. Press q or ctrl-c to quit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/tradebot/goswap/exchange/stream"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	bidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2"))

	askStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// updateMsg carries one top-of-book change into the update loop.
type updateMsg stream.BookTickerUpdate

// feedErrMsg reports the error that stopped the feed.
type feedErrMsg struct{ err error }

type model struct {
	symbol string
	feed   *stream.BookTicker

	last   *stream.BookTickerUpdate
	lastAt time.Time
	err    error
}

func newModel(symbol string, feed *stream.BookTicker) model {
	return model{symbol: symbol, feed: feed}
}

// waitForUpdate blocks on the feed and turns whatever arrives first into a
// message.
func waitForUpdate(feed *stream.BookTicker) tea.Cmd {
	return func() tea.Msg {
		select {
		case update, ok := <-feed.Updates():
			if !ok {
				return feedErrMsg{errors.New("feed closed")}
			}
			return updateMsg(update)
		case err := <-feed.Err():
			return feedErrMsg{err}
		}
	}
}

func (m model) Init() tea.Cmd {
	return waitForUpdate(m.feed)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.feed.Close()
			return m, tea.Quit
		}

	case updateMsg:
		update := stream.BookTickerUpdate(msg)
		m.last = &update
		m.lastAt = time.Now()
		return m, waitForUpdate(m.feed)

	case feedErrMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	title := titleStyle.Render(" " + m.symbol + " book ticker ")

	var body string
	switch {
	case m.err != nil:
		body = askStyle.Render("feed stopped: " + m.err.Error())
	case m.last == nil:
		body = dimStyle.Render("waiting for the first update...")
	default:
		spread := m.last.AskPrice.Sub(m.last.BidPrice)
		body = lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("%s  %s x %s",
				bidStyle.Render("bid"), bidStyle.Render(m.last.BidPrice.String()), m.last.BidQty.String()),
			fmt.Sprintf("%s  %s x %s",
				askStyle.Render("ask"), askStyle.Render(m.last.AskPrice.String()), m.last.AskQty.String()),
			dimStyle.Render("spread "+spread.String()+"  at "+m.lastAt.Format("15:04:05.000")),
		)
	}

	help := dimStyle.Render("q to quit")
	return lipgloss.JoinVertical(lipgloss.Left, title, frameStyle.Render(body), help) + "\n"
}

func main() {
	symbolFlag := flag.String("symbol", "BTCUSDT", "trading pair to watch")
	flag.Parse()
	symbol := strings.ToUpper(*symbolFlag)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := stream.NewBookTicker(symbol)
	if err := feed.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "start feed: %v\n", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(newModel(symbol, feed)).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "price-watcher: %v\n", err)
		os.Exit(1)
	}
}
