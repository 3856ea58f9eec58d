package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laddersim/internal/domain"
	"laddersim/internal/engine"
	"laddersim/internal/ladder"
	"laddersim/internal/market"
	"laddersim/internal/util"
)

func newTestModel(t *testing.T) (Model, *engine.Engine) {
	t.Helper()
	prices := market.NewSeriesSet(
		market.NewSeries(domain.NewInstrument("600001", "测试股份"), []domain.DailyBar{
			{Date: "2024-01-02", Open: 10.0, Close: 10.0, Low: 9.9, High: 10.1},
			{Date: "2024-01-03", Open: 10.5, Close: 11.0, Low: 10.4, High: 11.0},
			{Date: "2024-01-04", Open: 11.2, Close: 12.0, Low: 11.0, High: 12.1},
		}),
	)
	stock := func(days int) domain.LadderStock {
		return domain.LadderStock{Code: "600001", Name: "测试股份", Price: 10, LimitUpDays: days, ConceptThemes: []string{"AI"}}
	}
	feed := ladder.NewFeed(map[string]map[string][]domain.LadderStock{
		"20240102": {"1": {stock(1)}},
		"20240103": {"2": {stock(2)}},
		"20240104": {"3": {stock(3)}},
	})
	eng, err := engine.New(prices, feed, engine.DefaultParams(),
		engine.WithLogger(util.NopLogger()),
		engine.WithClock(func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)

	m := New(eng, nil, util.NopLogger())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), eng
}

func press(t *testing.T, m Model, key string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return next.(Model)
}

func TestKeysDriveEngine(t *testing.T) {
	m, eng := newTestModel(t)

	m = press(t, m, "c")
	assert.False(t, m.statusErr, m.status)
	orders := eng.Orders(engine.Filter{Status: domain.StatusPending})
	require.Len(t, orders, 1)
	assert.Equal(t, 11.0, orders[0].TriggerPrice)
	assert.Equal(t, int64(100), orders[0].Quantity)

	m = press(t, m, "x")
	assert.Empty(t, eng.Orders(engine.Filter{Status: domain.StatusPending}))

	m = press(t, m, "a")
	require.Len(t, eng.Trades(engine.Filter{Status: domain.StatusPending}), 1)

	m = press(t, m, "n")
	assert.Equal(t, "2024-01-03", eng.CurrentDay())
	assert.Contains(t, m.status, "filled")

	// Bought today.
	m = press(t, m, "s")
	assert.True(t, m.statusErr)

	m = press(t, m, "n")
	m = press(t, m, "s")
	assert.False(t, m.statusErr, m.status)
	assert.Empty(t, eng.Account().Positions)

	m = press(t, m, "p")
	assert.Equal(t, "2024-01-03", eng.CurrentDay())
}

func TestFilterAndSelection(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Len(t, m.stocks(), 1)

	m = press(t, m, "f") // 1 board
	assert.Len(t, m.stocks(), 1)
	m = press(t, m, "f") // 2 boards
	assert.Empty(t, m.stocks())

	// Nothing selected: buy keys are no-ops.
	m = press(t, m, "a")
	assert.True(t, strings.HasPrefix(m.status, "filter"), m.status)

	for range filters {
		m = press(t, m, "f")
	}
	assert.Equal(t, 2, m.filterIdx)
}

func TestViewRenders(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "a")

	v := m.View()
	assert.Contains(t, v, "laddersim")
	assert.Contains(t, v, "2024-01-02")
	assert.Contains(t, m.renderContent(), "Next day 2024-01-03")
	assert.Contains(t, m.renderContent(), "600001")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "89,495.00", FormatMoney(89495))
	assert.Equal(t, "1,000", FormatQty(1000))
	assert.Equal(t, "-", FormatPrice(0))
	assert.Equal(t, "+0.50%", FormatPct(0.5))
	assert.Equal(t, "-1.00%", FormatPct(-1))

	assert.Equal(t, "测试  ", fit("测试", 6))
	assert.Equal(t, "测试", fit("测试股份", 4))
	assert.Equal(t, 5, len(padOrTrunc("abc", 5)))
	assert.Equal(t, "ab", padOrTrunc("abc", 2))
}
