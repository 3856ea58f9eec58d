// Package tui is the terminal front end of the simulator: the ladder list of
// the simulated day, the account, holdings and the actions that settle next.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"laddersim/internal/domain"
	"laddersim/internal/engine"
	"laddersim/internal/ladder"
	"laddersim/internal/market"
	"laddersim/internal/store"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	codeStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	daysStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // red is up on A-share boards
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	highlightBG    = lipgloss.Color("236")
)

// filters are cycled by the "f" key.
var filters = []int{ladder.FilterAll, 1, 2, 3, 4, ladder.FilterFivePlus}

func filterLabel(days int) string {
	switch days {
	case ladder.FilterAll:
		return "all"
	case ladder.FilterFivePlus:
		return "5+ boards"
	default:
		return fmt.Sprintf("%d board", days)
	}
}

type savedMsg struct{ err error }

// Model is the bubbletea model.
type Model struct {
	eng   *engine.Engine
	snaps store.SnapshotStore // nil disables persistence
	log   *slog.Logger

	viewport      viewport.Model
	ready         bool
	width, height int

	filterIdx int
	selected  int // index into the filtered ladder list
	status    string
	statusErr bool
}

// New creates a model around an initialized engine.
func New(eng *engine.Engine, snaps store.SnapshotStore, log *slog.Logger) Model {
	return Model{eng: eng, snaps: snaps, log: log}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) stocks() []domain.LadderStock {
	return m.eng.Feed().Filter(m.eng.CurrentDay(), filters[m.filterIdx])
}

func (m Model) selectedStock() (domain.LadderStock, bool) {
	list := m.stocks()
	if m.selected < 0 || m.selected >= len(list) {
		return domain.LadderStock{}, false
	}
	return list[m.selected], true
}

func (m *Model) setStatus(msg string, err error) {
	if err != nil {
		m.status, m.statusErr = err.Error(), true
		return
	}
	m.status, m.statusErr = msg, false
}

// saveCmd persists a copy of the current state off the update loop.
func (m Model) saveCmd() tea.Cmd {
	if m.snaps == nil {
		return nil
	}
	snap := m.eng.Snapshot()
	snaps := m.snaps
	return func() tea.Msg {
		return savedMsg{err: snaps.Save(context.Background(), snap)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg.String()); handled {
			if next.ready {
				next.viewport.SetContent(next.renderContent())
			}
			return next, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := max(m.height-3, 1) // header, status, footer
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.log.Error("saving snapshot", "error", msg.err)
			m.setStatus("", fmt.Errorf("saving snapshot: %w", msg.err))
		}
		return m, nil
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// handleKey applies one key press. It reports whether the key was consumed.
func (m Model) handleKey(key string) (Model, tea.Cmd, bool) {
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit, true

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil, true

	case "down", "j":
		if m.selected < len(m.stocks())-1 {
			m.selected++
		}
		return m, nil, true

	case "f":
		m.filterIdx = (m.filterIdx + 1) % len(filters)
		m.selected = 0
		m.setStatus("filter: "+filterLabel(filters[m.filterIdx]), nil)
		return m, nil, true

	case "n", "p":
		var (
			events []domain.Event
			err    error
		)
		if key == "n" {
			events, err = m.eng.Step()
		} else {
			events, err = m.eng.Back()
		}
		if err != nil {
			m.setStatus("", err)
			return m, nil, true
		}
		m.selected = 0
		m.setStatus(describeEvents(m.eng.CurrentDay(), events), nil)
		return m, m.saveCmd(), true

	case "c":
		s, ok := m.selectedStock()
		if !ok {
			return m, nil, true
		}
		trigger, err := m.eng.LimitUpPrice(s.Code)
		if err == nil {
			var o domain.ConditionalOrder
			o, err = m.eng.PlaceConditionalOrder(s.Code, trigger, m.eng.Params().Unit)
			if err == nil {
				m.setStatus(fmt.Sprintf("conditional buy %s %d @ %.2f on %s", o.Name, o.Quantity, o.TriggerPrice, o.Date), nil)
				return m, m.saveCmd(), true
			}
		}
		m.setStatus("", err)
		return m, nil, true

	case "a":
		s, ok := m.selectedStock()
		if !ok {
			return m, nil, true
		}
		price := market.ClosePrice(m.eng.Prices(), s.Code, m.eng.CurrentDay(), s.Price)
		t, err := m.eng.PlaceDeferredBuy(s.Code, price, m.eng.Params().Unit)
		if err != nil {
			m.setStatus("", err)
			return m, nil, true
		}
		m.setStatus(fmt.Sprintf("buy %s %d at the %s open", t.Name, t.Quantity, t.Date), nil)
		return m, m.saveCmd(), true

	case "s":
		code := ""
		if s, ok := m.selectedStock(); ok {
			if _, held := m.eng.Account().Positions[s.Code]; held {
				code = s.Code
			}
		}
		if code == "" {
			// Fall back to the first holding.
			h := m.eng.Holdings()
			if len(h) == 0 {
				m.setStatus("", fmt.Errorf("%w: nothing to sell", domain.ErrInsufficientPosition))
				return m, nil, true
			}
			code = h[0].Code
		}
		t, err := m.eng.SellAll(code)
		if err != nil {
			m.setStatus("", err)
			return m, nil, true
		}
		m.setStatus(fmt.Sprintf("sold %s %d @ %.2f, net %s", t.Name, t.Quantity, t.Price, FormatMoney(t.NetAmount)), nil)
		return m, m.saveCmd(), true

	case "x":
		pending := m.eng.Orders(engine.Filter{Status: domain.StatusPending})
		if len(pending) == 0 {
			m.setStatus("no pending conditional orders", nil)
			return m, nil, true
		}
		o := pending[len(pending)-1]
		if err := m.eng.Cancel(o.ID); err != nil {
			m.setStatus("", err)
			return m, nil, true
		}
		m.setStatus(fmt.Sprintf("cancelled conditional buy %s @ %.2f", o.Name, o.TriggerPrice), nil)
		return m, m.saveCmd(), true
	}
	return m, nil, false
}

func describeEvents(day string, events []domain.Event) string {
	if len(events) == 0 {
		return "moved to " + day
	}
	parts := make([]string, len(events))
	for i, ev := range events {
		parts[i] = ev.String()
	}
	return strings.Join(parts, "; ")
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	cal := m.eng.Calendar()
	idx, _ := cal.Index(m.eng.CurrentDay())
	headerText := fmt.Sprintf(" laddersim  %s    filter: %s    [%d/%d] ",
		m.eng.CurrentDay(), filterLabel(filters[m.filterIdx]), idx+1, cal.Len())
	headerBar := headerStyle.Render(padOrTrunc(headerText, m.width))

	status := m.status
	if m.statusErr {
		status = errStyle.Render(status)
	} else if status != "" {
		status = okStyle.Render(status)
	}

	footerBar := footerStyle.Render(padOrTrunc(
		" q quit  n/p day  up/dn select  c cond buy  a add buy  s sell all  x cancel  f filter", m.width))

	return headerBar + "\n" + m.viewport.View() + "\n" + padOrTrunc(" "+status, m.width) + "\n" + footerBar
}

func (m Model) renderContent() string {
	var b strings.Builder
	day := m.eng.CurrentDay()

	// Account.
	ov := m.eng.Overview()
	b.WriteString(sectionStyle.Render(" Account ") + "\n")
	fmt.Fprintf(&b, " total %s  cash %s  frozen %s  spendable %s  positions %s  return %s\n\n",
		FormatMoney(ov.TotalAssets),
		FormatMoney(ov.Cash),
		FormatMoney(ov.Frozen),
		FormatMoney(ov.Spendable),
		FormatMoney(ov.PositionValue),
		signed(ov.TotalReturnPct, FormatPct(ov.TotalReturnPct)),
	)

	// Holdings.
	holdings := m.eng.Holdings()
	if len(holdings) > 0 {
		b.WriteString(sectionStyle.Render(" Holdings ") + "\n")
		b.WriteString(colHeaderStyle.Render(" "+fit("code", 8)+fit("name", 10)+fit("qty", 9)+fit("cost", 9)+fit("price", 9)+fit("P/L", 14)+"status") + "\n")
		for _, h := range holdings {
			state := "sellable"
			if !h.Sellable {
				state = fmt.Sprintf("T+1, %d day(s)", h.WaitDays)
			}
			fmt.Fprintf(&b, " %s%s%s%s%s%s%s\n",
				codeStyle.Render(fit(h.Code, 8)),
				fit(h.Name, 10),
				fit(FormatQty(h.Quantity), 9),
				fit(FormatPrice(h.Cost), 9),
				fit(FormatPrice(h.Price), 9),
				signed(h.PnL, fit(fmt.Sprintf("%s %s", FormatMoney(h.PnL), FormatPct(h.PnLPct)), 14)),
				dimStyle.Render(state),
			)
		}
		b.WriteString("\n")
	}

	// Next-day actions.
	if next, ok := m.eng.NextDay(); ok {
		p := m.eng.PendingFor(next)
		if len(p.Trades)+len(p.Orders) > 0 {
			b.WriteString(sectionStyle.Render(" Next day "+next+" ") + "\n")
			for _, t := range p.Trades {
				fmt.Fprintf(&b, " open buy   %s %s x%s\n", codeStyle.Render(t.Code), t.Name, FormatQty(t.Quantity))
			}
			for _, o := range p.Orders {
				fmt.Fprintf(&b, " cond buy   %s %s x%s if high >= %.2f\n", codeStyle.Render(o.Code), o.Name, FormatQty(o.Quantity), o.TriggerPrice)
			}
			b.WriteString("\n")
		}
	}

	// Ladder.
	list := m.stocks()
	b.WriteString(sectionStyle.Render(fmt.Sprintf(" Ladder %s (%d) ", day, len(list))) + "\n")
	if len(list) == 0 {
		b.WriteString(dimStyle.Render(" no candidates") + "\n")
		return b.String()
	}
	b.WriteString(colHeaderStyle.Render(" "+fit("days", 6)+fit("code", 8)+fit("name", 10)+fit("close", 9)+"themes") + "\n")
	for i, s := range list {
		line := " " + daysStyle.Render(fit(fmt.Sprintf("%d", s.LimitUpDays), 6)) +
			codeStyle.Render(fit(s.Code, 8)) +
			fit(s.Name, 10) +
			fit(FormatPrice(s.Price), 9) +
			dimStyle.Render(strings.Join(s.ConceptThemes, ","))
		if i == m.selected {
			line = lipgloss.NewStyle().Background(highlightBG).Render(padOrTrunc(line, m.width))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
