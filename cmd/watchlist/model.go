package main

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rxtech-lab/argo-retail/internal/types"
	"github.com/rxtech-lab/argo-retail/pkg/marketdata"
)

// Application states.
const (
	StateCategorySelect = iota
	StateSymbolInput
	StateDataDisplay
)

// Model is the main Bubble Tea model for the watchlist CLI.
type Model struct {
	state        int
	categoryList list.Model
	symbolInput  textinput.Model
	dataTable    table.Model
	quotes       map[types.AssetKey]types.Asset
	prevPrices   map[types.AssetKey]float64
	marketTypes  []types.MarketType
	symbols      []string
	sequence     uint64
	fallbacks    int
	err          error
	width        int
	height       int

	fetcher  marketdata.Fetcher
	interval time.Duration

	// Streaming control
	streamCancel context.CancelFunc
	program      *programRef
}

// programRef is shared by every copy of the model, so the program can be
// attached after tea.NewProgram has taken its copy.
type programRef struct {
	p *tea.Program
}

// NewModel creates a new Model polling fetcher every interval.
func NewModel(fetcher marketdata.Fetcher, interval time.Duration) Model {
	return Model{
		state:        StateCategorySelect,
		categoryList: NewCategoryList(),
		symbolInput:  NewSymbolInput(),
		dataTable:    NewDataTable(),
		quotes:       make(map[types.AssetKey]types.Asset),
		prevPrices:   make(map[types.AssetKey]float64),
		fetcher:      fetcher,
		interval:     interval,
		program:      &programRef{},
	}
}

// SetProgram sets the tea.Program reference for sending messages from goroutines.
func (m *Model) SetProgram(p *tea.Program) {
	m.program.p = p
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.streamCancel != nil {
				m.streamCancel()
			}
			return m, tea.Quit
		case "q":
			// Only quit on 'q' if not in text input mode
			if m.state != StateSymbolInput {
				if m.streamCancel != nil {
					m.streamCancel()
				}
				return m, tea.Quit
			}
		case "esc":
			return m.handleEsc()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.categoryList.SetSize(msg.Width, msg.Height-4)
		m.dataTable.SetWidth(msg.Width)
		m.dataTable.SetHeight(msg.Height - 6)
		return m, nil

	case QuotesMsg:
		m.applyBatch(msg.Batch)
		return m, nil

	case StreamErrorMsg:
		m.err = msg.Err
		return m, nil

	case StreamStartedMsg:
		m.state = StateDataDisplay
		m.streamCancel = msg.Cancel
		return m, nil
	}

	// Delegate to state-specific update
	switch m.state {
	case StateCategorySelect:
		return m.updateCategorySelect(msg)
	case StateSymbolInput:
		return m.updateSymbolInput(msg)
	case StateDataDisplay:
		return m.updateDataDisplay(msg)
	}

	return m, nil
}

// applyBatch stores the quotes of a batch. Batches older than the last one
// shown are ignored.
func (m *Model) applyBatch(batch types.QuoteBatch) {
	if batch.Sequence != 0 && batch.Sequence <= m.sequence {
		return
	}

	m.sequence = batch.Sequence
	m.fallbacks = 0

	for _, asset := range batch.Assets {
		if len(m.symbols) > 0 && !slices.Contains(m.symbols, asset.Symbol) {
			continue
		}

		key := asset.Key()
		if existing, ok := m.quotes[key]; ok {
			m.prevPrices[key] = existing.Price
		}

		m.quotes[key] = asset

		if asset.IsFallback() {
			m.fallbacks++
		}
	}

	m.dataTable = UpdateTableRows(m.dataTable, m.quotes, m.prevPrices)
}

func (m Model) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateSymbolInput:
		m.state = StateCategorySelect
	case StateDataDisplay:
		// Stop polling and clear watched symbols
		if m.streamCancel != nil {
			m.streamCancel()
			m.streamCancel = nil
		}
		m.quotes = make(map[types.AssetKey]types.Asset)
		m.prevPrices = make(map[types.AssetKey]float64)
		m.symbols = nil
		m.sequence = 0
		m.fallbacks = 0
		m.err = nil
		m.symbolInput.Reset()
		m.symbolInput.Focus()
		m.state = StateSymbolInput
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) updateCategorySelect(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.categoryList.SelectedItem().(listItem); ok {
				m.marketTypes = CategoriesFor(item.name)
				m.state = StateSymbolInput
				m.symbolInput.Focus()
				return m, textinput.Blink
			}
		}
	}

	var cmd tea.Cmd
	m.categoryList, cmd = m.categoryList.Update(msg)
	return m, cmd
}

func (m Model) updateSymbolInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.symbols = ParseSymbols(m.symbolInput.Value())
			m.state = StateDataDisplay
			m.symbolInput.Blur()
			return m, m.startStreaming()
		}
	}

	var cmd tea.Cmd
	m.symbolInput, cmd = m.symbolInput.Update(msg)
	return m, cmd
}

func (m Model) updateDataDisplay(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.dataTable, cmd = m.dataTable.Update(msg)
	return m, cmd
}

// startStreaming returns a command that starts the quote poller. The cancel
// function travels back in StreamStartedMsg.
func (m Model) startStreaming() tea.Cmd {
	return func() tea.Msg {
		if m.program == nil || m.program.p == nil {
			return StreamErrorMsg{Err: fmt.Errorf("program not set")}
		}

		if m.fetcher == nil {
			return StreamErrorMsg{Err: fmt.Errorf("no quote source configured")}
		}

		ctx, cancel := context.WithCancel(context.Background())

		go streamQuotes(m.program.p, ctx, marketdata.NewPoller(m.fetcher, m.interval, m.marketTypes...))

		return StreamStartedMsg{Cancel: cancel}
	}
}

// streamQuotes polls the aggregator and sends every batch to the program.
func streamQuotes(p *tea.Program, ctx context.Context, poller *marketdata.Poller) {
	for batch := range poller.Stream(ctx) {
		p.Send(QuotesMsg{Batch: batch})
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	switch m.state {
	case StateCategorySelect:
		s.WriteString(TitleStyle.Render("Argo Retail - Watchlist"))
		s.WriteString("\n\n")
		s.WriteString(m.categoryList.View())
		s.WriteString("\n")
		s.WriteString(HelpStyle.Render("Press Enter to select, q to quit"))

	case StateSymbolInput:
		s.WriteString(TitleStyle.Render("Filter Symbols"))
		s.WriteString("\n\n")
		s.WriteString("Enter comma-separated symbols, or leave empty to watch all:\n\n")
		s.WriteString(m.symbolInput.View())
		s.WriteString("\n\n")
		s.WriteString(HelpStyle.Render("Press Enter to confirm, Esc to go back"))

	case StateDataDisplay:
		s.WriteString(TitleStyle.Render(fmt.Sprintf("Live Quotes - %s (every %s)", joinMarketTypes(m.marketTypes), m.interval)))
		s.WriteString("\n\n")

		if m.err != nil {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			s.WriteString("\n\n")
		}

		if m.fallbacks > 0 {
			s.WriteString(FallbackStyle.Render(fmt.Sprintf("%d quotes are fallback prices", m.fallbacks)))
			s.WriteString("\n\n")
		}

		if len(m.quotes) == 0 {
			s.WriteString("Waiting for quotes...\n")
		} else {
			s.WriteString(m.dataTable.View())
		}

		s.WriteString("\n")
		s.WriteString(HelpStyle.Render(fmt.Sprintf("q: quit | Esc: back | Cycle: %d", m.sequence)))
	}

	return s.String()
}

func joinMarketTypes(marketTypes []types.MarketType) string {
	names := make([]string, len(marketTypes))
	for i, mt := range marketTypes {
		names[i] = string(mt)
	}

	return strings.Join(names, ", ")
}
