// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui provides the interactive station browser.
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/seisio/shakelib/internal/i18n"
	"github.com/seisio/shakelib/internal/station"
)

type stationModel struct {
	table       table.Model
	data        *station.Table // Master table, rows rebuilt on filter change
	filter      string
	isFiltering bool
}

func newStationModel(data *station.Table) stationModel {
	m := stationModel{data: data}

	columns := []table.Column{
		{Title: "ID", Width: 12},
		{Title: "NAME", Width: 24},
		{Title: "LAT", Width: 9},
		{Title: "LON", Width: 10},
	}
	for _, imtName := range data.IMTs {
		columns = append(columns, table.Column{Title: imtName, Width: 10})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15), // Placeholder height
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSubtle).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorWhite).
		Background(colorHighlight).
		Bold(false)
	t.SetStyles(s)

	m.table = t
	m.rebuildTableRows()
	return m
}

// rebuildTableRows filters the master table and populates the rows.
func (m *stationModel) rebuildTableRows() {
	var rows []table.Row
	lowerFilter := strings.ToLower(m.filter)

	for i, sta := range m.data.Stations {
		if m.filter != "" &&
			!strings.Contains(strings.ToLower(sta.ID), lowerFilter) &&
			!strings.Contains(strings.ToLower(sta.Name), lowerFilter) {
			continue
		}
		row := table.Row{
			sta.ID,
			sta.Name,
			fmt.Sprintf("%.4f", sta.Lat),
			fmt.Sprintf("%.4f", sta.Lon),
		}
		for _, imtName := range m.data.IMTs {
			v := m.data.Values[imtName][i]
			if math.IsNaN(v) {
				row = append(row, "")
			} else {
				row = append(row, fmt.Sprintf("%.4f", v))
			}
		}
		rows = append(rows, row)
	}
	m.table.SetRows(rows)

	if m.isFiltering {
		m.table.GotoTop()
	}
}

func (m stationModel) Init() tea.Cmd {
	return nil
}

func (m stationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// header(3) + filter/help(3)
		m.table.SetHeight(msg.Height - 6)
		m.table.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		if m.isFiltering {
			switch msg.Type {
			case tea.KeyEsc:
				m.isFiltering = false
				m.filter = ""
				m.rebuildTableRows()
			case tea.KeyEnter:
				m.isFiltering = false
			case tea.KeyBackspace:
				if len(m.filter) > 0 {
					m.filter = m.filter[:len(m.filter)-1]
					m.rebuildTableRows()
				}
			case tea.KeyRunes:
				m.filter += string(msg.Runes)
				m.rebuildTableRows()
			}
			return m, nil
		}

		switch msg.String() {
		case "/":
			m.isFiltering = true
			m.filter = ""
			m.rebuildTableRows()
			return m, nil
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m stationModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("stations.header")) + "\n\n")

	if len(m.table.Rows()) == 0 {
		b.WriteString(helpStyle.Render(i18n.T("stations.count", 0)))
		b.WriteString(m.footerView())
		return b.String()
	}

	b.WriteString(m.table.View())
	b.WriteString(m.footerView())
	return b.String()
}

func (m stationModel) footerView() string {
	if m.isFiltering {
		return "\n" + helpStyle.Render(fmt.Sprintf("filter: %s_  (enter to apply, esc to clear)", m.filter))
	}
	status := i18n.T("stations.count", len(m.table.Rows()))
	if m.filter != "" {
		status += fmt.Sprintf("  [filter: %s]", m.filter)
	}
	return "\n" + helpStyle.Render(status+"  (/ filter, q quit)")
}

// RunStations opens the interactive browser on a station table and
// blocks until the user quits.
func RunStations(data *station.Table) error {
	p := tea.NewProgram(newStationModel(data), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("station browser failed: %w", err)
	}
	return nil
}
