// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorSubtle    = lipgloss.Color("240") // Muted gray
	colorHighlight = lipgloss.Color("81")  // Teal/cyan
	colorWhite     = lipgloss.Color("231")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHighlight)
	helpStyle  = lipgloss.NewStyle().Foreground(colorSubtle)
)
