package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive colors picked once at startup based on the terminal background.
var (
	colorPrimary lipgloss.Color
	colorAccent  lipgloss.Color
	colorSuccess lipgloss.Color
	colorError   lipgloss.Color
	colorText    lipgloss.Color
	colorTextDim lipgloss.Color
	colorBorder  lipgloss.Color
)

func initializeColors() {
	switch os.Getenv("GLAMOUR_STYLE") {
	case "light":
		setLightThemeColors()
		return
	case "dark":
		setDarkThemeColors()
		return
	}
	if lipgloss.HasDarkBackground() {
		setDarkThemeColors()
	} else {
		setLightThemeColors()
	}
}

func setDarkThemeColors() {
	colorPrimary = lipgloss.Color("205")
	colorAccent = lipgloss.Color("214")
	colorSuccess = lipgloss.Color("10")
	colorError = lipgloss.Color("9")
	colorText = lipgloss.Color("252")
	colorTextDim = lipgloss.Color("240")
	colorBorder = lipgloss.Color("238")
}

func setLightThemeColors() {
	colorPrimary = lipgloss.Color("125")
	colorAccent = lipgloss.Color("130")
	colorSuccess = lipgloss.Color("22")
	colorError = lipgloss.Color("160")
	colorText = lipgloss.Color("232")
	colorTextDim = lipgloss.Color("244")
	colorBorder = lipgloss.Color("248")
}

var (
	styleTitle    lipgloss.Style
	styleMetadata lipgloss.Style
	styleError    lipgloss.Style
	styleInsert   lipgloss.Style
	styleDelete   lipgloss.Style
	styleHelp     lipgloss.Style
	styleViewport lipgloss.Style
)

func initializeStyles() {
	styleTitle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		Padding(0, 1)

	styleMetadata = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Padding(0, 1)

	styleError = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true).
		Padding(0, 1)

	styleInsert = lipgloss.NewStyle().Foreground(colorSuccess)
	styleDelete = lipgloss.NewStyle().Foreground(colorError)

	styleHelp = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Padding(0, 1)

	styleViewport = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
}
