package view

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

// UploadMsg asks for the file picker
type UploadMsg struct{}

func Upload() tea.Msg {
	return UploadMsg{}
}

// ScannedMsg reports that an extraction has finished; the service state
// says whether a draft is waiting
type ScannedMsg struct {
	Err error
}

// SavedMsg reports a committed receipt
type SavedMsg struct {
	Merchant string
}

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}
