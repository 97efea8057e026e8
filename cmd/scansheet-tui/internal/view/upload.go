package view

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scansheet/scansheet/internal/receipt"
)

type uploadState int

const (
	uploadStatePick uploadState = iota
	uploadStateScanning
)

type UploadModel struct {
	service *receipt.Service

	state      uploadState
	filePicker filepicker.Model
	spinner    spinner.Model
	path       string
}

func NewUploadModel(svc *receipt.Service) UploadModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return UploadModel{
		service:    svc,
		filePicker: fp,
		spinner:    sp,
	}
}

func (m UploadModel) Title() string { return "Upload Receipt" }

func (m UploadModel) ShortHelp() string {
	if m.state == uploadStateScanning {
		return "Reading receipt..."
	}
	return "Esc: back | Enter: select"
}

func (m UploadModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == uploadStateScanning {
		// The extraction cannot be cancelled; wait for ScannedMsg
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = uploadStateScanning
		m.path = path
		return m, tea.Batch(m.spinner.Tick, m.scanCmd(path))
	}

	return m, cmd
}

func (m UploadModel) View() string {
	if m.state == uploadStateScanning {
		return lipgloss.NewStyle().Padding(2).Render(
			fmt.Sprintf("%s Reading %s...", m.spinner.View(), filepath.Base(m.path)),
		)
	}

	return lipgloss.NewStyle().Padding(1).Render(
		fmt.Sprintf("Select a receipt image:\n\n%s\n%s", m.filePicker.View(), helpStyle.Render(m.ShortHelp())),
	)
}

func (m UploadModel) scanCmd(path string) tea.Cmd {
	svc := m.service
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return ScannedMsg{Err: err}
		}
		defer f.Close()

		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
		return ScannedMsg{Err: svc.Upload(context.Background(), filepath.Base(path), contentType, f)}
	}
}
