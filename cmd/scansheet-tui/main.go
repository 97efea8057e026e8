package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/scansheet/scansheet/cmd/scansheet-tui/internal/view"
	"github.com/scansheet/scansheet/internal/capture"
	"github.com/scansheet/scansheet/internal/config"
	"github.com/scansheet/scansheet/internal/receipt"
)

type model struct {
	service *receipt.Service

	currentView View

	listView   view.ListModel
	uploadView view.UploadModel
	editView   view.EditModel
}

type View int

const (
	ViewList   View = 0
	ViewUpload View = 1
	ViewEdit   View = 2
)

func initialModel(svc *receipt.Service) model {
	return model{
		service:     svc,
		currentView: ViewList,
		listView:    view.NewListModel(svc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.currentView == ViewList {
				return m, tea.Quit
			}
		}
	case view.BackMsg:
		m.currentView = ViewList
		m.listView = view.NewListModel(m.service)
		return m, nil
	case view.UploadMsg:
		m.currentView = ViewUpload
		m.uploadView = view.NewUploadModel(m.service)
		return m, m.uploadView.Init()
	case view.ScannedMsg:
		if msg.Err != nil {
			slog.Debug("Upload finished with error", "error", msg.Err)
		}
		st := m.service.State()
		if st.ActiveView == receipt.ViewEditing && st.Draft != nil {
			m.currentView = ViewEdit
			m.editView = view.NewEditModel(m.service, st.Draft)
			return m, m.editView.Init()
		}
		m.currentView = ViewList
		m.listView = view.NewListModel(m.service)
		return m, nil
	case view.SavedMsg:
		m.currentView = ViewList
		m.listView = view.NewListModel(m.service).WithStatus(fmt.Sprintf("Saved %s.", msg.Merchant))
		return m, nil
	}

	switch m.currentView {
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	case ViewUpload:
		var newModel tea.Model
		newModel, cmd = m.uploadView.Update(msg)
		m.uploadView = newModel.(view.UploadModel)
	case ViewEdit:
		var newModel tea.Model
		newModel, cmd = m.editView.Update(msg)
		m.editView = newModel.(view.EditModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewList:
		return m.listView.View()
	case ViewUpload:
		return m.uploadView.View()
	case ViewEdit:
		return m.editView.View()
	}

	return "Unknown View"
}

func main() {
	cfg, fs, err := config.Parse("scansheet-tui", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Logs would tear the terminal UI; keep them in a file when asked
	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logFile, err := tea.LogToFile("scansheet-tui.log", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level})))

	slot, err := cfg.OpenSlot()
	if err != nil {
		slog.Error("failed to open database", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	store := receipt.NewStore(slot)
	defer store.Close()

	scanner, err := cfg.NewScanner()
	if err != nil {
		slog.Error("failed to initialize scanner", "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer scanner.Close()

	// No camera in a terminal; uploads only
	svc := receipt.NewService(store, scanner, capture.NewRelay(false))

	p := tea.NewProgram(initialModel(svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
