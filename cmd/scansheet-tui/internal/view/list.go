package view

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scansheet/scansheet/internal/receipt"
)

type ListModel struct {
	service *receipt.Service

	table   table.Model
	summary receipt.Summary
	notice  string
	status  string

	// id awaiting a second "d" to confirm
	pendingDelete string
}

func NewListModel(svc *receipt.Service) ListModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Merchant", Width: 30},
		{Title: "Category", Width: 16},
		{Title: "Total", Width: 12},
		{Title: "Saved", Width: 20},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := ListModel{
		service: svc,
		table:   t,
	}
	m.refresh()
	return m
}

func (m ListModel) Title() string { return "Receipts" }
func (m ListModel) ShortHelp() string {
	return "u: upload | d: delete | x: export | r: refresh | n: dismiss | q: quit"
}

func (m ListModel) Init() tea.Cmd {
	return nil
}

// WithStatus returns the model with a one-off status line
func (m ListModel) WithStatus(status string) ListModel {
	m.status = status
	return m
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if key != "d" {
			m.pendingDelete = ""
		}

		switch key {
		case "u":
			return m, Upload
		case "r":
			m.status = ""
			m.refresh()
			return m, nil
		case "n":
			m.service.DismissNotice()
			m.refresh()
			return m, nil
		case "d":
			return m.delete(), nil
		case "x":
			m.status = m.export()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ListModel) delete() ListModel {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.summary.Receipts) {
		return m
	}

	r := m.summary.Receipts[idx]
	if m.pendingDelete != r.ID {
		m.pendingDelete = r.ID
		m.status = fmt.Sprintf("Press d again to delete %s (%s)", r.Merchant, FormatAmount(r.Total))
		return m
	}

	m.service.Delete(r.ID)
	m.pendingDelete = ""
	m.status = fmt.Sprintf("Deleted %s.", r.Merchant)
	m.refresh()
	return m
}

func (m ListModel) export() string {
	data, err := receipt.ExportXLSX(m.summary.Receipts)
	if err != nil {
		return fmt.Sprintf("Export failed: %v", err)
	}

	name := fmt.Sprintf("scansheet-%s.xlsx", time.Now().Format("20060102-150405"))
	if err := os.WriteFile(name, data, 0644); err != nil {
		return fmt.Sprintf("Export failed: %v", err)
	}
	return fmt.Sprintf("Exported %d receipts to %s.", m.summary.Count, name)
}

func (m *ListModel) refresh() {
	m.summary = m.service.Summary()
	m.notice = m.service.State().Notice

	rows := make([]table.Row, 0, len(m.summary.Receipts))
	for _, r := range m.summary.Receipts {
		rows = append(rows, table.Row{
			r.Date,
			r.Merchant,
			string(r.Category),
			FormatAmount(r.Total),
			FormatTimestamp(r),
		})
	}
	m.table.SetRows(rows)
}

func (m ListModel) View() string {
	header := fmt.Sprintf("Total: %s | %s",
		activeStyle(FormatAmount(m.summary.Total)),
		receiptCount(m.summary.Count),
	)

	body := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())
	if m.summary.Count == 0 {
		body = lipgloss.NewStyle().Padding(1, 0).Render("No receipts yet. Press u to upload one.")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		body,
		helpStyle.Render(m.ShortHelp()),
	)

	if m.status != "" {
		content = successStyle.Render(m.status) + "\n" + content
	}
	if m.notice != "" {
		content = errorStyle.Render(m.notice) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func receiptCount(n int) string {
	if n == 1 {
		return "1 receipt"
	}
	return fmt.Sprintf("%d receipts", n)
}
