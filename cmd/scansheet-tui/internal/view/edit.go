package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/scansheet/scansheet/internal/optional"
	"github.com/scansheet/scansheet/internal/receipt"
)

// editFields are bound to the form; they live on the heap so copies of the
// model keep writing to the same values
type editFields struct {
	merchant string
	date     string
	total    string
	category string
}

type EditModel struct {
	service *receipt.Service

	draft  *receipt.DraftView
	fields *editFields
	form   *huh.Form
	status string
}

func NewEditModel(svc *receipt.Service, draft *receipt.DraftView) EditModel {
	m := EditModel{
		service: svc,
		draft:   draft,
		fields: &editFields{
			merchant: draft.Merchant,
			date:     draft.Date,
			total:    draft.Total.String(),
			category: string(draft.Category),
		},
	}
	m.form = m.newForm()
	return m
}

func (m EditModel) newForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("merchant").
				Title("Merchant").
				Value(&m.fields.merchant),

			huh.NewInput().
				Key("total").
				Title("Total").
				Value(&m.fields.total).
				Validate(validateTotal),

			huh.NewInput().
				Key("date").
				Title("Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fields.date).
				Validate(validateDate),

			huh.NewSelect[string]().
				Key("category").
				Title("Category").
				Options(huh.NewOptions(receipt.CategoryNames()...)...).
				Value(&m.fields.category),
		),
	).WithWidth(45).WithShowHelp(false)
}

func validateTotal(s string) error {
	a, err := receipt.ParseAmount(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if err != nil {
		return fmt.Errorf("enter an amount like 12.50")
	}
	if a.IsNegative() {
		return fmt.Errorf("total cannot be negative")
	}
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use YYYY-MM-DD")
	}
	return nil
}

func (m EditModel) Title() string { return "Review Receipt" }

func (m EditModel) ShortHelp() string {
	return "Tab: next field | Enter: save | Esc: discard"
}

func (m EditModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m EditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.service.CancelEdit()
		return m, Back
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	r, err := m.service.Commit(m.edits())
	if err != nil {
		m.status = err.Error()
		if !errors.Is(err, receipt.ErrInvalidDraft) {
			// Nothing left to edit
			return m, Back
		}
		m.form = m.newForm()
		return m, m.form.Init()
	}

	return m, func() tea.Msg { return SavedMsg{Merchant: r.Merchant} }
}

func (m EditModel) edits() receipt.Edits {
	e := receipt.Edits{
		Merchant: optional.Some(m.fields.merchant),
		Date:     optional.Some(strings.TrimSpace(m.fields.date)),
	}
	if total, err := receipt.ParseAmount(strings.TrimPrefix(strings.TrimSpace(m.fields.total), "$")); err == nil {
		e.Total = optional.Some(total)
	}
	if category, ok := receipt.ParseCategory(m.fields.category); ok {
		e.Category = optional.Some(category)
	}
	return e
}

func (m EditModel) View() string {
	panel := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(48).
		Render(fmt.Sprintf("Review Receipt\n\n%s", m.form.View()))

	content := lipgloss.JoinVertical(lipgloss.Left, panel, helpStyle.Render(m.ShortHelp()))
	if m.status != "" {
		content = errorStyle.Render(m.status) + "\n" + content
	}
	return lipgloss.NewStyle().Padding(1).Render(content)
}
