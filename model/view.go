package model

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/electr1fy0/scribe/autosave"
)

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("scribe · notes"))
	s.WriteString("\n\n")

	switch m.state {
	case statePass:
		s.WriteString("Enter passphrase to unlock/create notebook:\n\n")
		s.WriteString(m.pwInput.View())
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("enter: unlock  ctrl+c: quit"))

	case stateChangePass:
		s.WriteString("New passphrase:\n\n")
		s.WriteString(m.pwInput.View())
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("enter: change  esc: cancel"))

	case stateSearch:
		s.WriteString("Search notes:\n\n")
		s.WriteString(m.searchInput.View())
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("enter: search  esc: cancel"))

	case stateConfirm:
		s.WriteString(warningStyle.Render(m.confirmMsg))
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("y: confirm  n/esc: cancel"))

	case statePreview:
		if a := m.saves.Active(); a != nil {
			s.WriteString(titleStyle.Render(displayTitle(a.Draft().Title, a.Draft().Content)))
			s.WriteString("\n\n")
		}
		s.WriteString(m.viewContent)
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("b/esc: back"))

	default:
		listPane, editPane := activePaneStyle, paneStyle
		if m.state == stateEdit {
			listPane, editPane = paneStyle, activePaneStyle
		}
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			listPane.Render(m.list.View()),
			editPane.Render(m.editorView()),
		))
		s.WriteString("\n")
		if m.state == stateEdit {
			s.WriteString(helpStyle.Render(helpLine(keys.Save, keys.Tab, keys.Back, keys.ForceQ)))
		} else {
			s.WriteString(helpStyle.Render(helpLine(keys.Open, keys.New, keys.Delete, keys.Search,
				keys.Preview, keys.Editor, keys.Copy, keys.Export, keys.Password, keys.Quit)))
			if m.searchTerm != "" {
				s.WriteString("\n")
				s.WriteString(helpStyle.Render(fmt.Sprintf("search: '%s' (c: clear)", m.searchTerm)))
			}
		}
	}

	if m.status != "" {
		s.WriteString("\n")
		switch {
		case m.lastError != "":
			s.WriteString(errorStyle.Render(m.status))
		case m.quitting:
			s.WriteString(warningStyle.Render(m.status))
		default:
			s.WriteString(successStyle.Render(m.status))
		}
	}
	return s.String()
}

func (m Model) editorView() string {
	a := m.saves.Active()
	if a == nil {
		return helpStyle.Render("No note selected")
	}
	var s strings.Builder
	s.WriteString(m.titleInput.View())
	s.WriteString("  ")
	s.WriteString(saveIndicator(a))
	s.WriteString("\n\n")
	s.WriteString(m.editor.View())
	return s.String()
}

func saveIndicator(s *autosave.Session) string {
	switch {
	case s.State() != autosave.Idle:
		return savingBadge.Render("saving...")
	case s.Dirty():
		return unsavedBadge.Render("unsaved")
	}
	return savedBadge.Render("saved")
}
