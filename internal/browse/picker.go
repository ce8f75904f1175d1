package browse

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/internradar/internradar/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// View is a named subset of the stored postings.
type View struct {
	Label string
	Match func(model.Posting) bool
}

// Views returns the fixed set of browse views: everything, one per platform,
// and the scam-suspected postings.
func Views() []View {
	views := []View{{Label: "All postings", Match: func(model.Posting) bool { return true }}}
	for _, pl := range []model.Platform{model.PlatformInternshala, model.PlatformLinkedIn, model.PlatformUnstop} {
		pl := pl
		views = append(views, View{
			Label: string(pl),
			Match: func(p model.Posting) bool { return p.Platform == pl },
		})
	}
	return append(views, View{
		Label: "Scam suspected",
		Match: func(p model.Posting) bool { return p.ScamStatus == model.ScamSuspected },
	})
}

// Apply returns the postings v selects, preserving order.
func (v View) Apply(postings []model.Posting) []model.Posting {
	var out []model.Posting
	for _, p := range postings {
		if v.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

type pickerModel struct {
	views  []View
	counts []int
	cursor int
	chosen int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.views)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Browse postings: select a view")
	s += "\n"

	for i, v := range m.views {
		label := fmt.Sprintf("%s (%d)", v.Label, m.counts[i])
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunViewPicker shows an interactive view selector with per-view counts.
// Returns the index of the chosen view, or a negative value if the user quit.
func RunViewPicker(views []View, postings []model.Posting) (int, error) {
	counts := make([]int, len(views))
	for i, v := range views {
		counts[i] = len(v.Apply(postings))
	}

	p := tea.NewProgram(pickerModel{views: views, counts: counts, chosen: -1})
	result, err := p.Run()
	if err != nil {
		return -1, err
	}
	return result.(pickerModel).chosen, nil
}
