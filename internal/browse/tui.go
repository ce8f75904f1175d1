// Package browse is a terminal UI over the persisted postings: a view picker,
// a split list of every posting against the ones that need a second look, and
// a detail page with scam flags and the cover message.
package browse

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/internradar/internradar/internal/model"
)

// Lines per posting in the list view (role + subtitle + blank separator).
const itemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle   = headerStyle.Foreground(lipgloss.Color("39"))
	inactiveHeaderStyle = headerStyle.Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	roleStyle     = lipgloss.NewStyle().Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	selectedRoleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(14)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	bodyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	scamStyles = map[model.ScamStatus]lipgloss.Style{
		model.ScamClean:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.ScamSuspected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		model.ScamUnknown:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

type browseModel struct {
	title         string
	all           []model.Posting
	review        []model.Posting
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=left, 1=right
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view           viewState
	detail         model.Posting
	detailViewport viewport.Model
	showCover      bool

	wantQuit bool
}

func newBrowseModel(title string, postings []model.Posting) browseModel {
	all := append([]model.Posting(nil), postings...)
	sortNewestFirst(all)
	return browseModel{title: title, all: all, review: needsReview(all)}
}

// needsReview keeps postings whose scam check flagged them or could not run.
func needsReview(postings []model.Posting) []model.Posting {
	var out []model.Posting
	for _, p := range postings {
		if p.ScamStatus == model.ScamSuspected || p.ScamStatus == model.ScamUnknown {
			out = append(out, p)
		}
	}
	return out
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView(), nil
	}

	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detail.Link)
		return m, nil
	case "c":
		if m.detail.CoverMessage != "" {
			m.showCover = !m.showCover
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *browseModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.all)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.review)-1, 0))
	}
}

func (m *browseModel) ensureCursorVisible() {
	vp, cursor := &m.leftViewport, m.leftCursor
	if m.activePane == 1 {
		vp, cursor = &m.rightViewport, m.rightCursor
	}

	top := cursor * itemHeight
	bottom := top + itemHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m browseModel) openDetailView() browseModel {
	postings, cursor := m.all, m.leftCursor
	if m.activePane == 1 {
		postings, cursor = m.review, m.rightCursor
	}
	if len(postings) == 0 {
		return m
	}

	m.view = viewDetail
	m.detail = postings[cursor]
	m.showCover = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m
}

func (m *browseModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header + border top/bottom + status bar.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width, m.leftViewport.Height = paneWidth, paneHeight
		m.rightViewport.Width, m.rightViewport.Height = paneWidth, paneHeight
	}
	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	m.leftViewport.SetContent(renderPostings(m.all, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderPostings(m.review, m.rightCursor, m.activePane == 1))
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" %s (%d)", m.title, len(m.all))
	rightHeader := fmt.Sprintf(" Needs Review (%d)", len(m.review))

	leftHeaderStyle, rightHeaderStyle := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == 1 {
		leftHeaderStyle, rightHeaderStyle = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderStyle.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderStyle.Render(rightHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Width(paneWidth).Render(m.leftViewport.View()),
		" ",
		rightBorder.Width(paneWidth).Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %d postings | %d need review    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.all), len(m.review))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m browseModel) viewDetail() string {
	title := detailTitleStyle.Render("Posting Details")
	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	statusText := " o open link  esc/backspace back  ↑/↓ scroll  q quit"
	if m.detail.CoverMessage != "" {
		statusText = " o open link  c cover message  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m browseModel) renderDetail() string {
	p := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Role", p.Role)
	addField("Company", p.CompanyLabel())
	addField("Platform", string(p.Platform))
	addField("Location", p.Location)
	addField("Mode", p.Mode)
	addField("Stipend", p.Stipend)
	addField("Duration", p.Duration)
	addField("Deadline", p.DeadlineText)
	if len(p.Skills) > 0 {
		addField("Skills", strings.Join(p.Skills, ", "))
	}

	b.WriteByte('\n')
	addField("Found", postedLabel(p))
	addField("Status", string(p.Status))
	addField("Scam check", scamLabel(p.ScamStatus))
	addField("Link", p.Link)

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	if len(p.ScamFlags) > 0 {
		b.WriteByte('\n')
		b.WriteString(divider(fmt.Sprintf("── Forum flags (%d) ", len(p.ScamFlags))) + "\n\n")
		for _, f := range p.ScamFlags {
			b.WriteString(fmt.Sprintf("  • [%s] r/%s: %q\n", capitalize(string(f.Kind)), f.Forum, f.MatchedKeyword))
			if f.PostTitle != "" {
				b.WriteString(hintStyle.Render("    "+f.PostTitle) + "\n")
			}
			if f.Excerpt != "" {
				b.WriteString(bodyStyle.Render(indent(wordWrap(f.Excerpt, wrapWidth-4), "    ")) + "\n")
			}
			if f.Permalink != "" {
				b.WriteString(subtitleStyle.Render("    "+f.Permalink) + "\n")
			}
		}
	}

	if p.CoverMessage != "" {
		b.WriteByte('\n')
		if m.showCover {
			b.WriteString(divider("── Cover message ") + "\n\n")
			b.WriteString(bodyStyle.Render(p.CoverMessage) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press c to read the cover message") + "\n")
		}
	}

	return b.String()
}

func renderPostings(postings []model.Posting, cursor int, isActive bool) string {
	if len(postings) == 0 {
		return "  (no postings)"
	}

	var b strings.Builder
	for i, p := range postings {
		titleSt, subSt, prefix := roleStyle, subtitleStyle, "  "
		if isActive && i == cursor {
			titleSt, subSt, prefix = selectedRoleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(p.Role))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subSt.Render(fmt.Sprintf("%s · %s · %s", p.CompanyLabel(), p.Platform, postedLabel(p))))
		if s, ok := scamStyles[p.ScamStatus]; ok && p.ScamStatus != model.ScamClean {
			b.WriteString(" " + s.Render(string(p.ScamStatus)))
		}
		b.WriteByte('\n')

		if i < len(postings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func postedLabel(p model.Posting) string {
	if p.PostingDate.IsZero() {
		return "n/a"
	}
	return humanize.Time(p.PostingDate)
}

func scamLabel(s model.ScamStatus) string {
	if st, ok := scamStyles[s]; ok {
		return st.Render(string(s))
	}
	return string(s)
}

// sortNewestFirst orders by posting date descending; ties keep store order.
func sortNewestFirst(postings []model.Posting) {
	sort.SliceStable(postings, func(i, j int) bool {
		return postings[i].PostingDate.After(postings[j].PostingDate)
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func indent(text, prefix string) string {
	return prefix + strings.ReplaceAll(text, "\n", "\n"+prefix)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	if url == "" {
		return
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the split-pane browser over postings. Returns wantQuit=true
// if the user pressed q/ctrl+c, false if they pressed esc to go back to the
// view picker.
func Run(title string, postings []model.Posting) (bool, error) {
	p := tea.NewProgram(newBrowseModel(title, postings), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(browseModel).wantQuit, nil
}
