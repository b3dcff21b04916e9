package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/ahitposter/Brovado/internal/models"
	"github.com/ahitposter/Brovado/pkg/eth"
)

const roomListWidth = 28

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	mineStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	theirsStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	replyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	bannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	unreadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	listBox       = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
)

func (m *model) layout() {
	feedWidth := m.width - roomListWidth - 4
	if feedWidth < 20 {
		feedWidth = 20
	}
	feedHeight := m.height - 6
	if feedHeight < 4 {
		feedHeight = 4
	}

	if !m.ready {
		m.viewport = viewport.New(feedWidth, feedHeight)
		m.ready = true
	} else {
		m.viewport.Width = feedWidth
		m.viewport.Height = feedHeight
	}
	m.composer.Width = m.width - 4
}

// anchorOffset keeps the same content line at the top of the viewport after
// older lines are prepended above it.
func anchorOffset(oldOffset, oldLines, newLines int) int {
	offset := oldOffset + (newLines - oldLines)
	if offset < 0 {
		offset = 0
	}
	return offset
}

// refreshFeedView rerenders the feed into the viewport. followTail pins the
// view to the newest message when the user was already there; otherwise the
// visual anchor is preserved across the content change.
func (m *model) refreshFeedView(followTail bool) {
	if !m.ready {
		return
	}

	atBottom := m.viewport.AtBottom()
	oldLines := m.viewport.TotalLineCount()
	oldOffset := m.viewport.YOffset

	m.viewport.SetContent(m.renderFeed())

	if followTail && atBottom {
		m.viewport.GotoBottom()
		return
	}
	m.viewport.SetYOffset(anchorOffset(oldOffset, oldLines, m.viewport.TotalLineCount()))
}

func (m *model) renderFeed() string {
	msgs := m.feed.Messages()
	if len(msgs) == 0 {
		if m.feed.Room() == "" {
			return "Pick a room and press enter."
		}
		if m.feed.Loading() {
			return "Loading…"
		}
		return "No messages yet."
	}

	now := time.Now()
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.renderMessage(msg, now))
	}
	return b.String()
}

func (m *model) renderMessage(msg models.Message, now time.Time) string {
	style := theirsStyle
	name := msg.Name
	if name == "" {
		name = eth.ShortAddress(msg.SendingUserID)
	}
	if msg.Mine(m.identity.Address) {
		style = mineStyle
		name = "me"
	}

	var b strings.Builder
	if msg.ReplyingTo != nil {
		quoted := msg.ReplyingTo.Text
		if len(quoted) > 60 {
			quoted = quoted[:60] + "…"
		}
		b.WriteString(replyStyle.Render("  ↪ "+quoted) + "\n")
	}

	header := fmt.Sprintf("%s · %s", name, models.TimeSince(msg.Timestamp, now))
	b.WriteString(style.Render(header) + "\n")
	for _, line := range strings.Split(msg.Text, "\n") {
		b.WriteString("  " + line + "\n")
	}
	for _, img := range msg.ImageURLs {
		b.WriteString(statusStyle.Render("  [image] "+img) + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (m *model) renderRoomList() string {
	items := m.panel.Items()
	height := m.height - 6
	if height < 4 {
		height = 4
	}

	start := 0
	if m.selected >= height {
		start = m.selected - height + 1
	}

	now := time.Now()
	var lines []string
	for i := start; i < len(items) && len(lines) < height; i++ {
		h := items[i]
		name := h.Name
		if name == "" {
			name = eth.ShortAddress(h.ChatRoomID)
		}
		if len(name) > roomListWidth-6 {
			name = name[:roomListWidth-6] + "…"
		}

		marker := "  "
		if i == m.selected && m.focus == focusRooms {
			marker = "> "
		}
		line := marker + name
		if m.panel.Favorite(h.ChatRoomID) {
			line += " ★"
		}
		if h.Online(now) {
			line = onlineStyle.Render("●") + line[1:]
		}

		switch {
		case i == m.selected:
			line = selectedStyle.Render(line)
		case h.Unread():
			line = unreadStyle.Render(line + " •")
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, statusStyle.Render("no holdings"))
	}
	return strings.Join(lines, "\n")
}

func (m *model) renderHeader() string {
	title := headerStyle.Render("brovado")
	if m.feed.Room() == "" {
		return title + "  " + statusStyle.Render("sort: "+m.panel.SortOrder())
	}

	name := m.profile.Name
	if name == "" {
		name = eth.ShortAddress(m.feed.Room())
	}
	parts := []string{name}
	if m.profile.DisplayPrice != "" {
		parts = append(parts, "key "+eth.FormatWei(m.profile.DisplayPrice)+" ETH")
	}
	if m.profile.ShareSupply > 0 {
		parts = append(parts, fmt.Sprintf("supply %d", m.profile.ShareSupply))
	}
	if m.profile.HolderCount > 0 {
		parts = append(parts, fmt.Sprintf("holders %d", m.profile.HolderCount))
	}
	if m.profile.HoldingCount > 0 {
		parts = append(parts, fmt.Sprintf("holds %d of yours", m.profile.HoldingCount))
	}
	if m.balance != "" {
		parts = append(parts, "wallet "+eth.FormatWei(m.balance)+" ETH")
	}
	return title + "  " + statusStyle.Render(strings.Join(parts, " · "))
}

func (m *model) renderFooter() string {
	who := m.identity.DisplayName
	if who == "" {
		who = eth.ShortAddress(m.identity.Address)
	}
	parts := []string{who, m.state.String()}
	if !m.identity.ExpiresAt.IsZero() {
		parts = append(parts, "token expires in "+models.TimeUntil(m.identity.ExpiresAt, time.Now()))
	}
	if m.feed.Sending() {
		parts = append(parts, "sending…")
	}
	if m.feed.Loading() {
		parts = append(parts, "loading…")
	}
	if n := len(m.feed.Draft().Attachments); n > 0 {
		parts = append(parts, fmt.Sprintf("%d staged", n))
	}
	if m.feed.Draft().ReplyingTo != nil {
		parts = append(parts, "replying")
	}

	footer := statusStyle.Render(strings.Join(parts, " · "))
	if m.banner != "" {
		footer += "  " + bannerStyle.Render(m.banner)
	}
	return footer
}

func (m model) View() string {
	if !m.ready {
		return "starting…"
	}

	left := listBox.Width(roomListWidth).Render(m.renderRoomList())
	right := listBox.Width(m.viewport.Width + 2).Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	composer := m.composer.View()
	if m.feed.ComposerLocked() {
		composer = statusStyle.Render("composer locked: wait for a reply")
	}

	return m.renderHeader() + "\n" + body + "\n" + composer + "\n" + m.renderFooter()
}
