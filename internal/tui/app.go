// Package tui is the terminal front end: one room list, one live message
// feed, one composer. All state changes flow through the bubbletea update
// loop; the socket and REST calls feed it through messages.
package tui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ahitposter/Brovado/internal/api"
	"github.com/ahitposter/Brovado/internal/feed"
	"github.com/ahitposter/Brovado/internal/holdings"
	"github.com/ahitposter/Brovado/internal/models"
	"github.com/ahitposter/Brovado/internal/session"
	"github.com/ahitposter/Brovado/internal/socket"
	"github.com/ahitposter/Brovado/pkg/config"
	"github.com/ahitposter/Brovado/pkg/i18n"
)

type focusArea int

const (
	focusRooms focusArea = iota
	focusComposer
)

type frameMsg struct{ frame models.Frame }

type stateMsg struct{ state socket.State }

type holdingsMsg struct {
	holdings []models.Holding
	err      error
}

type profileMsg struct {
	room    string
	profile models.UserProfile
	balance string
	err     error
}

type bannerExpireMsg struct{ seq int }

type model struct {
	cfg      config.Config
	store    *session.Store
	client   *api.Client
	conn     *socket.Conn
	identity models.Identity

	feed  *feed.Controller
	panel *holdings.Panel

	state    socket.State
	focus    focusArea
	selected int

	profile models.UserProfile
	balance string

	viewport  viewport.Model
	composer  textinput.Model
	banner    string
	bannerSeq int

	width  int
	height int
	ready  bool
}

func newModel(cfg config.Config, store *session.Store, client *api.Client, conn *socket.Conn, identity models.Identity) model {
	composer := textinput.New()
	composer.Placeholder = "message"
	composer.CharLimit = 2000

	panel := holdings.NewPanel()
	if pref := store.SortPreference(); pref != "" {
		panel.SetSortOrder(pref)
	}
	favorites, err := store.Favorites(identity.Address)
	if err == nil {
		panel.SetFavorites(favorites)
	}

	return model{
		cfg:      cfg,
		store:    store,
		client:   client,
		conn:     conn,
		identity: identity,
		feed:     feed.NewController(identity.Address, conn, client),
		panel:    panel,
		state:    socket.StateConnecting,
		focus:    focusRooms,
		composer: composer,
	}
}

// Run drives the full-screen client for one identity until quit.
func Run(cfg config.Config, store *session.Store, client *api.Client, identity models.Identity) error {
	conn := socket.Dial(cfg.SocketURL, identity.Token, cfg.PingInterval)
	defer conn.Close()

	m := newModel(cfg, store, client, conn, identity)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}

func waitFrame(conn *socket.Conn) tea.Cmd {
	return func() tea.Msg { return frameMsg{frame: <-conn.Frames()} }
}

func waitState(conn *socket.Conn) tea.Cmd {
	return func() tea.Msg { return stateMsg{state: <-conn.States()} }
}

func (m model) loadHoldings() tea.Cmd {
	client, address := m.client, m.identity.Address
	timeout := m.cfg.HTTPTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		items, err := client.Holdings(ctx, address)
		return holdingsMsg{holdings: items, err: err}
	}
}

func (m model) loadProfile(room string) tea.Cmd {
	client := m.client
	timeout := m.cfg.HTTPTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// Partial failures degrade to blanks; the header is display only.
		msg := profileMsg{room: room}
		profile, err := client.User(ctx, room)
		if err != nil {
			log.Printf("profile fetch: %v", err)
			msg.err = err
		} else {
			msg.profile = profile
		}
		if balance, err := client.WalletBalance(ctx, room); err != nil {
			log.Printf("balance fetch: %v", err)
		} else {
			msg.balance = balance
		}
		return msg
	}
}

func (m *model) showBanner(key string) tea.Cmd {
	m.banner = i18n.Translate(key)
	m.bannerSeq++
	seq := m.bannerSeq
	return tea.Tick(m.cfg.BannerTTL, func(time.Time) tea.Msg {
		return bannerExpireMsg{seq: seq}
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		waitFrame(m.conn),
		waitState(m.conn),
		m.loadHoldings(),
		textinput.Blink,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshFeedView(false)
		return m, nil

	case stateMsg:
		m.state = msg.state
		m.feed.SetReady(msg.state == socket.StateOpen)
		return m, waitState(m.conn)

	case frameMsg:
		cmd := m.applyFrame(msg.frame)
		return m, tea.Batch(cmd, waitFrame(m.conn))

	case holdingsMsg:
		if msg.err != nil {
			log.Printf("holdings fetch: %v", msg.err)
			return m, m.showBanner("holdings unavailable")
		}
		m.panel.Reset(msg.holdings)
		marks, err := m.store.ReadMarks(m.identity.Address)
		if err == nil {
			for room, ts := range marks {
				m.panel.SetReadMark(room, ts)
			}
		}
		m.clampSelection()
		return m, nil

	case profileMsg:
		if msg.room != m.feed.Room() {
			return m, nil
		}
		m.profile = msg.profile
		m.balance = msg.balance
		return m, nil

	case bannerExpireMsg:
		if msg.seq == m.bannerSeq {
			m.banner = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

// applyFrame folds one socket frame into the feed and the room list.
func (m *model) applyFrame(frame models.Frame) tea.Cmd {
	var cmds []tea.Cmd

	if push, ok := frame.(models.ReceivedMessageFrame); ok {
		msg := push.Message
		msg.Text = feed.NormalizeText(msg.Text)
		m.panel.ApplyMessage(msg)
		if push.ChatRoomID == m.feed.Room() {
			m.markRead(push.ChatRoomID, push.Timestamp)
		}
	}

	change, err := m.feed.HandleFrame(frame)
	if err != nil {
		cmds = append(cmds, m.showBanner(err.Error()))
	}

	switch change {
	case feed.InitialLoaded, feed.MessageAppended:
		m.refreshFeedView(true)
	case feed.OlderPrepended:
		m.refreshFeedView(false)
	case feed.SendRejected:
		// The restored draft has to come back into the visible composer,
		// not just the store.
		if m.composer.Value() == "" {
			m.composer.SetValue(m.feed.Draft().Text)
		}
	}

	// Images render as their URLs in the terminal, so a batch's images are
	// "loaded" the moment the view refreshes.
	for m.feed.PendingImages() > 0 {
		m.feed.NoteImageLoaded()
	}

	return tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return *m, tea.Quit
	case "tab":
		if m.focus == focusRooms {
			m.focus = focusComposer
			m.composer.Focus()
		} else {
			m.focus = focusRooms
			m.composer.Blur()
		}
		return *m, nil
	}

	if m.focus == focusRooms {
		return m.handleRoomKey(msg)
	}
	return m.handleComposerKey(msg)
}

func (m *model) handleRoomKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.panel.Items()
	switch msg.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(items)-1 {
			m.selected++
		}
	case "f":
		if m.selected < len(items) {
			room := items[m.selected].ChatRoomID
			m.panel.ToggleFavorite(room)
			if _, err := m.store.ToggleFavorite(m.identity.Address, room); err != nil {
				log.Printf("favorite toggle: %v", err)
			}
		}
	case "s":
		m.cycleSort()
	case "r":
		return *m, m.loadHoldings()
	case "enter":
		if m.selected < len(items) {
			return *m, m.selectRoom(items[m.selected])
		}
	case "q":
		return *m, tea.Quit
	}
	return *m, nil
}

func (m *model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		line := m.composer.Value()
		m.composer.SetValue("")
		if strings.HasPrefix(strings.TrimSpace(line), "/") {
			return *m, m.handleCommand(strings.TrimSpace(line))
		}
		m.feed.SetText(line)
		return *m, m.send()
	case "pgup":
		if m.viewport.AtTop() {
			m.feed.LoadOlder()
		}
	}
	return m.updateFocused(msg)
}

func (m model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.composer, cmd = m.composer.Update(msg)
	cmds = append(cmds, cmd)

	atTop := m.viewport.AtTop()
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !atTop && m.viewport.AtTop() {
		m.feed.LoadOlder()
	}

	return m, tea.Batch(cmds...)
}

func (m *model) selectRoom(h models.Holding) tea.Cmd {
	// Park whatever is typed in the outgoing room's draft, then pick up the
	// incoming room's draft so nothing is lost across switches.
	m.feed.SetText(m.composer.Value())
	m.feed.SelectRoom(h.ChatRoomID)
	m.composer.SetValue(m.feed.Draft().Text)
	m.profile = models.UserProfile{}
	m.balance = ""
	m.refreshFeedView(true)
	m.markRead(h.ChatRoomID, h.LastMessageTime)
	m.focus = focusComposer
	m.composer.Focus()
	return m.loadProfile(h.ChatRoomID)
}

func (m *model) markRead(room string, ts int64) {
	m.panel.SetReadMark(room, ts)
	if err := m.store.MarkRead(m.identity.Address, room, ts); err != nil {
		log.Printf("read mark: %v", err)
	}
}

func (m *model) cycleSort() {
	next := map[string]string{
		holdings.SortLastMessage: holdings.SortName,
		holdings.SortName:        holdings.SortValue,
		holdings.SortValue:       holdings.SortLastMessage,
	}[m.panel.SortOrder()]
	m.panel.SetSortOrder(next)
	if err := m.store.SetSortPreference(next); err != nil {
		log.Printf("sort preference: %v", err)
	}
	m.clampSelection()
}

func (m *model) clampSelection() {
	if n := len(m.panel.Items()); m.selected >= n && n > 0 {
		m.selected = n - 1
	} else if n == 0 {
		m.selected = 0
	}
}

// send runs the whole composition synchronously: uploads block the loop for
// at most the HTTP timeout. The draft already holds the text.
func (m *model) send() tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HTTPTimeout)
	defer cancel()

	if err := m.feed.Send(ctx); err != nil {
		switch {
		case err == feed.ErrEmptyDraft:
			return nil
		case err == feed.ErrComposerLocked:
			m.composer.SetValue(m.feed.Draft().Text)
			return m.showBanner("composer locked")
		default:
			m.composer.SetValue(m.feed.Draft().Text)
			log.Printf("send: %v", err)
			return m.showBanner(err.Error())
		}
	}
	return nil
}
