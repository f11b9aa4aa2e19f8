package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/models"
	"github.com/desertthunder/musiq/internal/services"
	"github.com/desertthunder/musiq/internal/session"
	"github.com/desertthunder/musiq/internal/shared"
	"github.com/desertthunder/musiq/internal/tasks"
)

const inboxSize = 64

// tabs are the routes reachable with the number keys, in key order.
var tabs = []Route{RouteHome, RouteChart, RouteArtists, RoutePlaylists, RouteLiked}

// ModelOpts are the dependencies of the TUI. Service, Library and Store are required.
type ModelOpts struct {
	Service services.Service
	Library *tasks.Library
	Store   *session.Store
	Bus     *events.Bus
	Logger  *log.Logger
	Start   Location
}

// confirmation is a pending y/n question.
type confirmation struct {
	prompt string
	action tea.Cmd
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	service services.Service
	library *tasks.Library
	store   *session.Store
	bus     *events.Bus
	logger  *log.Logger
	loader  loader

	loc     Location
	history []Location
	res     *tasks.Resource[page]
	listKey string
	list    list.Model

	session   session.Session
	form      *form
	confirm   *confirmation
	status    string
	statusErr bool

	inbox  chan tea.Msg
	unsubs []func()

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	m := &Model{
		ctx:     ctx,
		service: opts.Service,
		library: opts.Library,
		store:   opts.Store,
		bus:     opts.Bus,
		logger:  shared.WithLogger(logger, "component", "tui"),
		loc:     opts.Start,
		res:     tasks.NewResource[page](),
		list:    l,
		session: opts.Store.Current(),
		inbox:   make(chan tea.Msg, inboxSize),
		help:    help.New(),
		keys:    newKeyMap(),
	}
	m.loader = loader{service: opts.Service, authed: opts.Store.IsAuthenticated}
	return m
}

// Init subscribes to the bus and loads the starting route.
func (m *Model) Init() tea.Cmd {
	m.subscribe()
	return tea.Batch(m.load(), m.waitForInbox())
}

func (m *Model) subscribe() {
	if m.bus == nil {
		return
	}
	forward := func(e events.Event) { m.post(busEventMsg(e)) }
	for _, kind := range []events.Kind{events.KindSessionChanged, events.KindCollectionChanged} {
		unsub, err := m.bus.Subscribe(kind, forward)
		if err != nil {
			m.logger.Warn("subscribe failed", "kind", kind, "error", err)
			continue
		}
		m.unsubs = append(m.unsubs, unsub)
	}

	unsub, err := m.library.ListenForCreateRequests(m.ctx, func(p *models.Playlist, err error) {
		if err != nil {
			m.post(mutationDoneMsg("", err))
			return
		}
		m.post(mutationDoneMsg(fmt.Sprintf("✓ Created playlist %q", p.Title), nil))
	})
	if err != nil {
		m.logger.Warn("create listener not started", "error", err)
		return
	}
	m.unsubs = append(m.unsubs, unsub)
}

// Close unsubscribes from the bus and drops any load still in flight.
func (m *Model) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	m.res.Detach()
}

// Location returns the route currently shown.
func (m *Model) Location() Location { return m.loc }

// post hands msg to the event loop without blocking the caller, which may be a bus publisher.
func (m *Model) post(msg tea.Msg) {
	select {
	case m.inbox <- msg:
	default:
		m.logger.Warn("inbox full, dropping message")
	}
}

func (m *Model) waitForInbox() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case msg := <-m.inbox:
			return inboxMsg(msg)
		}
	}
}

// load begins a fetch of the current location. Only the newest load may settle.
func (m *Model) load() tea.Cmd {
	loc := m.loc
	ticket := m.res.Begin(loc.String())
	m.logger.Debug("loading", "location", loc)
	return func() tea.Msg {
		p, err := m.loader.load(m.ctx, loc)
		return pageLoadedMsg(ticket, p, err)
	}
}

func (m *Model) navigate(loc Location) tea.Cmd {
	if loc != m.loc {
		m.history = append(m.history, m.loc)
		m.loc = loc
	}
	m.status = ""
	return m.load()
}

func (m *Model) back() tea.Cmd {
	if len(m.history) == 0 {
		return nil
	}
	m.loc = m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	return m.load()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.form != nil:
			return m.handleFormKeys(msg)
		case m.confirm != nil:
			return m.handleConfirmKeys(msg)
		default:
			return m.handleKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgInbox:
		_, cmd := m.Update(msg.data)
		return m, tea.Batch(cmd, m.waitForInbox())

	case MsgPageLoaded:
		d := msg.data.(pageLoaded)
		if !m.res.Settle(d.ticket, d.page, d.err) {
			m.logger.Debug("discarded stale load", "key", d.ticket.Key())
			return m, nil
		}
		return m, m.applyPage()

	case MsgBusEvent:
		return m, m.handleEvent(msg.data.(events.Event))

	case MsgMutationDone:
		d := msg.data.(mutationDone)
		m.setStatus(d.status, d.err)
		if d.leave && d.err == nil {
			return m, m.back()
		}
		return m, nil

	case MsgFormDone:
		return m, m.handleFormDone(msg.data.(formDone))
	}
	return m, nil
}

// handleEvent keeps the header in sync with the session and reloads the screen when its data changed.
func (m *Model) handleEvent(e events.Event) tea.Cmd {
	if sc, ok := e.(events.SessionChanged); ok {
		wasAuthed := m.session.Authenticated
		m.session = m.store.Current()
		if !sc.Authenticated && !wasAuthed {
			return nil
		}
	}
	if !m.loc.stale(e) {
		return nil
	}
	m.logger.Debug("reloading after event", "event", e.Kind(), "location", m.loc)
	return m.load()
}

func (m *Model) applyPage() tea.Cmd {
	snap := m.res.Snapshot()
	if snap.State != tasks.Success {
		return nil
	}
	m.list.Title = snap.Data.title
	cmd := m.list.SetItems(snap.Data.items)
	if snap.Key != m.listKey {
		m.list.ResetSelected()
		m.listKey = snap.Key
	}
	return cmd
}

func (m *Model) setStatus(status string, err error) {
	if err != nil {
		m.status = describe(err)
		m.statusErr = true
		return
	}
	m.status = status
	m.statusErr = false
}

// describe turns an error into a one-line message for the status bar.
func describe(err error) string {
	var fe *models.FieldError
	var fes models.FieldErrors
	switch {
	case errors.As(err, &fes) && len(fes) > 0:
		return fes[0].Message
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, shared.ErrAuthRequired), errors.Is(err, shared.ErrNotAuthenticated):
		return "Log in to continue (L)"
	case errors.Is(err, shared.ErrNotFound):
		return "Not found"
	}
	return err.Error()
}

func (m *Model) requireAuth() bool {
	if m.session.Authenticated {
		return true
	}
	m.setStatus("", shared.ErrAuthRequired)
	return false
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	for i, b := range m.keys.routes {
		if key.Matches(msg, b) {
			m.history = nil
			return m, m.navigate(Location{Route: tabs[i]})
		}
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.load()
	case key.Matches(msg, m.keys.back):
		return m, m.back()
	case key.Matches(msg, m.keys.enter):
		return m, m.open()
	case key.Matches(msg, m.keys.search):
		if m.loc.Route == RouteArtists || m.loc.Route == RouteArtist {
			m.form = promptForm(formArtistSearch, "Search artists", "artist name")
		} else {
			m.form = promptForm(formSearch, "Search", "track or artist")
		}
		return m, nil
	case key.Matches(msg, m.keys.newList):
		if m.requireAuth() {
			m.form = promptForm(formNewPlaylist, "New playlist", "title")
		}
		return m, nil
	case key.Matches(msg, m.keys.del):
		return m, m.confirmDelete()
	case key.Matches(msg, m.keys.like):
		return m, m.toggleLike()
	case key.Matches(msg, m.keys.add):
		if id, ok := songIDOf(m.list.SelectedItem()); ok && m.requireAuth() {
			m.form = promptForm(formAddSong, "Add to playlist", "playlist id or title")
			m.form.songID = id
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		return m, m.removeSong()
	case key.Matches(msg, m.keys.favorite):
		return m, m.toggleFavorite()
	case key.Matches(msg, m.keys.comment):
		if m.loc.Route == RouteArtist && m.requireAuth() {
			m.form = promptForm(formComment, "Comment", "say something nice")
		}
		return m, nil
	case key.Matches(msg, m.keys.login):
		if !m.session.Authenticated {
			m.form = loginForm("")
		}
		return m, nil
	case key.Matches(msg, m.keys.signup):
		if !m.session.Authenticated {
			m.form = signupForm()
		}
		return m, nil
	case key.Matches(msg, m.keys.account):
		if m.requireAuth() {
			m.form = accountForm(m.session.Profile)
		}
		return m, nil
	case key.Matches(msg, m.keys.logout):
		if m.session.Authenticated {
			m.service.Logout()
			m.setStatus("✓ Logged out", nil)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) open() tea.Cmd {
	switch it := m.list.SelectedItem().(type) {
	case playlistItem:
		return m.navigate(Location{Route: RoutePlaylist, Key: fmt.Sprint(it.playlist.ID)})
	case artistItem:
		if m.loc.Route == RouteArtist && m.loc.Key == it.artist.ID {
			return nil
		}
		return m.navigate(Location{Route: RouteArtist, Key: it.artist.ID})
	}
	return nil
}

// selectedPlaylist is the playlist a delete applies to: the highlighted one in a list, or the open one.
func (m *Model) selectedPlaylist() *models.Playlist {
	if it, ok := m.list.SelectedItem().(playlistItem); ok {
		return &it.playlist
	}
	if m.loc.Route == RoutePlaylist {
		return m.res.Snapshot().Data.playlist
	}
	return nil
}

func (m *Model) confirmDelete() tea.Cmd {
	p := m.selectedPlaylist()
	if p == nil || !m.requireAuth() {
		return nil
	}
	id, title := p.ID, p.Title
	leave := m.loc.Route == RoutePlaylist
	m.confirm = &confirmation{
		prompt: fmt.Sprintf("Delete playlist %q?", title),
		action: func() tea.Msg {
			if err := m.library.DeletePlaylist(m.ctx, id); err != nil {
				return mutationDoneMsg("", err)
			}
			return Msg{kind: MsgMutationDone, data: mutationDone{status: fmt.Sprintf("✓ Deleted playlist %q", title), leave: leave}}
		},
	}
	return nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		action := m.confirm.action
		m.confirm = nil
		return m, action
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.confirm = nil
	}
	return m, nil
}

func (m *Model) toggleLike() tea.Cmd {
	id, ok := songIDOf(m.list.SelectedItem())
	if !ok {
		m.setStatus("", errors.New("this track is not in the library yet"))
		return nil
	}
	if !m.requireAuth() {
		return nil
	}
	return func() tea.Msg {
		liked, err := m.library.ToggleLike(m.ctx, id)
		if err != nil {
			return mutationDoneMsg("", err)
		}
		if liked {
			return mutationDoneMsg("✓ Liked", nil)
		}
		return mutationDoneMsg("✓ Removed from liked songs", nil)
	}
}

func (m *Model) removeSong() tea.Cmd {
	it, ok := m.list.SelectedItem().(songItem)
	if !ok || m.loc.Route != RoutePlaylist || !m.requireAuth() {
		return nil
	}
	playlistID, song := m.loc.PlaylistID(), it.song
	return func() tea.Msg {
		if err := m.library.RemoveSong(m.ctx, playlistID, song.ID); err != nil {
			return mutationDoneMsg("", err)
		}
		return mutationDoneMsg(fmt.Sprintf("✓ Removed %q", song.Title), nil)
	}
}

func (m *Model) toggleFavorite() tea.Cmd {
	a := m.res.Snapshot().Data.artist
	if m.loc.Route != RouteArtist || a == nil || !m.requireAuth() {
		return nil
	}
	id, name, favorite := a.ID, a.Name, a.IsFavorite
	return func() tea.Msg {
		if favorite {
			if err := m.library.RemoveFavoriteArtist(m.ctx, id); err != nil {
				return mutationDoneMsg("", err)
			}
			return mutationDoneMsg(fmt.Sprintf("✓ Removed %s from favorites", name), nil)
		}
		if err := m.library.AddFavoriteArtist(m.ctx, id); err != nil {
			return mutationDoneMsg("", err)
		}
		return mutationDoneMsg(fmt.Sprintf("✓ Added %s to favorites", name), nil)
	}
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if f.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.form = nil
		return m, nil
	case key.Matches(msg, m.keys.tab):
		f.next()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if !f.last() {
			f.next()
			return m, nil
		}
		return m, m.submit()
	}
	return m, f.update(msg)
}

// submit validates the form locally and, when it passes, starts the request.
func (m *Model) submit() tea.Cmd {
	f := m.form
	switch f.kind {
	case formLogin:
		creds := models.Credentials{Username: strings.TrimSpace(f.value("username")), Password: f.value("password")}
		if err := creds.Validate(); err != nil {
			f.fail(err)
			return nil
		}
		f.busy = true
		return func() tea.Msg {
			profile, err := m.service.Login(m.ctx, creds)
			if err != nil {
				return formDoneMsg(formLogin, "", err)
			}
			return formDoneMsg(formLogin, "✓ Logged in as "+profile.DisplayName(), nil)
		}

	case formSignup:
		reg := f.registration()
		if err := reg.Validate(); err != nil {
			f.fail(err)
			return nil
		}
		f.busy = true
		return func() tea.Msg {
			if err := m.service.Register(m.ctx, reg); err != nil {
				return formDoneMsg(formSignup, "", err)
			}
			return formDoneMsg(formSignup, "✓ Account created. Log in to continue.", nil)
		}

	case formAccount:
		update := f.profileUpdate(m.session.Profile)
		if err := update.Validate(); err != nil {
			f.fail(err)
			return nil
		}
		f.busy = true
		return func() tea.Msg {
			if _, err := m.service.UpdateMe(m.ctx, update); err != nil {
				return formDoneMsg(formAccount, "", err)
			}
			return formDoneMsg(formAccount, "✓ Profile updated", nil)
		}

	case formSearch:
		m.form = nil
		return m.navigate(Location{Route: RouteSearch, Key: strings.TrimSpace(f.value("query"))})

	case formArtistSearch:
		m.form = nil
		return m.navigate(Location{Route: RouteArtists, Key: strings.TrimSpace(f.value("query"))})

	case formNewPlaylist:
		draft := models.NewPlaylistDraft(f.value("title"), "").Normalize()
		if err := draft.Validate(); err != nil {
			f.fail(err)
			return nil
		}
		m.form = nil
		return func() tea.Msg {
			if m.library.RequestCreate(draft.Title, draft.Description) > 0 {
				return nil
			}
			p, err := m.library.CreatePlaylist(m.ctx, draft)
			if err != nil {
				return mutationDoneMsg("", err)
			}
			return mutationDoneMsg(fmt.Sprintf("✓ Created playlist %q", p.Title), nil)
		}

	case formAddSong:
		ref, songID := f.value("playlist"), f.songID
		f.busy = true
		return func() tea.Msg {
			p, err := resolvePlaylist(m.ctx, m.service, ref)
			if err != nil {
				return formDoneMsg(formAddSong, "", err)
			}
			if err := m.library.AddSong(m.ctx, p.ID, songID); err != nil {
				return formDoneMsg(formAddSong, "", err)
			}
			return formDoneMsg(formAddSong, fmt.Sprintf("✓ Added to %q", p.Title), nil)
		}

	case formComment:
		draft := models.CommentDraft{Content: strings.TrimSpace(f.value("content"))}
		if err := draft.Validate(); err != nil {
			f.fail(err)
			return nil
		}
		f.busy = true
		artistID := m.loc.Key
		return func() tea.Msg {
			if _, err := m.library.PostComment(m.ctx, artistID, draft); err != nil {
				return formDoneMsg(formComment, "", err)
			}
			return formDoneMsg(formComment, "✓ Comment posted", nil)
		}
	}
	return nil
}

func (m *Model) handleFormDone(d formDone) tea.Cmd {
	if m.form == nil || m.form.kind != d.kind {
		m.setStatus(d.status, d.err)
		return nil
	}
	if d.err != nil {
		if errors.Is(d.err, shared.ErrInvalidCredentials) {
			d.err = errors.New("invalid username or password")
		}
		m.form.fail(d.err)
		return nil
	}

	username := m.form.value("username")
	m.form = nil
	m.setStatus(d.status, nil)
	if d.kind == formSignup {
		m.form = loginForm(username)
	}
	return nil
}

// View renders the header, the current screen and the help line.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.form != nil && m.form.kind.modal() {
		b.WriteString(m.form.view())
	} else {
		b.WriteString(m.renderBody())
		if m.form != nil {
			b.WriteString("\n")
			b.WriteString(m.form.view())
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(tabs)+1)
	parts = append(parts, styles.title.UnsetMarginBottom().Render("musiq"))
	for i, r := range tabs {
		label := fmt.Sprintf("%d %s", i+1, r)
		if m.onTab(r) {
			parts = append(parts, styles.active.Render(label))
		} else {
			parts = append(parts, styles.tab.Render(label))
		}
	}
	left := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	var who string
	if m.session.Authenticated {
		who = styles.ok.Render(fmt.Sprintf("[%s] %s", m.session.Profile.Initial(), m.session.Profile.DisplayName()))
	} else {
		who = styles.help.Render("○ " + models.GuestName)
	}
	return styles.header.Render(lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", who))
}

func (m *Model) onTab(r Route) bool {
	switch m.loc.Route {
	case RouteArtist:
		return r == RouteArtists
	case RoutePlaylist:
		return r == RoutePlaylists
	}
	return m.loc.Route == r
}

func (m *Model) renderBody() string {
	snap := m.res.Snapshot()
	switch snap.State {
	case tasks.Idle:
		return ""
	case tasks.Failed:
		return m.renderError(snap.Err)
	case tasks.Loading:
		if snap.Key != m.listKey || len(m.list.Items()) == 0 {
			return styles.help.Render("Loading...")
		}
	}
	if len(snap.Data.items) == 0 {
		return fmt.Sprintf("%s\n\n%s", styles.title.Render(snap.Data.title), styles.help.Render(snap.Data.empty))
	}
	return m.list.View()
}

// renderError shows a login prompt, an empty state or a retryable banner depending on err.
func (m *Model) renderError(err error) string {
	switch {
	case errors.Is(err, shared.ErrAuthRequired), errors.Is(err, shared.ErrNotAuthenticated):
		return styles.warn.Render("You need to log in to see this page.") + "\n" +
			styles.help.Render("Press L to log in or S to sign up.")
	case errors.Is(err, shared.ErrNotFound):
		return styles.help.Render("Nothing here. It may have been deleted.") + "\n" +
			styles.help.Render("Press esc to go back.")
	}
	return styles.err.Render("Error: "+err.Error()) + "\n" + styles.help.Render("Press r to retry.")
}

func (m *Model) renderStatus() string {
	switch {
	case m.confirm != nil:
		return styles.warn.Render(m.confirm.prompt) + " " + m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	case m.status == "":
		if m.res.State() == tasks.Loading && m.listKey == m.res.Snapshot().Key {
			return styles.help.Render("refreshing...")
		}
		return ""
	case m.statusErr:
		return styles.err.Render(m.status)
	default:
		return styles.ok.Render(m.status)
	}
}

func (m *Model) renderHelp() string {
	if m.form != nil {
		return m.help.ShortHelpView([]key.Binding{m.keys.tab, m.keys.enter, m.keys.back})
	}
	return m.help.ShortHelpView(m.keys.forRoute(m.loc.Route, m.session.Authenticated))
}
