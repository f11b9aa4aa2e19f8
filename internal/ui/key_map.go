package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	enter    key.Binding
	back     key.Binding
	tab      key.Binding
	refresh  key.Binding
	search   key.Binding
	newList  key.Binding
	del      key.Binding
	like     key.Binding
	add      key.Binding
	remove   key.Binding
	favorite key.Binding
	comment  key.Binding
	login    key.Binding
	signup   key.Binding
	account  key.Binding
	logout   key.Binding
	yes      key.Binding
	no       key.Binding
	quit     key.Binding
	routes   []key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		newList:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new playlist")),
		del:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		like:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "like")),
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to playlist")),
		remove:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		favorite: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		comment:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),
		login:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log in")),
		signup:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sign up")),
		account:  key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "account")),
		logout:   key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "log out")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		routes: []key.Binding{
			key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "home")),
			key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "chart")),
			key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "artists")),
			key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "playlists")),
			key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "liked")),
		},
	}
}

// forRoute returns the action bindings shown in the help line for r.
func (k keyMap) forRoute(r Route, authenticated bool) []key.Binding {
	var b []key.Binding
	switch r {
	case RoutePlaylists:
		b = append(b, k.enter, k.newList, k.del)
	case RoutePlaylist:
		b = append(b, k.like, k.remove, k.back)
	case RouteLiked:
		b = append(b, k.like)
	case RouteSearch:
		b = append(b, k.search, k.like, k.add)
	case RouteChart:
		b = append(b, k.like, k.add)
	case RouteArtists:
		b = append(b, k.enter, k.search)
	case RouteArtist:
		b = append(b, k.favorite, k.comment, k.back)
	default:
		b = append(b, k.search, k.newList)
	}
	b = append(b, k.refresh)
	if authenticated {
		b = append(b, k.account, k.logout)
	} else {
		b = append(b, k.login, k.signup)
	}
	return append(b, k.quit)
}
