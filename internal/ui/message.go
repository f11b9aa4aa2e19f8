package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musiq/internal/events"
	"github.com/desertthunder/musiq/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPageLoaded MsgKind = iota
	MsgBusEvent
	MsgMutationDone
	MsgFormDone
	MsgInbox
)

type pageLoaded struct {
	ticket tasks.Ticket
	page   page
	err    error
}

type mutationDone struct {
	status string
	err    error
	leave  bool
}

type formDone struct {
	kind   formKind
	status string
	err    error
}

// pageLoadedMsg is the constructor for [MsgPageLoaded]
func pageLoadedMsg(t tasks.Ticket, p page, err error) Msg {
	return Msg{kind: MsgPageLoaded, data: pageLoaded{ticket: t, page: p, err: err}}
}

// busEventMsg is the constructor for [MsgBusEvent]
func busEventMsg(e events.Event) Msg {
	return Msg{kind: MsgBusEvent, data: e}
}

// mutationDoneMsg is the constructor for [MsgMutationDone]
func mutationDoneMsg(status string, err error) Msg {
	return Msg{kind: MsgMutationDone, data: mutationDone{status: status, err: err}}
}

// formDoneMsg is the constructor for [MsgFormDone]
func formDoneMsg(kind formKind, status string, err error) Msg {
	return Msg{kind: MsgFormDone, data: formDone{kind: kind, status: status, err: err}}
}

// inboxMsg is the constructor for [MsgInbox]. It wraps messages posted from outside the event loop.
func inboxMsg(msg tea.Msg) Msg {
	return Msg{kind: MsgInbox, data: msg}
}
