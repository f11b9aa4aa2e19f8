// Package events implements the in-process notification bus that keeps independently mounted
// screens consistent without a central state store.
//
// Event kinds form a closed set, each with its own payload type:
//   - [SessionChanged] : the user logged in or out (also published when a request is rejected as unauthenticated)
//   - [CollectionChanged] : a playlist or like mutation succeeded; listeners re-fetch
//   - [CollectionCreateRequested] : one screen asks the playlists owner to create a playlist
//
// Delivery is synchronous and in subscription order. Publishing with no subscribers drops the event,
// and late subscribers never see earlier events.
package events

import "fmt"

// Kind identifies an event type.
type Kind int

const (
	KindSessionChanged Kind = iota
	KindCollectionChanged
	KindCollectionCreateRequested
)

// Kinds lists every event kind.
var Kinds = []Kind{KindSessionChanged, KindCollectionChanged, KindCollectionCreateRequested}

func (k Kind) String() string {
	switch k {
	case KindSessionChanged:
		return "session-changed"
	case KindCollectionChanged:
		return "collection-changed"
	case KindCollectionCreateRequested:
		return "collection-create-requested"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is one of [Kinds].
func (k Kind) Valid() bool {
	return k >= KindSessionChanged && k <= KindCollectionCreateRequested
}

// ParseKind maps an event name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// Event is implemented by every payload type. The unexported method keeps the set closed.
type Event interface {
	Kind() Kind
	event()
}

// SessionChanged reports the new authentication state.
type SessionChanged struct {
	Authenticated bool
}

func (SessionChanged) Kind() Kind { return KindSessionChanged }
func (SessionChanged) event()     {}

// Collection names a mutable user collection.
type Collection string

const (
	Playlists Collection = "playlists"
	Likes     Collection = "likes"
	Favorites Collection = "favorites"
	Comments  Collection = "comments"
)

// CollectionChanged reports that a collection was mutated on the backend.
// ID names the affected playlist (or artist, for comments) when there is one.
type CollectionChanged struct {
	Collection Collection
	ID         string
}

func (CollectionChanged) Kind() Kind { return KindCollectionChanged }
func (CollectionChanged) event()     {}

// Affects reports whether a listener for collection c (and playlist id, when non-empty) should re-fetch.
func (e CollectionChanged) Affects(c Collection, id string) bool {
	if e.Collection != c {
		return false
	}
	return id == "" || e.ID == "" || e.ID == id
}

// CollectionCreateRequested asks whoever owns playlist creation to create one.
type CollectionCreateRequested struct {
	Title       string
	Description string
}

func (CollectionCreateRequested) Kind() Kind { return KindCollectionCreateRequested }
func (CollectionCreateRequested) event()     {}
