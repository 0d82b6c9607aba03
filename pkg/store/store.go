// Package store owns every cached view in memory. Views are registered
// wholesale by the fetch layer and only ever patched through the views
// package contract; patches are computed and swapped under the write lock,
// so a reader never observes a partially applied patch.
package store

import (
	"sync"

	"github.com/blue-horizon/syncd/pkg/chats"
	"github.com/blue-horizon/syncd/pkg/posts"
	"github.com/blue-horizon/syncd/pkg/views"
)

// Family names a group of cached views sourced from the same logical feed.
type Family string

const (
	FamilyTimeline      Family = "timeline"
	FamilyFeed          Family = "feed"
	FamilyAuthorFeed    Family = "author-feed"
	FamilyThread        Family = "thread"
	FamilyMessages      Family = "messages"
	FamilyConversations Family = "conversations"
)

// PostFamilies are the families that can contain a post entity.
var PostFamilies = []Family{FamilyTimeline, FamilyFeed, FamilyAuthorFeed, FamilyThread}

// ChatFamilies are the families that can contain a message or conversation.
var ChatFamilies = []Family{FamilyMessages, FamilyConversations}

type postViewKey struct {
	family Family
	key    string
}

type Store struct {
	mu sync.RWMutex

	// timeline keyed "", feed keyed by feed URI, author-feed keyed by DID
	posts   map[postViewKey]*views.Paged[posts.Post]
	threads map[string]*views.Node[posts.Post]

	messages  map[string]*views.Paged[chats.Message]
	convos    views.Flat[chats.Conversation]
	hasConvos bool

	stale map[Family]bool
}

func New() *Store {
	return &Store{
		posts:    map[postViewKey]*views.Paged[posts.Post]{},
		threads:  map[string]*views.Node[posts.Post]{},
		messages: map[string]*views.Paged[chats.Message]{},
		stale:    map[Family]bool{},
	}
}

// RegisterPosts replaces the paged post view for (family, key) and clears
// the family's stale flag.
func (s *Store) RegisterPosts(family Family, key string, v *views.Paged[posts.Post]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[postViewKey{family, key}] = v
	delete(s.stale, family)
}

func (s *Store) Posts(family Family, key string) (*views.Paged[posts.Post], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.posts[postViewKey{family, key}]
	return v, ok
}

// AppendPostPage adds one fetched page to an existing view, creating the
// view if this is the first page.
func (s *Store) AppendPostPage(family Family, key string, page views.Flat[posts.Post], cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := postViewKey{family, key}
	cur := s.posts[k]
	if cur == nil {
		s.posts[k] = &views.Paged[posts.Post]{Pages: []views.Flat[posts.Post]{page}, Cursor: cursor}
		return
	}
	pages := make([]views.Flat[posts.Post], len(cur.Pages), len(cur.Pages)+1)
	copy(pages, cur.Pages)
	s.posts[k] = &views.Paged[posts.Post]{Pages: append(pages, page), Cursor: cursor}
}

func (s *Store) RegisterThread(rootURI string, n *views.Node[posts.Post]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[rootURI] = n
	delete(s.stale, FamilyThread)
}

func (s *Store) Thread(rootURI string) (*views.Node[posts.Post], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.threads[rootURI]
	return n, ok
}

// ThreadKeys lists the root URIs of every registered thread view.
func (s *Store) ThreadKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.threads))
	for k := range s.threads {
		keys = append(keys, k)
	}
	return keys
}

// PostViewKeys lists the registered keys for one post family.
func (s *Store) PostViewKeys(family Family) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.posts {
		if k.family == family {
			keys = append(keys, k.key)
		}
	}
	return keys
}

// Post returns the first cached copy of the post keyed uri, scanning paged
// views first and thread trees second. All copies are patched consistently,
// so any copy is an accurate read of the local projection.
func (s *Store) Post(uri string) (posts.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.posts {
		if p, ok := v.Find(uri); ok {
			return p, true
		}
	}
	for _, n := range s.threads {
		if p, ok := n.Find(uri); ok {
			return p, true
		}
	}
	return posts.Post{}, false
}

// PatchPosts broadcasts fn across every post view. Views that do not
// contain the target are left identity-equal by the patcher fast path.
// Returns the number of views that changed.
func (s *Store) PatchPosts(uri string, fn func(posts.Post) posts.Post) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	patched := 0
	for k, v := range s.posts {
		if next, changed := v.Patch(uri, fn); changed {
			s.posts[k] = next
			patched++
		}
	}
	for k, n := range s.threads {
		if next, changed := n.Patch(uri, fn); changed {
			s.threads[k] = next
			patched++
		}
	}
	return patched
}

func (s *Store) RegisterMessages(convoID string, v *views.Paged[chats.Message]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[convoID] = v
	delete(s.stale, FamilyMessages)
}

func (s *Store) Messages(convoID string) (*views.Paged[chats.Message], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.messages[convoID]
	return v, ok
}

func (s *Store) MessageKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.messages))
	for k := range s.messages {
		keys = append(keys, k)
	}
	return keys
}

// AppendMessagePage adds one fetched page to a conversation's view,
// creating the view if this is the first page.
func (s *Store) AppendMessagePage(convoID string, page views.Flat[chats.Message], cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.messages[convoID]
	if cur == nil {
		s.messages[convoID] = &views.Paged[chats.Message]{Pages: []views.Flat[chats.Message]{page}, Cursor: cursor}
		return
	}
	pages := make([]views.Flat[chats.Message], len(cur.Pages), len(cur.Pages)+1)
	copy(pages, cur.Pages)
	s.messages[convoID] = &views.Paged[chats.Message]{Pages: append(pages, page), Cursor: cursor}
}

// InsertMessage puts m at the head of the first page of the conversation's
// message view. A conversation with no registered view is left alone: the
// shell has never fetched it, reconciliation will surface the message.
func (s *Store) InsertMessage(convoID string, m chats.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.messages[convoID]
	if cur == nil {
		return false
	}
	var first views.Flat[chats.Message]
	rest := []views.Flat[chats.Message]{}
	if len(cur.Pages) > 0 {
		first = cur.Pages[0]
		rest = cur.Pages[1:]
	}
	page := make(views.Flat[chats.Message], 0, len(first)+1)
	page = append(page, m)
	page = append(page, first...)
	pages := make([]views.Flat[chats.Message], 0, len(rest)+1)
	pages = append(pages, page)
	pages = append(pages, rest...)
	s.messages[convoID] = &views.Paged[chats.Message]{Pages: pages, Cursor: cur.Cursor}
	return true
}

// RemoveMessage deletes the message keyed id wherever it sits in the
// conversation's view, preserving the order of everything else.
func (s *Store) RemoveMessage(convoID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.messages[convoID]
	if cur == nil {
		return false
	}
	for pi, page := range cur.Pages {
		for mi := range page {
			if page[mi].EntityKey() != id {
				continue
			}
			next := make(views.Flat[chats.Message], 0, len(page)-1)
			next = append(next, page[:mi]...)
			next = append(next, page[mi+1:]...)
			pages := make([]views.Flat[chats.Message], len(cur.Pages))
			copy(pages, cur.Pages)
			pages[pi] = next
			s.messages[convoID] = &views.Paged[chats.Message]{Pages: pages, Cursor: cur.Cursor}
			return true
		}
	}
	return false
}

// PatchMessage applies fn to one message in one conversation view. The swap
// from an optimistic id to the authoritative record happens here, in place,
// preserving the message's position.
func (s *Store) PatchMessage(convoID, id string, fn func(chats.Message) chats.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.messages[convoID]
	if cur == nil {
		return false
	}
	next, changed := cur.Patch(id, fn)
	if changed {
		s.messages[convoID] = next
	}
	return changed
}

func (s *Store) RegisterConversations(v views.Flat[chats.Conversation]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convos = v
	s.hasConvos = true
	delete(s.stale, FamilyConversations)
}

func (s *Store) Conversations() (views.Flat[chats.Conversation], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.convos, s.hasConvos
}

func (s *Store) Conversation(id string) (chats.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.convos {
		if s.convos[i].EntityKey() == id {
			return s.convos[i], true
		}
	}
	return chats.Conversation{}, false
}

func (s *Store) PatchConversation(id string, fn func(chats.Conversation) chats.Conversation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := s.convos.Patch(id, fn)
	if changed {
		s.convos = next
	}
	return changed
}

// MarkStale flags families whose next read must refetch authoritative state.
func (s *Store) MarkStale(families ...Family) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range families {
		s.stale[f] = true
	}
}

func (s *Store) Stale(family Family) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale[family]
}
