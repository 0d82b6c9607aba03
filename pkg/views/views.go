// Package views holds the cached view shapes the sync engine patches in
// place: flat lists, paginated lists and recursive reply trees. All three
// share the same contract: Patch applies a pure update function to the one
// entity carrying the target key and rebuilds only the structure on the
// path to it. A view that does not contain the target is returned unchanged
// (same pointer / same backing array), so patches can be broadcast across
// every registered view at negligible cost.
package views

// Keyed is anything addressable by a stable entity key (an at:// URI for
// posts, a message id for chat messages).
type Keyed interface {
	EntityKey() string
}

// Flat is a single ordered list of entities.
type Flat[T Keyed] []T

// Patch applies fn to the entity keyed id. The returned slice shares its
// backing array with the original when nothing matched.
func (f Flat[T]) Patch(id string, fn func(T) T) (Flat[T], bool) {
	for i := range f {
		if f[i].EntityKey() != id {
			continue
		}
		next := make(Flat[T], len(f))
		copy(next, f)
		next[i] = fn(f[i])
		return next, true
	}
	return f, false
}

// Paged is an ordered sequence of pages plus the cursor for fetching more.
type Paged[T Keyed] struct {
	Pages  []Flat[T]
	Cursor string
}

// Patch applies fn to the entity keyed id. Only pages that actually changed
// are reallocated; an untouched view comes back pointer-identical.
func (p *Paged[T]) Patch(id string, fn func(T) T) (*Paged[T], bool) {
	if p == nil {
		return nil, false
	}
	var pages []Flat[T]
	for i, page := range p.Pages {
		patched, changed := page.Patch(id, fn)
		if !changed {
			if pages != nil {
				pages[i] = page
			}
			continue
		}
		if pages == nil {
			pages = make([]Flat[T], len(p.Pages))
			copy(pages, p.Pages)
		}
		pages[i] = patched
	}
	if pages == nil {
		return p, false
	}
	return &Paged[T]{Pages: pages, Cursor: p.Cursor}, true
}

// Node is one reply-tree node: an entity plus its replies. Trees are
// single-owner and rebuilt on write, so no parent pointers are kept; the
// parent chain is implicit in the recursion.
type Node[T Keyed] struct {
	Entity   T
	Children []*Node[T]
}

// Patch walks the tree depth-first looking for the entity keyed id. At most
// one node anywhere in the tree carries a given key, but the key's location
// is not indexed so the whole tree may be visited. Only the path from the
// matched node up to the root is rebuilt; every off-path subtree is reused.
func (n *Node[T]) Patch(id string, fn func(T) T) (*Node[T], bool) {
	if n == nil {
		return nil, false
	}
	if n.Entity.EntityKey() == id {
		return &Node[T]{Entity: fn(n.Entity), Children: n.Children}, true
	}
	for i, child := range n.Children {
		patched, changed := child.Patch(id, fn)
		if !changed {
			continue
		}
		children := make([]*Node[T], len(n.Children))
		copy(children, n.Children)
		children[i] = patched
		return &Node[T]{Entity: n.Entity, Children: children}, true
	}
	return n, false
}

// Find returns the entity keyed id, if the tree contains it.
func (n *Node[T]) Find(id string) (T, bool) {
	var zero T
	if n == nil {
		return zero, false
	}
	if n.Entity.EntityKey() == id {
		return n.Entity, true
	}
	for _, child := range n.Children {
		if e, ok := child.Find(id); ok {
			return e, true
		}
	}
	return zero, false
}

// Find returns the entity keyed id, if any page contains it.
func (p *Paged[T]) Find(id string) (T, bool) {
	var zero T
	if p == nil {
		return zero, false
	}
	for _, page := range p.Pages {
		for i := range page {
			if page[i].EntityKey() == id {
				return page[i], true
			}
		}
	}
	return zero, false
}
