// Package catalog keeps the in-memory set of lendable items keyed by ISBN.
// It never persists anything itself; callers save Items() after a change.
package catalog

import (
	"librarian/pkg/domain"
	"librarian/pkg/serrors"
	"strings"
)

// Catalog is an ordered collection of items with lookup by id.
// It is not safe for concurrent use.
type Catalog struct {
	items []domain.Item
	// index maps an id to its first position in items.
	index map[domain.ItemID]int
}

// New builds a catalog from loaded records, keeping their order.
func New(items []domain.Item) *Catalog {
	c := &Catalog{}
	c.Reset(items)

	return c
}

// Reset replaces the whole content of the catalog.
func (c *Catalog) Reset(items []domain.Item) {
	c.items = make([]domain.Item, len(items))
	copy(c.items, items)
	c.reindex()
}

func (c *Catalog) reindex() {
	c.index = make(map[domain.ItemID]int, len(c.items))
	for i, item := range c.items {
		if _, ok := c.index[item.ID]; !ok {
			c.index[item.ID] = i
		}
	}
}

// Find returns a copy of the item with the given id.
func (c *Catalog) Find(id domain.ItemID) (domain.Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Item{}, false
	}

	return c.items[i], true
}

// SetAvailable flips the availability flag of an item.
func (c *Catalog) SetAvailable(id domain.ItemID, available bool) error {
	i, ok := c.index[id]
	if !ok {
		return notFound(id)
	}
	c.items[i].Available = available

	return nil
}

// Add appends a new item. It is rejected when the id is empty or taken.
func (c *Catalog) Add(item domain.Item) error {
	if item.ID == "" {
		return serrors.With(serrors.ErrBadRequest, "isbn must not be empty")
	}
	if _, ok := c.index[item.ID]; ok {
		return serrors.Wrap(serrors.ErrDuplicateKey, domain.ErrDuplicateItem, "isbn %s", item.ID)
	}

	c.index[item.ID] = len(c.items)
	c.items = append(c.items, item)

	return nil
}

// Update changes the title and author of an item. Empty values leave the
// current field untouched.
func (c *Catalog) Update(id domain.ItemID, title, author string) (domain.Item, error) {
	i, ok := c.index[id]
	if !ok {
		return domain.Item{}, notFound(id)
	}
	if title != "" {
		c.items[i].Title = title
	}
	if author != "" {
		c.items[i].Author = author
	}

	return c.items[i], nil
}

// Delete removes an item that is not lent out.
func (c *Catalog) Delete(id domain.ItemID) error {
	i, ok := c.index[id]
	if !ok {
		return notFound(id)
	}
	if !c.items[i].Available {
		return serrors.Wrap(serrors.ErrConflict, domain.ErrItemLent, "isbn %s", id)
	}

	c.items = append(c.items[:i], c.items[i+1:]...)
	c.reindex()

	return nil
}

// Items returns a copy of every item in insertion order.
func (c *Catalog) Items() []domain.Item {
	out := make([]domain.Item, len(c.items))
	copy(out, c.items)

	return out
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Search returns the items whose title, author or isbn contains query,
// ignoring case. An empty query matches everything.
func (c *Catalog) Search(query string) []domain.Item {
	query = strings.ToLower(query)
	if query == "" {
		return c.Items()
	}

	out := []domain.Item{}
	for _, item := range c.items {
		if strings.Contains(strings.ToLower(item.Title), query) ||
			strings.Contains(strings.ToLower(item.Author), query) ||
			strings.Contains(strings.ToLower(string(item.ID)), query) {
			out = append(out, item)
		}
	}

	return out
}

func notFound(id domain.ItemID) error {
	return serrors.Wrap(serrors.ErrNotFound, domain.ErrItemNotFound, "isbn %s", id)
}
