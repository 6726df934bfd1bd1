package domain

import "fmt"

// ItemID uniquely identifies a catalog item. For books this is the ISBN.
type ItemID string

// Item is a lendable catalog entry.
type Item struct {
	// ID is immutable once the item is added.
	ID ItemID `json:"isbn"`
	// Title of the work.
	Title string `json:"title"`
	// Author of the work.
	Author string `json:"author"`
	// Available is false exactly while an open loan exists for ID.
	Available bool `json:"is_available"`
}

// NewItem returns an available item.
func NewItem(id ItemID, title, author string) Item {
	return Item{ID: id, Title: title, Author: author, Available: true}
}

func (i Item) String() string {
	return fmt.Sprintf("Item(title=%q, author=%q, isbn=%q, available=%t)", i.Title, i.Author, i.ID, i.Available)
}
