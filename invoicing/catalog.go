package invoicing

import (
	"context"
	"sort"
	"strings"
)

// Catalog is a read-only snapshot of items, used to fill new lines and to
// check that lines reference real items. The zero value and nil are empty.
type Catalog struct {
	byID  map[int]Item
	items []Item
}

func NewCatalog(items []Item) *Catalog {
	c := &Catalog{byID: make(map[int]Item, len(items))}
	for _, it := range items {
		c.byID[it.ItemID] = it
	}
	c.items = make([]Item, 0, len(c.byID))
	for _, it := range c.byID {
		c.items = append(c.items, it)
	}
	sort.Slice(c.items, func(i, j int) bool {
		a, b := strings.ToLower(c.items[i].ItemName), strings.ToLower(c.items[j].ItemName)
		if a != b {
			return a < b
		}
		return c.items[i].ItemID < c.items[j].ItemID
	})
	return c
}

func (c *Catalog) ByID(id int) (Item, bool) {
	if c == nil {
		return Item{}, false
	}
	it, ok := c.byID[id]
	return it, ok
}

// Items returns the snapshot ordered by name.
func (c *Catalog) Items() []Item {
	if c == nil {
		return nil
	}
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

type catalogKey struct{}

// WithCatalog attaches c so that validation checks line items against it.
func WithCatalog(ctx context.Context, c *Catalog) context.Context {
	return context.WithValue(ctx, catalogKey{}, c)
}

func CatalogFromContext(ctx context.Context) (*Catalog, bool) {
	c, ok := ctx.Value(catalogKey{}).(*Catalog)
	return c, ok && c != nil
}
