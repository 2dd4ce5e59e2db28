// Package cache holds the engine's live order books. It is owned by the
// data engine's single goroutine and is not synchronized; readers outside
// that goroutine must go through the bus instead.
package cache

import (
	"errors"
	"fmt"

	"main/internal/book"
	"main/internal/schema"
)

var ErrBookNotFound = errors.New("cache: order book not found")

// Cache is the arena of live order books keyed by instrument.
type Cache struct {
	registry *schema.Registry
	books    map[schema.InstrumentID]*book.OrderBook
}

// New creates an empty cache backed by the instrument registry.
func New(registry *schema.Registry) *Cache {
	return &Cache{
		registry: registry,
		books:    make(map[schema.InstrumentID]*book.OrderBook),
	}
}

// Registry exposes the instrument registry the cache was built on.
func (c *Cache) Registry() *schema.Registry {
	return c.registry
}

// AddOrderBook creates and indexes a book for the instrument. Adding an
// instrument twice replaces the existing book with a fresh one.
func (c *Cache) AddOrderBook(instrumentID schema.InstrumentID) (*book.OrderBook, error) {
	inst, ok := c.registry.Instrument(instrumentID)
	if !ok {
		return nil, fmt.Errorf("cache: unknown instrument %d", instrumentID)
	}

	b := book.NewOrderBook(inst.ID, inst.BookType, inst.Scale)
	c.books[inst.ID] = b
	return b, nil
}

// OrderBook returns the live book for the instrument.
func (c *Cache) OrderBook(instrumentID schema.InstrumentID) (*book.OrderBook, error) {
	b, ok := c.books[instrumentID]
	if !ok {
		return nil, ErrBookNotFound
	}
	return b, nil
}

// HasOrderBook reports whether a book exists for the instrument.
func (c *Cache) HasOrderBook(instrumentID schema.InstrumentID) bool {
	_, ok := c.books[instrumentID]
	return ok
}

// BookCount returns the number of live books.
func (c *Cache) BookCount() int {
	return len(c.books)
}

// EachOrderBook calls fn for every live book; iteration order is
// unspecified.
func (c *Cache) EachOrderBook(fn func(b *book.OrderBook)) {
	for _, b := range c.books {
		fn(b)
	}
}

// OrderBooksForRoot returns the live books whose instrument shares the
// venue and root symbol, e.g. every expiry of one futures contract.
func (c *Cache) OrderBooksForRoot(venueID schema.VenueID, root string) []*book.OrderBook {
	instruments := c.registry.InstrumentsByRoot(venueID, root)
	books := make([]*book.OrderBook, 0, len(instruments))
	for _, inst := range instruments {
		if b, ok := c.books[inst.ID]; ok {
			books = append(books, b)
		}
	}
	return books
}
