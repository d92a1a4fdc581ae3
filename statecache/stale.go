package statecache

import (
	"context"
	"time"
)

// IsStale reports whether the data of category needs refetching: its
// LastFetched timestamp is absent or older than the category TTL.
func (c *Cache) IsStale(category string) bool {
	ttl := c.cfg.TTLFor(category)

	c.mu.Lock()
	v := c.state[LastFetchedField(category)]
	c.mu.Unlock()

	fetched, ok := v.(int64)
	if !ok {
		return true
	}
	age := c.clock.Now().UnixMilli() - fetched
	return age > ttl.Milliseconds()
}

// Age returns how long ago category was fetched, and false if never.
func (c *Cache) Age(category string) (time.Duration, bool) {
	fetched, ok := Lookup[int64](c, LastFetchedField(category))
	if !ok {
		return 0, false
	}
	return c.clock.Now().Sub(time.UnixMilli(fetched)), true
}

// SetCached stores data for category together with its LastFetched time.
func (c *Cache) SetCached(category string, data any) *Result {
	return c.Set(Values{
		category:                   data,
		LastFetchedField(category): c.clock.Now().UnixMilli(),
	}, false)
}

// SetCachedAccounts caches the account list as fetched now.
func (c *Cache) SetCachedAccounts(accounts []Account) *Result {
	return c.SetCached(CategoryAccounts, accounts)
}

// CachedAccounts returns the cached accounts, or false if absent or stale.
func (c *Cache) CachedAccounts() ([]Account, bool) {
	return cached[[]Account](c, CategoryAccounts)
}

// SetCachedSpreadsheets caches the spreadsheet list as fetched now.
func (c *Cache) SetCachedSpreadsheets(sheets []Spreadsheet) *Result {
	return c.SetCached(CategorySpreadsheets, sheets)
}

// CachedSpreadsheets returns the cached spreadsheets, or false if absent or stale.
func (c *Cache) CachedSpreadsheets() ([]Spreadsheet, bool) {
	return cached[[]Spreadsheet](c, CategorySpreadsheets)
}

func cached[T any](c *Cache, category string) (T, bool) {
	if c.IsStale(category) {
		var zero T
		return zero, false
	}
	return Lookup[T](c, category)
}

// Invalidate drops the LastFetched time of category so the next IsStale
// reports true. The cached data is kept.
func (c *Cache) Invalidate(ctx context.Context, category string) error {
	return c.SetAndWait(ctx, Values{LastFetchedField(category): nil}, true)
}
