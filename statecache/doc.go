// Package statecache is an observable in-memory key-value cache mirrored to a
// durable kvstore.Store.
//
// Reads are served from memory and never touch the store. Writes update
// memory and notify subscribers synchronously, then reach the store in
// debounced batches:
//
//	cache, err := statecache.New(store, statecache.WithLogger(log))
//	if _, err := cache.Initialize(ctx); err != nil { ... }
//
//	res := cache.Set(statecache.Values{statecache.FieldSheetID: "abc"}, false)
//	cache.Get(statecache.FieldSheetID) // "abc", before the write lands
//	if err := res.Wait(ctx); err != nil { ... } // PERSISTENCE_FAILED
//
// Fields are declared up front in a Schema. DefaultSchema describes the
// bank to spreadsheet sync state; cached remote data (accounts,
// spreadsheets) carries a "<category>LastFetched" timestamp used by IsStale.
package statecache
