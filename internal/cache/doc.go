// Gridscope - Interactive SQL Data Exploration Grid
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gridscope

/*
Package cache provides the query result cache.

LRUCache is a generic, thread-safe least recently used cache with a fixed
capacity and a per-entry TTL. Expired entries are dropped lazily on access or
in bulk with CleanupExpired.

Cache instances are constructed and injected, never package globals:

	results := cache.NewLRUCache[*models.QueryResult](cfg.Cache.Capacity, cfg.Cache.TTL)
	key := cache.GenerateKey("query", req)
	if res, ok := results.Get(key); ok {
	    return res, nil
	}

GenerateKey hashes the JSON encoding of its parameters, so structurally equal
requests share a key.
*/
package cache
