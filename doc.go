// Package tlcache provides a namespaced cache for translation groups on top
// of flat key-value stores.
//
// Entries are addressed by (locale, group, namespace). Every key the
// repository writes is recorded in a registry entry stored without expiry,
// so the whole translation cache can be flushed on stores that cannot list
// or pattern-delete their keys, without touching unrelated entries.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/tlcache"
//	    "github.com/ZaguanLabs/tlcache/cache"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    repo, err := tlcache.NewRepository[tlcache.Lines](cache.NewMemoryStore(), "translation")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Cache a group for an hour
//	    _ = repo.Put(ctx, "en", "messages", "*", tlcache.Lines{"hello": "Hello"}, 60)
//
//	    lines, ok, _ := repo.Get(ctx, "en", "messages", "*")
//	    fmt.Println(lines["hello"], ok) // Hello true
//
//	    // Drop everything this repository ever cached
//	    _ = repo.FlushAll(ctx)
//	}
//
// Registry updates use the store's atomic set commands when it has them
// (cache.RedisStore, cache.SQLStore). Other stores get a locked
// read-modify-write; the default lock is process-local, pass
// cache.RedisLocker via WithLocker to serialize across processes.
package tlcache
