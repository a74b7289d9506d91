// internal/app/store/colleges/cache.go
package collegestore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/hackreg/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/patrickmn/go-cache"
)

// Directory is the read/write surface handlers and validation use.
type Directory interface {
	Search(ctx context.Context, search string, limit int64) ([]models.College, error)
	ExistsByNameCI(ctx context.Context, nameCI string) (bool, error)
	Create(ctx context.Context, name string) (models.College, error)
}

// Cached fronts a Directory with a short-lived in-process cache. The
// directory changes rarely and is read on every keystroke of the college
// picker. Any Create flushes the cache.
type Cached struct {
	next  Directory
	cache *cache.Cache
}

// NewCached wraps next. ttl <= 0 uses five minutes.
func NewCached(next Directory, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cached{next: next, cache: cache.New(ttl, 2*ttl)}
}

func searchKey(search string, limit int64) string {
	return "search:" + strconv.FormatInt(limit, 10) + ":" + text.Fold(strings.TrimSpace(search))
}

func (c *Cached) Search(ctx context.Context, search string, limit int64) ([]models.College, error) {
	key := searchKey(search, limit)
	if v, ok := c.cache.Get(key); ok {
		return v.([]models.College), nil
	}
	out, err := c.next.Search(ctx, search, limit)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, out)
	return out, nil
}

// ExistsByNameCI caches positive answers only, so a college created by
// another process is seen as soon as it exists.
func (c *Cached) ExistsByNameCI(ctx context.Context, nameCI string) (bool, error) {
	key := "exists:" + nameCI
	if _, ok := c.cache.Get(key); ok {
		return true, nil
	}
	ok, err := c.next.ExistsByNameCI(ctx, nameCI)
	if err != nil {
		return false, err
	}
	if ok {
		c.cache.SetDefault(key, true)
	}
	return ok, nil
}

func (c *Cached) Create(ctx context.Context, name string) (models.College, error) {
	col, err := c.next.Create(ctx, name)
	if err != nil {
		return col, err
	}
	c.cache.Flush()
	c.cache.SetDefault("exists:"+col.NameCI, true)
	return col, nil
}
