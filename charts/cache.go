package charts

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/warp/admin-console/generic"
)

// RenderCache keeps the latest markup of each chart view.
type RenderCache interface {
	// Render returns the view's markup when it was rendered from the same
	// digest, and calls render otherwise.
	Render(view, digest string, render func() (string, error)) (string, error)

	// Invalidate forgets every view. Called when the ledger changes.
	Invalidate()
}

// Cache holds one rendering per view. A rendering is served while it is
// younger than the TTL and its digest matches the current buckets. A zero
// or negative TTL disables caching. Concurrent misses on the same view and
// digest share one render.
type Cache struct {
	ttl    time.Duration
	now    func() time.Time
	flight singleflight.Group

	mu    sync.RWMutex
	views map[string]rendering
}

type rendering struct {
	digest   string
	html     string
	rendered time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:   ttl,
		now:   time.Now,
		views: make(map[string]rendering),
	}
}

func (c *Cache) Render(view, digest string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	if html, ok := c.lookup(view, digest); ok {
		return html, nil
	}

	v, err, _ := c.flight.Do(view+"@"+digest, func() (any, error) {
		html, err := render()
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.views[view] = rendering{digest: digest, html: html, rendered: c.now()}
		c.mu.Unlock()
		return html, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	clear(c.views)
	c.mu.Unlock()
}

// Len reports the number of fresh renderings.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, r := range c.views {
		if c.fresh(r) {
			n++
		}
	}
	return n
}

// Purge drops renderings older than the TTL.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for view, r := range c.views {
		if !c.fresh(r) {
			delete(c.views, view)
		}
	}
}

func (c *Cache) lookup(view, digest string) (string, bool) {
	c.mu.RLock()
	r, ok := c.views[view]
	c.mu.RUnlock()
	if !ok || r.digest != digest || !c.fresh(r) {
		return "", false
	}
	return r.html, true
}

func (c *Cache) fresh(r rendering) bool {
	return c.now().Sub(r.rendered) < c.ttl
}

// bucketDigest fingerprints the values a chart is drawn from.
func bucketDigest(buckets []generic.Bucket) string {
	h := sha1.New()
	for _, b := range buckets {
		fmt.Fprintf(h, "%s=%s;", b.Label, b.Total.String())
	}
	return hex.EncodeToString(h.Sum(nil))
}
