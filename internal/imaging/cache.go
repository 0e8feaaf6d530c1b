package imaging

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/danmuck/eftview/internal/record"
	"github.com/decred/dcrd/lru"
)

// Cache is a content-addressed raster cache. Rasters are shared between hits
// and must be treated as read-only.
type Cache struct {
	entries lru.KVCache
}

func NewCache(limit uint) *Cache {
	return &Cache{entries: lru.NewKVCache(limit)}
}

type cacheKey [sha256.Size]byte

func keyFor(c record.Compression, dims Dimensions, payload []byte) cacheKey {
	var hdr [16]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(c))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(dims.Width))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(dims.Height))
	binary.BigEndian.PutUint32(hdr[12:16], uint32(dims.Depth))
	h := sha256.New()
	h.Write(hdr[:])
	h.Write(payload)
	var k cacheKey
	copy(k[:], h.Sum(nil))
	return k
}

func (c *Cache) lookup(k cacheKey) (*record.Raster, bool) {
	v, ok := c.entries.Lookup(k)
	if !ok {
		return nil, false
	}
	r, ok := v.(*record.Raster)
	return r, ok
}

func (c *Cache) add(k cacheKey, r *record.Raster) {
	c.entries.Add(k, r)
}
