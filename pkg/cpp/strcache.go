package cpp

// strCache interns strings (identifiers and filenames) behind a fixed
// 256-bucket hash table with move-to-front promotion on lookup, so that
// hot names (a macro name seen on every line, the current filename)
// settle at the head of their bucket.

const strCacheBuckets = 256

type strCacheEntry struct {
	s    string
	next *strCacheEntry
}

type strCache struct {
	buckets [strCacheBuckets]*strCacheEntry
}

func newStrCache() *strCache {
	return &strCache{}
}

// djb2Hash is the djb2 string hash with an xor fold-in, unified across
// this package (strCache and MacroTable both use it) so a macro name's
// hash value is the same whether it's looked up via the string cache or
// the macro table directly.
func djb2Hash(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 ^ uint32(s[i])
	}
	return h
}

// Intern returns the cached copy of s, inserting it if absent, and
// promotes it to the front of its bucket.
func (c *strCache) Intern(s string) string {
	bucket := djb2Hash(s) % strCacheBuckets
	head := c.buckets[bucket]

	if head != nil && head.s == s {
		return head.s
	}

	var prev *strCacheEntry
	for e := head; e != nil; e = e.next {
		if e.s == s {
			if prev != nil {
				prev.next = e.next
				e.next = c.buckets[bucket]
				c.buckets[bucket] = e
			}
			return e.s
		}
		prev = e
	}

	e := &strCacheEntry{s: s, next: head}
	c.buckets[bucket] = e
	return e.s
}
