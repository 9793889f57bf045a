package provider

// CursorCache remembers the opaque continuation token that requests
// each page index, for the lifetime of one adapter instance. Cursor
// APIs have no random access: the token for page N only comes out of
// the page N-1 response, so a miss means replaying from page zero.
type CursorCache struct {
	tokens map[int]string
}

// NewCursorCache creates an empty cursor cache. Page zero always has
// the empty token.
func NewCursorCache() *CursorCache {
	return &CursorCache{tokens: map[int]string{0: ""}}
}

// Token returns the continuation token that requests the given page
func (c *CursorCache) Token(page int) (string, bool) {
	token, ok := c.tokens[page]
	return token, ok
}

// Store records the token that will request the given page
func (c *CursorCache) Store(page int, token string) {
	c.tokens[page] = token
}

// NearestBelow returns the highest cached page index not greater than
// the target, and its token. Page zero is always available.
func (c *CursorCache) NearestBelow(target int) (page int, token string) {
	for p, t := range c.tokens {
		if p <= target && p >= page {
			page, token = p, t
		}
	}
	return page, token
}
