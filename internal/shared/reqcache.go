package shared

// RequestCache holds objects resolved during a single inbound request so the
// same lookup is not repeated within one authorization pass. It is owned
// exclusively by the in-flight request; its lifetime ends with the request.
type RequestCache struct {
	items map[string]any
}

// NewRequestCache returns an empty cache.
func NewRequestCache() *RequestCache {
	return &RequestCache{items: make(map[string]any)}
}

// Get returns the cached object for key, if present.
func (c *RequestCache) Get(key string) (any, bool) {
	if c == nil || c.items == nil {
		return nil, false
	}
	v, ok := c.items[key]
	return v, ok
}

// Put stores an object under key, replacing any previous entry.
func (c *RequestCache) Put(key string, v any) {
	if c == nil {
		return
	}
	if c.items == nil {
		c.items = make(map[string]any)
	}
	c.items[key] = v
}
