package cache

// ScopedKeyer wraps a Keyer with a prefix. The CLI scopes keys by release
// so that a hierarchy cached by one version is never read by another:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "v0.4.0:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// BuildKey generates a prefixed build key.
func (k *ScopedKeyer) BuildKey(docHash string, opts BuildKeyOpts) string {
	return k.prefix + k.inner.BuildKey(docHash, opts)
}

// RenderKey generates a prefixed render key.
func (k *ScopedKeyer) RenderKey(buildKey string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(buildKey, opts)
}
