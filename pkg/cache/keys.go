package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Hash returns the hex SHA-256 of data. Thumbnail descriptors and emitted
// documents are compared by it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Keyer derives cache keys.
type Keyer interface {
	ThumbnailKey(descriptorHash string, opts ThumbnailKeyOpts) string
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ThumbnailKey returns "thumb:<sha256>" over the descriptor hash and the
// render options.
func (DefaultKeyer) ThumbnailKey(descriptorHash string, opts ThumbnailKeyOpts) string {
	data, _ := json.Marshal([]any{descriptorHash, opts})
	return "thumb:" + Hash(data)
}

// ScopedKeyer places the keys of an inner Keyer under a namespace, so that
// projects sharing one Redis instance keep their thumbnails apart:
//
//	keyer := NewScopedKeyer(nil, "shooter") // shooter:thumb:...
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (DefaultKeyer when nil). A ':' separator is
// appended to scope unless it already ends with one.
func NewScopedKeyer(inner Keyer, scope string) *ScopedKeyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	if scope != "" && !strings.HasSuffix(scope, ":") {
		scope += ":"
	}
	return &ScopedKeyer{inner: inner, prefix: scope}
}

func (k *ScopedKeyer) ThumbnailKey(descriptorHash string, opts ThumbnailKeyOpts) string {
	return k.prefix + k.inner.ThumbnailKey(descriptorHash, opts)
}
