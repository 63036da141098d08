package allocation

import (
	"github.com/hupe1980/mxmc/internal/container"
	"github.com/hupe1980/mxmc/model"
	"github.com/hupe1980/mxmc/resource"
)

// Option configures New.
type Option func(*options)

type options struct {
	kind    model.Kind
	hasKind bool
}

// WithKind sets the allocation kind. Without it the kind is derived from the
// method tag.
func WithKind(kind model.Kind) Option {
	return func(o *options) {
		o.kind = kind
		o.hasKind = true
	}
}

// Compression selects how persisted allocations are compressed.
type Compression = container.Compression

const (
	// CompressionNone stores the payload as is.
	CompressionNone = container.CompressionNone
	// CompressionLZ4 favours speed.
	CompressionLZ4 = container.CompressionLZ4
	// CompressionZSTD favours size.
	CompressionZSTD = container.CompressionZSTD
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	return container.ParseCompression(s)
}

// SaveOption configures persistence.
type SaveOption func(*saveOptions)

type saveOptions struct {
	compression Compression
	controller  *resource.Controller
}

// WithCompression compresses the persisted payload.
func WithCompression(c Compression) SaveOption {
	return func(o *saveOptions) {
		o.compression = c
	}
}

// WithController throttles persistence IO through rc.
func WithController(rc *resource.Controller) SaveOption {
	return func(o *saveOptions) {
		o.controller = rc
	}
}

func applySaveOptions(opts []SaveOption) saveOptions {
	o := saveOptions{compression: CompressionNone}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
