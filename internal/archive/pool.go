package archive

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// decoderPool keeps zstd decoders for reuse across archive loads. A Store
// reloading the same list repeatedly decodes with warm decoders.
type decoderPool struct {
	pool      sync.Pool
	maxMemory uint64
}

// newDecoderPool creates a pool whose decoders refuse windows larger than
// maxMemory. Zero means the library default.
func newDecoderPool(maxMemory uint64) *decoderPool {
	p := &decoderPool{maxMemory: maxMemory}
	p.pool.New = func() any {
		dec, err := p.newDecoder(nil)
		if err != nil {
			return nil
		}
		return dec
	}
	return p
}

// get returns a decoder reading from r and a release func that must be
// called when the caller is done with it.
func (p *decoderPool) get(r io.Reader) (*zstd.Decoder, func(), error) {
	dec, ok := p.pool.Get().(*zstd.Decoder)
	if !ok {
		// New failed; build a one-off decoder so the error surfaces.
		fresh, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return fresh, fresh.Close, nil
	}

	if err := dec.Reset(r); err != nil {
		dec.Close()
		fresh, err := p.newDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		return fresh, fresh.Close, nil
	}

	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

func (p *decoderPool) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if p.maxMemory > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(p.maxMemory))
	}
	return zstd.NewReader(r, opts...)
}
