// Package inflate runs zlib decompression on a bounded pool, separate from
// the network workers so CPU-bound inflation cannot starve them.
package inflate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/sync/semaphore"

	"github.com/quantmind-br/gitripper/internal/domain"
)

// Pool bounds concurrent inflations. It implements domain.Inflater.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	maxBytes int64
}

// DefaultSize returns the pool size derived from available cores
func DefaultSize() int {
	return max(2*runtime.NumCPU(), 4)
}

// NewPool creates a pool running at most size inflations at once. Output
// larger than maxBytes is rejected; zero disables the cap.
func NewPool(size int, maxBytes int64) *Pool {
	if size <= 0 {
		size = DefaultSize()
	}
	return &Pool{
		sem:      semaphore.NewWeighted(int64(size)),
		size:     size,
		maxBytes: maxBytes,
	}
}

// Size returns the number of concurrent inflation slots
func (p *Pool) Size() int {
	return p.size
}

// Inflate waits for a free slot and decompresses data
func (p *Pool) Inflate(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	return Decompress(data, p.maxBytes)
}

// Decompress inflates a zlib stream. A truncated or malformed stream yields
// domain.ErrCorruptObject.
func Decompress(data []byte, maxBytes int64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptObject, err)
	}
	defer zr.Close()

	var src io.Reader = zr
	if maxBytes > 0 {
		src = io.LimitReader(zr, maxBytes+1)
	}

	var out bytes.Buffer
	if _, err := io.Copy(&out, src); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptObject, err)
	}
	if maxBytes > 0 && int64(out.Len()) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", domain.ErrObjectTooLarge, maxBytes)
	}
	return out.Bytes(), nil
}
