package table

import (
	"context"
	"fmt"

	blockpkg "github.com/vernedeng/risingwave/internal/block"
	"github.com/vernedeng/risingwave/internal/filter"
	"github.com/vernedeng/risingwave/internal/objstore"
)

// Reader provides random access to a table stored at path. It parses the
// footer and index eagerly; data blocks are loaded lazily on demand
// (spec §4.2 "table reader ... lazily loads blocks on demand").
type Reader struct {
	store  objstore.Store
	path   string
	size   int64
	footer Footer
	index  *blockpkg.Block
	filter *filter.Reader
}

// Open parses the footer, block index, and Bloom filter (if present) of
// the table stored at path. size is the table's total byte length.
func Open(ctx context.Context, store objstore.Store, path string, size int64) (*Reader, error) {
	if size < FooterLength {
		return nil, fmt.Errorf("table: %w: size %d smaller than footer", ErrTruncatedFooter, size)
	}

	footerBytes, err := store.Get(ctx, path, objstore.ByteRange{Offset: size - FooterLength, Length: FooterLength})
	if err != nil {
		return nil, err
	}
	footer, err := DecodeFooter(footerBytes)
	if err != nil {
		return nil, err
	}

	indexBytes, err := store.Get(ctx, path, objstore.ByteRange{Offset: int64(footer.IndexOffset), Length: int64(footer.IndexLength)})
	if err != nil {
		return nil, err
	}
	index, err := blockpkg.New(indexBytes)
	if err != nil {
		return nil, fmt.Errorf("table: %w: bad index block", ErrBadMagic)
	}

	var filterReader *filter.Reader
	if footer.FilterLength > 0 {
		filterBytes, err := store.Get(ctx, path, objstore.ByteRange{Offset: int64(footer.FilterOffset), Length: int64(footer.FilterLength)})
		if err != nil {
			return nil, err
		}
		filterReader = filter.NewReader(filterBytes)
	}

	return &Reader{
		store:  store,
		path:   path,
		size:   size,
		footer: footer,
		index:  index,
		filter: filterReader,
	}, nil
}

// MayContain reports whether userKey might be present in this table,
// consulting the Bloom filter when one was written. A table built
// without a filter always returns true.
func (r *Reader) MayContain(userKey []byte) bool {
	if r.filter == nil {
		return true
	}
	return r.filter.MayContain(userKey)
}

// IndexIterator returns an iterator over the table's block index:
// (last full key of block, encoded block Handle) pairs in ascending
// order.
func (r *Reader) IndexIterator() *blockpkg.Iterator {
	return r.index.NewIterator()
}

// ReadBlock fetches, verifies, and decodes the data block at h.
func (r *Reader) ReadBlock(ctx context.Context, h blockpkg.Handle) (*blockpkg.Block, error) {
	body, err := readDataBlock(ctx, r.store, r.path, h, r.footer.ChecksumAlgo)
	if err != nil {
		return nil, err
	}
	blk, err := blockpkg.New(body)
	if err != nil {
		return nil, fmt.Errorf("table: %w: bad data block", ErrBadMagic)
	}
	return blk, nil
}

// Size returns the table's total size in bytes, including the footer.
func (r *Reader) Size() int64 {
	return r.size
}
