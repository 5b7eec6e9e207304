package iterator

import (
	"context"

	blockpkg "github.com/vernedeng/risingwave/internal/block"
	"github.com/vernedeng/risingwave/internal/table"
)

// TableIterator walks a single table's entries in ascending full-key
// order. It binary-searches the table's block index to find the block
// containing a seek target, then lazily instantiates a block.Iterator
// over that block (spec §4.4 TableIterator).
type TableIterator struct {
	ctx    context.Context
	reader *table.Reader
	index  *blockpkg.Iterator

	dataIter *blockpkg.Iterator
	err      error
}

// NewTableIterator creates a TableIterator over reader.
func NewTableIterator(ctx context.Context, reader *table.Reader) *TableIterator {
	return &TableIterator{ctx: ctx, reader: reader, index: reader.IndexIterator()}
}

func (it *TableIterator) Valid() bool {
	return it.err == nil && it.dataIter != nil && it.dataIter.Valid()
}

func (it *TableIterator) Key() []byte {
	return it.dataIter.Key()
}

func (it *TableIterator) Value() []byte {
	return it.dataIter.Value()
}

func (it *TableIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	if it.dataIter != nil {
		return it.dataIter.Error()
	}
	return nil
}

// SeekToFirst positions at the table's first entry.
func (it *TableIterator) SeekToFirst() {
	it.index.SeekToFirst()
	it.loadDataIterAndSeekFirst()
}

// SeekToLast positions at the table's last entry.
func (it *TableIterator) SeekToLast() {
	it.index.SeekToLast()
	it.loadDataIterAndSeekLast()
}

// Seek positions at the first entry with key >= target.
func (it *TableIterator) Seek(target []byte) {
	it.index.Seek(target)
	if !it.index.Valid() {
		it.dataIter = nil
		return
	}
	if !it.loadDataIter() {
		return
	}
	it.dataIter.Seek(target)
	if !it.dataIter.Valid() {
		it.advanceIndexAndSeekFirst()
	}
}

// Next advances to the next entry, crossing into the next block when the
// current one is exhausted.
func (it *TableIterator) Next() {
	if it.dataIter == nil {
		return
	}
	it.dataIter.Next()
	if !it.dataIter.Valid() {
		it.advanceIndexAndSeekFirst()
	}
}

// Prev moves to the preceding entry, crossing into the previous block
// when needed.
func (it *TableIterator) Prev() {
	if it.dataIter == nil {
		return
	}
	it.dataIter.Prev()
	if !it.dataIter.Valid() {
		it.index.Prev()
		it.loadDataIterAndSeekLast()
	}
}

func (it *TableIterator) loadDataIter() bool {
	if !it.index.Valid() {
		it.dataIter = nil
		return false
	}
	handle, _, err := blockpkg.DecodeHandle(it.index.Value())
	if err != nil {
		it.err = err
		it.dataIter = nil
		return false
	}
	blk, err := it.reader.ReadBlock(it.ctx, handle)
	if err != nil {
		it.err = err
		it.dataIter = nil
		return false
	}
	it.dataIter = blk.NewIterator()
	return true
}

func (it *TableIterator) loadDataIterAndSeekFirst() {
	if !it.loadDataIter() {
		return
	}
	it.dataIter.SeekToFirst()
}

func (it *TableIterator) loadDataIterAndSeekLast() {
	if !it.loadDataIter() {
		return
	}
	it.dataIter.SeekToLast()
}

func (it *TableIterator) advanceIndexAndSeekFirst() {
	it.index.Next()
	it.loadDataIterAndSeekFirst()
}
