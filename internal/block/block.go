package block

import (
	"bytes"
	"encoding/binary"

	"github.com/vernedeng/risingwave/internal/encoding"
)

// Block is a parsed, read-only view over a block body produced by Builder.
type Block struct {
	data        []byte
	restarts    int // offset of the restart array within data
	numRestarts int
}

// New parses a block body. data is not copied; the caller must keep it
// alive for the Block's lifetime.
func New(data []byte) (*Block, error) {
	if len(data) < 4 {
		return nil, ErrBadBlock
	}
	numRestarts := binary.LittleEndian.Uint32(data[len(data)-4:])
	restartsSize := int(numRestarts)*4 + 4
	if numRestarts == 0 || restartsSize > len(data) {
		return nil, ErrBadBlock
	}
	return &Block{
		data:        data,
		restarts:    len(data) - restartsSize,
		numRestarts: int(numRestarts),
	}, nil
}

// Size returns the size of the block's backing data.
func (b *Block) Size() int {
	return len(b.data)
}

func (b *Block) restartPoint(i int) int {
	offset := b.restarts + i*4
	return int(binary.LittleEndian.Uint32(b.data[offset:]))
}

// Iterator scans a Block's entries in full-key order.
type Iterator struct {
	block       *Block
	data        []byte
	restartsEnd int
	current     int
	nextOffset  int
	key         []byte
	value       []byte
	valid       bool
	err         error
}

// NewIterator creates an Iterator over b.
func (b *Block) NewIterator() *Iterator {
	return &Iterator{block: b, data: b.data, restartsEnd: b.restarts}
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool { return it.valid && it.err == nil }

// Key returns the current full key. Only valid when Valid().
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current value. Only valid when Valid().
func (it *Iterator) Value() []byte { return it.value }

// Error returns any error encountered while iterating.
func (it *Iterator) Error() error { return it.err }

// SeekToFirst positions the iterator at the block's first entry.
func (it *Iterator) SeekToFirst() {
	it.key = it.key[:0]
	it.value = nil
	it.valid = false
	it.current = 0
	it.nextOffset = 0
	it.Next()
}

// SeekToLast positions the iterator at the block's last entry.
func (it *Iterator) SeekToLast() {
	it.seekToRestartPoint(it.block.numRestarts - 1)

	var lastKey, lastValue []byte
	var lastCurrent, lastNextOffset int
	found := false
	for {
		it.Next()
		if !it.Valid() {
			break
		}
		lastKey = append(lastKey[:0], it.key...)
		lastValue = it.value
		lastCurrent = it.current
		lastNextOffset = it.nextOffset
		found = true
	}
	if found {
		it.key = lastKey
		it.value = lastValue
		it.current = lastCurrent
		it.nextOffset = lastNextOffset
		it.valid = true
	}
}

// Next advances to the next entry.
func (it *Iterator) Next() {
	if it.err != nil {
		it.valid = false
		return
	}
	if it.nextOffset >= it.restartsEnd {
		it.valid = false
		return
	}
	it.current = it.nextOffset
	it.parseCurrentEntry()
}

// Prev moves to the entry preceding the current one.
// REQUIRES: Valid().
func (it *Iterator) Prev() {
	if it.err != nil {
		it.valid = false
		return
	}
	original := it.current

	restartIndex := it.findRestartPointBefore(original)
	if it.block.restartPoint(restartIndex) == original && restartIndex > 0 {
		restartIndex--
	}
	it.seekToRestartPoint(restartIndex)

	var prevKey, prevValue []byte
	var prevCurrent, prevNextOffset int
	found := false
	for {
		it.Next()
		if !it.Valid() || it.current >= original {
			break
		}
		prevKey = append(prevKey[:0], it.key...)
		prevValue = it.value
		prevCurrent = it.current
		prevNextOffset = it.nextOffset
		found = true
	}
	if found {
		it.key = prevKey
		it.value = prevValue
		it.current = prevCurrent
		it.nextOffset = prevNextOffset
		it.valid = true
	} else {
		it.valid = false
	}
}

// Seek positions the iterator at the first entry whose key is >= target.
func (it *Iterator) Seek(target []byte) {
	left, right := 0, it.block.numRestarts-1
	for left < right {
		mid := (left + right + 1) / 2
		it.seekToRestartPoint(mid)
		it.Next()
		if !it.Valid() || bytes.Compare(it.key, target) > 0 {
			right = mid - 1
		} else {
			left = mid
		}
	}

	it.seekToRestartPoint(left)
	for {
		it.Next()
		if !it.Valid() {
			return
		}
		if bytes.Compare(it.key, target) >= 0 {
			return
		}
	}
}

func (it *Iterator) findRestartPointBefore(target int) int {
	left, right := 0, it.block.numRestarts-1
	for left < right {
		mid := (left + right + 1) / 2
		if it.block.restartPoint(mid) <= target {
			left = mid
		} else {
			right = mid - 1
		}
	}
	return left
}

func (it *Iterator) seekToRestartPoint(index int) {
	it.key = it.key[:0]
	it.value = nil
	it.valid = false
	offset := max(it.block.restartPoint(index), 0)
	it.current = offset
	it.nextOffset = offset
}

func (it *Iterator) parseCurrentEntry() {
	if it.current >= it.restartsEnd {
		it.valid = false
		return
	}
	data := it.data[it.current:]

	shared, n1, err := encoding.DecodeVarint32(data)
	if err != nil {
		it.err = ErrBadBlock
		it.valid = false
		return
	}
	data = data[n1:]

	unshared, n2, err := encoding.DecodeVarint32(data)
	if err != nil {
		it.err = ErrBadBlock
		it.valid = false
		return
	}
	data = data[n2:]

	valueLen, n3, err := encoding.DecodeVarint32(data)
	if err != nil {
		it.err = ErrBadBlock
		it.valid = false
		return
	}
	data = data[n3:]

	if int(shared) > len(it.key) || len(data) < int(unshared)+int(valueLen) {
		it.err = ErrBadBlock
		it.valid = false
		return
	}

	it.key = append(it.key[:shared], data[:unshared]...)
	data = data[unshared:]
	it.value = data[:valueLen]

	consumed := n1 + n2 + n3 + int(unshared) + int(valueLen)
	it.nextOffset = it.current + consumed
	it.valid = true
}
