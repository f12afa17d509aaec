package tilecoder

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/fnv"
)

// IndexHashTable is the codebook of a hashing TileCoder. It assigns
// each new codeword the next free index in [0, Size()) until the table
// is full. After that, unseen codewords are folded into [0, Size()) by
// an FNV-1a hash of the codeword, which may alias a codeword that
// already owns the index.
//
// Once a codeword has been given an index the mapping never changes,
// and the table never shrinks.
type IndexHashTable struct {
	size      int
	indices   map[string]int
	overflows int

	// Scratch space for serialising codewords
	buf []byte
}

// NewIndexHashTable returns an empty IndexHashTable with room for size
// explicit codewords
func NewIndexHashTable(size int) (*IndexHashTable, error) {
	if size < 1 {
		return nil, fmt.Errorf("newIndexHashTable: size must be positive "+
			"(size = %d)", size)
	}

	return &IndexHashTable{
		size:    size,
		indices: make(map[string]int),
	}, nil
}

// Index returns the feature index of codeword, inserting the codeword
// if it is unseen and the table still has room.
func (h *IndexHashTable) Index(codeword []int) int {
	key := h.key(codeword)
	if index, ok := h.indices[string(key)]; ok {
		return index
	}

	if len(h.indices) >= h.size {
		h.overflows++
		return Hash(key, h.size)
	}

	index := len(h.indices)
	h.indices[string(key)] = index
	return index
}

// key serialises a codeword: each field is written in order as a
// little-endian two's complement int64.
func (h *IndexHashTable) key(codeword []int) []byte {
	n := 8 * len(codeword)
	if cap(h.buf) < n {
		h.buf = make([]byte, n)
	}
	h.buf = h.buf[:n]

	for i, field := range codeword {
		binary.LittleEndian.PutUint64(h.buf[8*i:], uint64(int64(field)))
	}
	return h.buf
}

// Hash folds a serialised codeword into [0, size) using 64-bit FNV-1a
func Hash(key []byte, size int) int {
	f := fnv.New64a()
	f.Write(key)
	return int(f.Sum64() % uint64(size))
}

// Count returns the number of codewords with an explicit index
func (h *IndexHashTable) Count() int {
	return len(h.indices)
}

// Size returns the capacity of the table
func (h *IndexHashTable) Size() int {
	return h.size
}

// Full returns whether every index has been explicitly assigned
func (h *IndexHashTable) Full() bool {
	return len(h.indices) >= h.size
}

// Overflows returns how many lookups fell back to hashing
func (h *IndexHashTable) Overflows() int {
	return h.overflows
}

func (h *IndexHashTable) String() string {
	return fmt.Sprintf("IndexHashTable | Size: %d  |  Count: %d  |  "+
		"Overflows: %d", h.size, len(h.indices), h.overflows)
}

// indexHashTableGob is the serialised form of an IndexHashTable
type indexHashTableGob struct {
	Size      int
	Indices   map[string]int
	Overflows int
}

// GobEncode implements the gob.GobEncoder interface
func (h *IndexHashTable) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	err := enc.Encode(indexHashTableGob{h.size, h.indices, h.overflows})
	if err != nil {
		return nil, fmt.Errorf("gobEncode: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (h *IndexHashTable) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var table indexHashTableGob
	if err := dec.Decode(&table); err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	if table.Size < 1 {
		return fmt.Errorf("gobDecode: size must be positive (size = %d)",
			table.Size)
	}
	if len(table.Indices) > table.Size {
		return fmt.Errorf("gobDecode: %d codewords cannot fit in a table "+
			"of size %d", len(table.Indices), table.Size)
	}

	// gob drops empty maps
	if table.Indices == nil {
		table.Indices = make(map[string]int)
	}

	h.size = table.Size
	h.indices = table.Indices
	h.overflows = table.Overflows
	return nil
}
