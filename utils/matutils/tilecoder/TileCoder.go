// Package tilecoder implements hashing tile coding of vectors
package tilecoder

import (
	"fmt"
	"math"
)

// OffsetStride controls how far successive input dimensions are
// displaced between layers. Layer l is shifted by (1 + OffsetStride*i)*l
// scaled units along dimension i, so layers are displaced by the odd
// vector (1, 3, 5, ...) and are never aligned along a diagonal.
const OffsetStride int = 2

// TileCoder implements hashing tile coding. Tile coding overlays a
// number of offset grids, called layers or tilings, on a bounded input
// space. Each layer contributes exactly one active feature for an input,
// so an input is represented by layers indices into a feature vector of
// length Features(). For example, with 2 layers:
//
//	[0.5, 0.1] -> [3, 12]
//
// Rather than laying out every tile of every layer densely, each
// (layer, tile coordinates, discrete inputs) codeword is given an index
// by an IndexHashTable on first use. Memory therefore only grows with
// the part of the input space which is actually visited, and the
// number of features is fixed up front. Once the table is full, new
// codewords share indices through hashing.
//
// Discrete inputs, such as an action, are appended to every codeword
// so that each discrete value gets its own independent tiling.
//
// A TileCoder is not safe for concurrent use, since encoding mutates
// its table.
type TileCoder struct {
	layers int
	table  *IndexHashTable

	// Scratch space for building codewords
	codeword []int
}

// New creates and returns a new TileCoder with the given number of
// layers (tilings) and features (capacity of the codebook)
func New(layers, features int) (*TileCoder, error) {
	if layers < 1 {
		return nil, fmt.Errorf("tilecoder: cannot have less than 1 layer "+
			"(layers = %d)", layers)
	}
	if features < 1 {
		return nil, fmt.Errorf("tilecoder: cannot have less than 1 "+
			"feature (features = %d)", features)
	}

	table, err := NewIndexHashTable(features)
	if err != nil {
		return nil, fmt.Errorf("tilecoder: %v", err)
	}

	return &TileCoder{layers: layers, table: table}, nil
}

// Encode returns the indices of the active features of the input. The
// continuous inputs should each be normalized to [0, 1] by the caller.
// Exactly Layers() indices are returned, in layer order. Indices may
// repeat when the codebook is full and hashes collide.
//
// Encoding may add new codewords to the codebook, so the indices
// returned for an input depend on the history of calls.
func (t *TileCoder) Encode(continuous []float64, discrete ...int) []int {
	return t.EncodeInto(make([]int, t.layers), continuous, discrete...)
}

// EncodeInto is like Encode but writes the indices into dst, which must
// have length Layers(), and returns it
func (t *TileCoder) EncodeInto(dst []int, continuous []float64,
	discrete ...int) []int {
	if len(dst) != t.layers {
		panic(fmt.Sprintf("encodeInto: destination should have length %d "+
			"(length = %d)", t.layers, len(dst)))
	}

	// Codeword layout: layer, one coordinate per continuous input,
	// then the discrete inputs
	n := 1 + len(continuous) + len(discrete)
	if cap(t.codeword) < n {
		t.codeword = make([]int, n)
	}
	codeword := t.codeword[:n]
	copy(codeword[1+len(continuous):], discrete)

	layers := float64(t.layers)
	scale := layers * layers

	for l := 0; l < t.layers; l++ {
		codeword[0] = l
		for i, x := range continuous {
			f := x * scale
			offset := float64((1 + OffsetStride*i) * l)
			codeword[1+i] = int(math.Floor((f + offset) / layers))
		}
		dst[l] = t.table.Index(codeword)
	}
	return dst
}

// Layers returns the number of layers (tilings) used
func (t *TileCoder) Layers() int {
	return t.layers
}

// Features returns the number of features in the tile-coded
// representation, which is the capacity of the codebook
func (t *TileCoder) Features() int {
	return t.table.Size()
}

// Table returns the codebook of the TileCoder
func (t *TileCoder) Table() *IndexHashTable {
	return t.table
}

// String returns a string representation of a *TileCoder
func (t *TileCoder) String() string {
	return fmt.Sprintf("Layers: %d  |  %v", t.layers, t.table)
}

// NewFromTable returns a TileCoder using an existing codebook, for
// example one restored from a checkpoint
func NewFromTable(layers int, table *IndexHashTable) (*TileCoder, error) {
	if layers < 1 {
		return nil, fmt.Errorf("tilecoder: cannot have less than 1 layer "+
			"(layers = %d)", layers)
	}
	if table == nil {
		return nil, fmt.Errorf("tilecoder: table cannot be nil")
	}
	return &TileCoder{layers: layers, table: table}, nil
}
