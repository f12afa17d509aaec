package sarsalambda

import (
	"bytes"
	"encoding"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/tilesarsa/utils/matutils/tilecoder"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// checkpoint is the serialized form of a SarsaLambda
type checkpoint struct {
	Config     Config
	Low        []float64
	Width      []float64
	NumActions int
	Epsilon    float64
	Seed       uint64
	Weights    []float64
	Traces     []float64
	Table      *tilecoder.IndexHashTable

	// State of the source of randomness, empty if the source cannot be
	// marshaled
	Source []byte
}

// GobEncode implements the gob.GobEncoder interface. The weights,
// traces, tile coder table, configuration, observation bounds, and
// current ε are saved. The state of the source of randomness is saved
// if the source implements encoding.BinaryMarshaler, which sources
// created with rand.NewSource do.
func (s *SarsaLambda) GobEncode() ([]byte, error) {
	low, width := s.Bounds()
	c := checkpoint{
		Config:     s.config,
		Low:        low,
		Width:      width,
		NumActions: s.values.NumActions(),
		Epsilon:    s.Epsilon(),
		Seed:       s.seed,
		Weights:    mat.Col(nil, 0, s.Weights()),
		Traces:     mat.Col(nil, 0, s.Traces()),
		Table:      s.values.Coder().Table(),
	}

	if m, ok := s.Source().(encoding.BinaryMarshaler); ok {
		state, err := m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("sarsalambda: could not save source: %w",
				err)
		}
		c.Source = state
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("sarsalambda: gobEncode: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. If no source state
// was saved, a new source is seeded with the agent's original seed.
func (s *SarsaLambda) GobDecode(in []byte) error {
	var c checkpoint
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&c); err != nil {
		return fmt.Errorf("sarsalambda: gobDecode: %w", err)
	}

	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.Table == nil {
		return fmt.Errorf("sarsalambda: gobDecode: no tile coder table")
	}
	features := c.Table.Size()
	if len(c.Weights) != features || len(c.Traces) != features {
		return fmt.Errorf("sarsalambda: gobDecode: %d weights and %d "+
			"traces for %d features", len(c.Weights), len(c.Traces), features)
	}

	coder, err := tilecoder.NewFromTable(c.Config.Layers, c.Table)
	if err != nil {
		return fmt.Errorf("sarsalambda: %w", err)
	}

	var source rand.Source
	if len(c.Source) > 0 {
		pcg := &rand.PCGSource{}
		if err := pcg.UnmarshalBinary(c.Source); err != nil {
			return fmt.Errorf("sarsalambda: could not restore source: %w",
				err)
		}
		source = pcg
	} else {
		source = rand.NewSource(c.Seed)
	}

	w := mat.NewVecDense(features, c.Weights)
	restored, err := build(c.Config, coder, w, c.Low, c.Width, c.NumActions,
		c.Epsilon, source)
	if err != nil {
		return err
	}
	restored.Traces().CopyVec(mat.NewVecDense(features, c.Traces))
	restored.seed = c.Seed

	*s = *restored
	return nil
}

// Save saves the agent to a file
func (s *SarsaLambda) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("sarsalambda: save: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(s); err != nil {
		return fmt.Errorf("sarsalambda: save: %w", err)
	}
	return file.Close()
}

// Load loads an agent previously saved with Save
func Load(filename string) (*SarsaLambda, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("sarsalambda: load: %w", err)
	}
	defer file.Close()

	s := &SarsaLambda{}
	if err := gob.NewDecoder(file).Decode(s); err != nil {
		return nil, fmt.Errorf("sarsalambda: load: %w", err)
	}
	return s, nil
}
