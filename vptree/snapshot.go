package vptree

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// ErrCorruptSnapshot is returned when a serialized tree does not decode to a
// structurally valid index.
var ErrCorruptSnapshot = errors.New("vptree: corrupt snapshot")

// Compile time checks to ensure Tree satisfies the gob interfaces.
var (
	_ gob.GobEncoder = (*Tree)(nil)
	_ gob.GobDecoder = (*Tree)(nil)
)

// GobEncode serializes the tree. Only structural fidelity is promised: a
// decoded tree answers every range query with the same result set, but is
// not guaranteed byte-identical on re-encode.
func (t *Tree) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)

	if err := encoder.Encode(t.size); err != nil {
		return nil, err
	}
	// gob rejects a top-level nil pointer, so the empty tree encodes as its
	// size alone.
	if t.size > 0 {
		if err := encoder.Encode(t.root); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// GobDecode deserializes a tree and re-validates the partition invariant: a
// corrupted tree would not fail loudly, it would silently miss matches.
func (t *Tree) GobDecode(data []byte) error {
	decoder := gob.NewDecoder(bytes.NewBuffer(data))

	if err := decoder.Decode(&t.size); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	t.root = nil
	if t.size > 0 {
		if err := decoder.Decode(&t.root); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	return nil
}

// Save writes a zstd-framed snapshot of the tree to w.
func (t *Tree) Save(w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(zw).Encode(t); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Load reads a snapshot written by Save and returns the reconstructed tree.
func Load(r io.Reader) (*Tree, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	defer zr.Close()

	t := &Tree{}
	if err := gob.NewDecoder(zr).Decode(t); err != nil {
		if errors.Is(err, ErrCorruptSnapshot) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return t, nil
}
