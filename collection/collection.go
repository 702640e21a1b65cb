// Package collection maps fingerprints back to the images that produced
// them. Perceptual hashing is lossy, so many images sharing one fingerprint
// is expected and is exactly what a duplicate search wants to surface.
package collection

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// ErrCorruptSnapshot is returned when a serialized index does not decode.
var ErrCorruptSnapshot = errors.New("collection: corrupt snapshot")

// Index resolves a fingerprint to the image paths that hashed to it. It is
// populated during the indexing pass and read-only during search; it is not
// safe for concurrent mutation.
type Index struct {
	paths map[uint64][]string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{paths: make(map[uint64][]string)}
}

// Insert appends path to the list keyed by hash, creating the list on first
// sight of the fingerprint. Insertion order within a list is preserved.
func (idx *Index) Insert(hash uint64, path string) {
	idx.paths[hash] = append(idx.paths[hash], path)
}

// Lookup returns the paths recorded for hash. An unseen fingerprint yields
// an empty result, never an error.
func (idx *Index) Lookup(hash uint64) []string {
	return idx.paths[hash]
}

// Hashes returns the distinct fingerprints in the index, in no particular
// order. This is the point set handed to the tree builder.
func (idx *Index) Hashes() []uint64 {
	hashes := make([]uint64, 0, len(idx.paths))
	for h := range idx.paths {
		hashes = append(hashes, h)
	}
	return hashes
}

// Len returns the number of distinct fingerprints.
func (idx *Index) Len() int {
	return len(idx.paths)
}

// Compile time checks to ensure Index satisfies the gob interfaces.
var (
	_ gob.GobEncoder = (*Index)(nil)
	_ gob.GobDecoder = (*Index)(nil)
)

// GobEncode serializes the fingerprint-to-paths mapping.
func (idx *Index) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(idx.paths); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode deserializes the mapping written by GobEncode.
func (idx *Index) GobDecode(data []byte) error {
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&idx.paths); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if idx.paths == nil {
		idx.paths = make(map[uint64][]string)
	}
	return nil
}

// Save writes a zstd-framed snapshot of the index to w.
func (idx *Index) Save(w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(zw).Encode(idx); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Load reads a snapshot written by Save.
func Load(r io.Reader) (*Index, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	defer zr.Close()

	idx := NewIndex()
	if err := gob.NewDecoder(zr).Decode(idx); err != nil {
		if errors.Is(err, ErrCorruptSnapshot) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return idx, nil
}
