// Package vptree indexes difference-hash fingerprints under Hamming distance
// using a vantage-point tree, so radius queries prune whole subtrees through
// the triangle inequality instead of scanning the full collection.
package vptree

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/shuntingyard/goopho/dhash"
)

// ErrInvalidRadius is returned by Within for a negative search radius.
var ErrInvalidRadius = errors.New("vptree: negative radius")

// Match is one range-search hit: an indexed fingerprint and its Hamming
// distance from the query. Within returns matches in no particular order.
type Match struct {
	Distance int
	Hash     uint64
}

// node is one tree vertex. Every fingerprint in the Inside subtree lies
// within Mu of VP, every fingerprint in the Outside subtree lies strictly
// beyond Mu. Fields are exported for gob.
type node struct {
	VP      uint64
	Mu      int
	Inside  *node
	Outside *node
}

// Tree is a built-once, query-many vantage-point tree. It is immutable after
// New returns and safe to share across concurrent readers.
type Tree struct {
	root *node
	size int
}

// New builds a tree over the given fingerprints. Duplicates collapse to a
// single indexed point; resolving a fingerprint back to the images that
// produced it is the collection index's job. An empty point set yields an
// empty tree, which answers every query with no matches.
func New(points []uint64) *Tree {
	distinct := make([]uint64, 0, len(points))
	seen := make(map[uint64]struct{}, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		distinct = append(distinct, p)
	}
	return &Tree{
		root: build(distinct, rand.New(rand.NewSource(rand.Int63()))),
		size: len(distinct),
	}
}

// build recursively partitions points. The vantage point is drawn uniformly
// from the subset; the threshold is the lower median of the distances from
// the vantage point to the remainder, so the inside child is never empty and
// every recursion strictly shrinks. When all remaining points are equidistant
// from the vantage point the outside child comes out empty, which is legal:
// the vantage point itself never recurses, so termination still holds.
func build(points []uint64, rng *rand.Rand) *node {
	if len(points) == 0 {
		return nil
	}

	n := &node{}
	idx := rng.Intn(len(points))
	n.VP = points[idx]
	points[idx] = points[len(points)-1]
	points = points[:len(points)-1]

	if len(points) == 0 {
		return n
	}

	dists := make([]int, len(points))
	for i, p := range points {
		dists[i] = dhash.Distance(n.VP, p)
	}
	sorted := make([]int, len(dists))
	copy(sorted, dists)
	sort.Ints(sorted)
	n.Mu = sorted[(len(sorted)-1)/2]

	// Partition in place: fingerprints within Mu of the vantage point move
	// to the front, the rest stay behind the split.
	split := 0
	for i, d := range dists {
		if d <= n.Mu {
			points[split], points[i] = points[i], points[split]
			dists[split], dists[i] = dists[i], dists[split]
			split++
		}
	}

	n.Inside = build(points[:split], rng)
	n.Outside = build(points[split:], rng)
	return n
}

// Within returns every indexed fingerprint whose Hamming distance from query
// is at most radius. Results are unordered; callers sort when they need an
// ordering. A radius of 0 finds exact fingerprint matches only.
func (t *Tree) Within(query uint64, radius int) ([]Match, error) {
	if radius < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRadius, radius)
	}
	var matches []Match
	t.root.within(query, radius, &matches)
	return matches, nil
}

func (n *node) within(query uint64, radius int, matches *[]Match) {
	if n == nil {
		return
	}

	d := dhash.Distance(query, n.VP)
	if d <= radius {
		*matches = append(*matches, Match{Distance: d, Hash: n.VP})
	}

	// Triangle inequality: the inside subtree only holds points within Mu of
	// the vantage point, the outside subtree only points beyond Mu. Skip a
	// child when the query ball cannot intersect its annulus.
	if d <= n.Mu+radius {
		n.Inside.within(query, radius, matches)
	}
	if d >= n.Mu-radius {
		n.Outside.within(query, radius, matches)
	}
}

// Size returns the number of distinct fingerprints in the tree.
func (t *Tree) Size() int {
	return t.size
}

// Hashes returns all indexed fingerprints, in no particular order.
func (t *Tree) Hashes() []uint64 {
	hashes := make([]uint64, 0, t.size)
	var walk func(*node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		hashes = append(hashes, n.VP)
		walk(n.Inside)
		walk(n.Outside)
	}
	walk(t.root)
	return hashes
}

// Validate checks the partition invariant on every vertex: all inside
// descendants within the threshold, all outside descendants strictly beyond
// it. A tree that fails this check silently returns wrong search results,
// so snapshot decoding treats a violation as corruption.
func (t *Tree) Validate() error {
	count := 0
	var walk func(n *node) error
	walk = func(n *node) error {
		if n == nil {
			return nil
		}
		count++
		var check func(*node, bool) error
		check = func(c *node, inside bool) error {
			if c == nil {
				return nil
			}
			d := dhash.Distance(n.VP, c.VP)
			if inside && d > n.Mu {
				return fmt.Errorf("vptree: inside point %#x at distance %d exceeds threshold %d of %#x",
					c.VP, d, n.Mu, n.VP)
			}
			if !inside && d <= n.Mu {
				return fmt.Errorf("vptree: outside point %#x at distance %d within threshold %d of %#x",
					c.VP, d, n.Mu, n.VP)
			}
			if err := check(c.Inside, inside); err != nil {
				return err
			}
			return check(c.Outside, inside)
		}
		if err := check(n.Inside, true); err != nil {
			return err
		}
		if err := check(n.Outside, false); err != nil {
			return err
		}
		if err := walk(n.Inside); err != nil {
			return err
		}
		return walk(n.Outside)
	}
	if err := walk(t.root); err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("vptree: tree holds %d points, size records %d", count, t.size)
	}
	return nil
}
