// Package search answers "which indexed images look like this one" by
// hashing the query image and running a radius query against the VP-tree.
package search

import (
	"database/sql"
	"fmt"
	"os"
	"sort"

	"github.com/shuntingyard/goopho/collection"
	"github.com/shuntingyard/goopho/database"
	"github.com/shuntingyard/goopho/dhash"
	"github.com/shuntingyard/goopho/logging"
	"github.com/shuntingyard/goopho/types"
	"github.com/shuntingyard/goopho/vptree"
)

// Options defines the options for a similarity search
type Options struct {
	QueryPath    string
	TreePath     string
	HashesPath   string
	Radius       int
	SourcePrefix string
	HashSize     int
	DebugMode    bool
}

// FindSimilarImages hashes the query image and returns every indexed image
// whose fingerprint lies within the Hamming radius, sorted by distance then
// path. Snapshot files are preferred; when either is missing, or the search
// is restricted to a source prefix, the index is rebuilt from the database
// rows.
func FindSimilarImages(db *sql.DB, options Options) ([]types.SearchResult, error) {
	if options.HashSize == 0 {
		options.HashSize = dhash.DefaultHashSize
	}

	queryHash, err := dhash.HashFile(options.QueryPath, options.HashSize)
	if err != nil {
		return nil, fmt.Errorf("failed to hash query image: %v", err)
	}
	logging.LogInfo("Query image %s has dhash %#016x", options.QueryPath, queryHash)

	tree, idx, err := loadIndex(db, options)
	if err != nil {
		return nil, err
	}

	matches, err := tree.Within(queryHash, options.Radius)
	if err != nil {
		return nil, fmt.Errorf("range search failed: %v", err)
	}

	var results []types.SearchResult
	for _, m := range matches {
		for _, path := range idx.Lookup(m.Hash) {
			// A prefix-restricted index only holds rows for that prefix;
			// otherwise the row's own prefix is looked up so results are
			// labelled with where the image actually came from.
			prefix := options.SourcePrefix
			if prefix == "" {
				prefix, err = database.GetSourcePrefix(db, path)
				if err != nil {
					return nil, err
				}
			}
			results = append(results, types.SearchResult{
				Path:         path,
				SourcePrefix: prefix,
				Distance:     m.Distance,
				Hash:         m.Hash,
			})
		}
	}

	// The tree returns matches unordered; present nearest first.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Path < results[j].Path
	})

	return results, nil
}

// loadIndex loads the tree and collection snapshots, falling back to a
// rebuild from database rows when snapshot files are missing. Snapshots are
// written for whichever set the last scan indexed and carry no prefix
// column, so a prefix-restricted search always rebuilds from the rows.
func loadIndex(db *sql.DB, options Options) (*vptree.Tree, *collection.Index, error) {
	if options.SourcePrefix == "" {
		tree, treeErr := loadTreeSnapshot(options.TreePath)
		idx, idxErr := loadHashesSnapshot(options.HashesPath)

		if treeErr == nil && idxErr == nil {
			return tree, idx, nil
		}

		if options.DebugMode {
			logging.LogWarning("Snapshot unavailable (tree: %v, hashes: %v), rebuilding from database",
				treeErr, idxErr)
		}
	}

	idx, err := database.LoadCollection(db, options.SourcePrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot rebuild index from database: %v", err)
	}
	if idx.Len() == 0 {
		if options.SourcePrefix != "" {
			return nil, nil, fmt.Errorf("no indexed images found for source prefix %q, run scan first",
				options.SourcePrefix)
		}
		return nil, nil, fmt.Errorf("no indexed images found, run scan first")
	}
	return vptree.New(idx.Hashes()), idx, nil
}

func loadTreeSnapshot(path string) (*vptree.Tree, error) {
	if path == "" {
		return nil, fmt.Errorf("no tree snapshot configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return vptree.Load(f)
}

func loadHashesSnapshot(path string) (*collection.Index, error) {
	if path == "" {
		return nil, fmt.Errorf("no hashes snapshot configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return collection.Load(f)
}
