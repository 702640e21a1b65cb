package scanner

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/shuntingyard/goopho/database"
	"github.com/shuntingyard/goopho/logging"
	"github.com/shuntingyard/goopho/vptree"
)

// BuildSnapshots rebuilds the fingerprint collection from the database,
// constructs the VP-tree over the distinct fingerprints and writes both
// snapshot files. It runs strictly after the scan so the tree is built over
// a stable, fully populated point set.
func BuildSnapshots(db *sql.DB, treePath, hashesPath, sourcePrefix string, debugMode bool) error {
	idx, err := database.LoadCollection(db, sourcePrefix)
	if err != nil {
		return fmt.Errorf("cannot load fingerprint collection: %v", err)
	}

	fmt.Printf("Building VP-tree over %d distinct fingerprints...\n", idx.Len())
	tree := vptree.New(idx.Hashes())

	if debugMode {
		logging.DebugLog("Built VP-tree with %d points", tree.Size())
	}

	treeFile, err := os.Create(treePath)
	if err != nil {
		return fmt.Errorf("cannot create tree snapshot %s: %v", treePath, err)
	}
	defer treeFile.Close()
	if err := tree.Save(treeFile); err != nil {
		return fmt.Errorf("cannot write tree snapshot %s: %v", treePath, err)
	}

	hashesFile, err := os.Create(hashesPath)
	if err != nil {
		return fmt.Errorf("cannot create hashes snapshot %s: %v", hashesPath, err)
	}
	defer hashesFile.Close()
	if err := idx.Save(hashesFile); err != nil {
		return fmt.Errorf("cannot write hashes snapshot %s: %v", hashesPath, err)
	}

	fmt.Printf("Serialized VP-tree to %s and hashes to %s\n", treePath, hashesPath)
	return nil
}
