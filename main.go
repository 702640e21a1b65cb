// Command goopho finds near-duplicate images. The scan command walks a
// folder, computes a difference hash for every image and indexes the
// fingerprints in SQLite plus a serialized VP-tree; the search command hashes
// a query image and reports every indexed image within a Hamming radius.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/shuntingyard/goopho/database"
	"github.com/shuntingyard/goopho/logging"
	"github.com/shuntingyard/goopho/scanner"
	"github.com/shuntingyard/goopho/search"
	"github.com/shuntingyard/goopho/signalhandler"
	"github.com/shuntingyard/goopho/utils"
)

func main() {
	signalhandler.SetupHandler()
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	args := utils.ParseArguments()
	command, hasCommand := args["command"]

	// Set default data file paths
	dbPath := utils.GetDefaultDatabasePath()
	if customDB, ok := args["database"]; ok && customDB != "" {
		dbPath = customDB
	} else if customDB, ok := args["db"]; ok && customDB != "" {
		// Allow --db as an alias for --database
		dbPath = customDB
	}

	treePath := utils.GetDefaultTreePath()
	if custom, ok := args["tree"]; ok && custom != "" {
		treePath = custom
	}

	hashesPath := utils.GetDefaultHashesPath()
	if custom, ok := args["hashes"]; ok && custom != "" {
		hashesPath = custom
	}

	// Setup debug logging if enabled
	debugMode := false
	if _, ok := args["debug"]; ok {
		debugMode = true
		logPath := "goopho.log"
		if customLogPath, ok := args["logfile"]; ok && customLogPath != "" {
			logPath = customLogPath
		}
		if err := logging.SetupLogger(logPath); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
		}
		defer logging.CloseLogger()
	}

	// Check if required arguments are missing
	showUsage := !hasCommand
	if hasCommand && command == "scan" && args["folder"] == "" {
		showUsage = true
	}
	if hasCommand && command == "search" && args["image"] == "" {
		showUsage = true
	}
	if showUsage {
		utils.PrintUsage()
		os.Exit(1)
	}

	switch command {
	case "scan":
		handleScanCommand(args, dbPath, treePath, hashesPath, debugMode)
	case "search":
		handleSearchCommand(args, dbPath, treePath, hashesPath, debugMode)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}
}

func handleScanCommand(args map[string]string, dbPath, treePath, hashesPath string, debugMode bool) {
	folderPath := args["folder"]

	// Verify folder path exists and is accessible
	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Fatalf("Folder path does not exist: %s", folderPath)
		}
		log.Fatalf("Cannot access folder path: %s (%v)", folderPath, err)
	}
	if !folderInfo.IsDir() {
		log.Fatalf("Path is not a directory: %s", folderPath)
	}

	sourcePrefix := args["prefix"]

	forceRewrite := false
	if _, ok := args["force"]; ok {
		forceRewrite = true
	}

	hashSize := 8
	if hashSizeStr, ok := args["hashsize"]; ok {
		parsed, err := utils.ParseHashSize(hashSizeStr)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		hashSize = parsed
	}

	startTime := time.Now()

	// Initialize database with retry logic
	var db *sql.DB
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(dbPath)
		if err == nil {
			break
		}
		if i < maxRetries-1 {
			log.Printf("Error initializing database (attempt %d/%d): %v - retrying...",
				i+1, maxRetries, err)
			time.Sleep(time.Second * time.Duration(i+1))
		} else {
			log.Fatalf("Error initializing database after %d attempts: %v", maxRetries, err)
		}
	}
	defer db.Close()

	scanOptions := scanner.ScanOptions{
		FolderPath:   folderPath,
		SourcePrefix: sourcePrefix,
		ForceRewrite: forceRewrite,
		DebugMode:    debugMode,
		HashSize:     hashSize,
		MaxWorkers:   signalhandler.GetOptimalProcs(),
	}

	if err := scanner.ScanAndStoreFolder(db, scanOptions); err != nil {
		log.Fatalf("Error scanning folder: %v", err)
	}

	// The tree is built once hashing has fully completed.
	if err := scanner.BuildSnapshots(db, treePath, hashesPath, sourcePrefix, debugMode); err != nil {
		log.Fatalf("Error building index: %v", err)
	}

	duration := time.Since(startTime)
	fmt.Printf("\nScan completed successfully!\n")
	fmt.Printf("Total execution time: %v\n", duration)
	fmt.Printf("Database: %s\n", dbPath)

	stats, err := database.GetScanStats(db, sourcePrefix)
	if err == nil && stats != nil {
		fmt.Printf("\nSummary:\n")
		fmt.Printf("- Total images indexed: %d\n", stats.TotalImages)
		fmt.Printf("- Distinct fingerprints: %d\n", stats.UniqueHashes)
	}
}

func handleSearchCommand(args map[string]string, dbPath, treePath, hashesPath string, debugMode bool) {
	queryPath := args["image"]

	radius := 10 // Default maximum Hamming distance
	if radiusStr, ok := args["radius"]; ok {
		parsed, err := utils.ParseRadius(radiusStr)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		radius = parsed
	}

	sourcePrefix := args["prefix"]

	hashSize := 8
	if hashSizeStr, ok := args["hashsize"]; ok {
		parsed, err := utils.ParseHashSize(hashSizeStr)
		if err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		hashSize = parsed
	}

	// Verify paths exist
	if _, err := os.Stat(queryPath); os.IsNotExist(err) {
		log.Fatalf("Query image does not exist: %s", queryPath)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Fatalf("Database does not exist: %s. Run scan command first.", dbPath)
	}

	startTime := time.Now()

	db, err := database.OpenDatabase(dbPath)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Searching for images within Hamming distance %d...\n", radius)
	if sourcePrefix != "" {
		fmt.Printf("Filtering by source prefix: %s\n", sourcePrefix)
	}

	searchOptions := search.Options{
		QueryPath:    queryPath,
		TreePath:     treePath,
		HashesPath:   hashesPath,
		Radius:       radius,
		SourcePrefix: sourcePrefix,
		HashSize:     hashSize,
		DebugMode:    debugMode,
	}

	results, err := search.FindSimilarImages(db, searchOptions)
	if err != nil {
		log.Fatalf("Error finding similar images: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No matches found.")
	} else {
		fmt.Printf("\nMatches (%d):\n", len(results))
		for i, r := range results {
			fmt.Printf("%d. Image: %s\n", i+1, r.Path)
			fmt.Printf("   Distance: %d, Fingerprint: %#016x\n", r.Distance, r.Hash)
		}
	}

	duration := time.Since(startTime)
	fmt.Printf("\nTotal search time: %v\n", duration)
}
