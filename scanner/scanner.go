package scanner

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shuntingyard/goopho/database"
	"github.com/shuntingyard/goopho/dhash"
	"github.com/shuntingyard/goopho/imageloader"
	"github.com/shuntingyard/goopho/logging"
	"github.com/shuntingyard/goopho/types"
)

// ScanOptions defines the options for an indexing pass
type ScanOptions struct {
	FolderPath   string
	SourcePrefix string
	ForceRewrite bool
	DebugMode    bool
	HashSize     int
	MaxWorkers   int
}

// ProcessImageResult holds the result of hashing one image
type ProcessImageResult struct {
	Path    string
	Success bool
	Skipped bool
	Error   error
}

// ScanAndStoreFolder walks the folder, hashes every supported image with a
// pool of workers and stores one row per image. Hashing independent images
// needs no coordination; the database insert is the only shared step. Tree
// construction happens afterwards, once the point set is complete.
func ScanAndStoreFolder(db *sql.DB, options ScanOptions) error {
	if options.HashSize == 0 {
		options.HashSize = dhash.DefaultHashSize
	}
	if options.MaxWorkers < 1 {
		options.MaxWorkers = 1
	}

	fileStats := countFilesToProcess(options)
	printStartupInfo(fileStats, options)

	resultsChan := make(chan ProcessImageResult, 100)
	tracker := setupProgressTracker(fileStats, resultsChan)

	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(options.MaxWorkers)

	walkErr := filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if options.DebugMode {
				logging.LogError("Error accessing path %s: %v", path, err)
			}
			return nil
		}
		if info.IsDir() || !imageloader.IsImageFile(path) {
			return nil
		}

		g.Go(func() error {
			resultsChan <- processAndStoreImage(db, path, options)
			// Per-image failures are tallied by the tracker, never abort
			// the whole scan.
			return nil
		})
		return nil
	})

	// Workers report per-image failures on resultsChan and return nil, so
	// Wait only surfaces a misuse of the group itself.
	if err := g.Wait(); err != nil && walkErr == nil {
		walkErr = err
	}
	close(resultsChan)
	tracker.stop()

	printCompletionStats(tracker, startTime, options)

	return walkErr
}

// FileStats tracks information about files to be processed
type FileStats struct {
	totalFiles int
	rawFiles   int
}

// countFilesToProcess counts and classifies files before the scan starts
func countFilesToProcess(options ScanOptions) FileStats {
	stats := FileStats{}

	if options.DebugMode {
		logging.DebugLog("Starting image scan on folder: %s", options.FolderPath)
		logging.DebugLog("Force rewrite: %v, Source prefix: %s, Hash size: %d",
			options.ForceRewrite, options.SourcePrefix, options.HashSize)
	}

	filepath.Walk(options.FolderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if imageloader.IsImageFile(path) {
			stats.totalFiles++
			if imageloader.IsRawFormat(path) {
				stats.rawFiles++
			}
		}
		return nil
	})

	return stats
}

// printStartupInfo displays information about the scan before starting
func printStartupInfo(stats FileStats, options ScanOptions) {
	fmt.Printf("Starting image indexing...\nTotal image files to process: %d (including %d RAW files)\n",
		stats.totalFiles, stats.rawFiles)
	fmt.Printf("Force rewrite mode: %v\n", options.ForceRewrite)

	if options.SourcePrefix != "" {
		fmt.Printf("Source prefix: %s\n", options.SourcePrefix)
	}

	if options.DebugMode {
		fmt.Printf("Debug mode: enabled\n")
		logging.DebugLog("Found %d image files to process (%d RAW files)",
			stats.totalFiles, stats.rawFiles)
	}
}

// printCompletionStats displays statistics after scan completion
func printCompletionStats(tracker *ProgressTracker, startTime time.Time, options ScanOptions) {
	elapsed := time.Since(startTime)
	processed, skipped, errors := tracker.counts()

	if options.DebugMode {
		logging.DebugLog("Scan completed in %v. Processed: %d, Skipped: %d, Errors: %d",
			elapsed, processed, skipped, errors)
	}

	fmt.Println("\nIndexing complete.")
	fmt.Printf("Processed %d images in %v.\n", processed, elapsed.Round(time.Second))
	if skipped > 0 {
		fmt.Printf("Skipped %d unchanged images.\n", skipped)
	}
	if errors > 0 {
		fmt.Printf("Encountered %d errors during indexing.\n", errors)
		fmt.Println("Check the log file for details.")
	}
}

// processAndStoreImage hashes a single image and stores its row
func processAndStoreImage(db *sql.DB, path string, options ScanOptions) ProcessImageResult {
	result := ProcessImageResult{Path: path}

	if !options.ForceRewrite {
		if skipResult := checkAndSkipIfUnchanged(db, path, options); skipResult != nil {
			return *skipResult
		}
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		result.Error = fmt.Errorf("cannot stat file %s: %v", path, err)
		return result
	}

	img, err := imageloader.Load(path)
	if err != nil {
		result.Error = fmt.Errorf("failed to load image %s: %v", path, err)
		return result
	}

	hash, err := dhash.Hash(img, options.HashSize)
	if err != nil {
		result.Error = fmt.Errorf("cannot compute dhash for %s: %v", path, err)
		return result
	}

	bounds := img.Bounds()
	imageInfo := types.ImageInfo{
		Path:         path,
		SourcePrefix: options.SourcePrefix,
		Format:       imageloader.FileFormat(path),
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
		ModifiedAt:   fileInfo.ModTime().Format(time.RFC3339Nano),
		Size:         fileInfo.Size(),
		DHash:        hash,
		IsRawFormat:  imageloader.IsRawFormat(path),
	}

	if err := database.StoreImageInfo(db, imageInfo, options.ForceRewrite); err != nil {
		result.Error = fmt.Errorf("cannot store data for %s: %v", path, err)
		return result
	}

	if options.DebugMode {
		logging.DebugLog("Indexed %s with dhash %#016x", path, hash)
	}

	result.Success = true
	return result
}

// checkAndSkipIfUnchanged checks if an image can be skipped because its
// stored row is still current
func checkAndSkipIfUnchanged(db *sql.DB, path string, options ScanOptions) *ProcessImageResult {
	exists, storedModTime, err := database.CheckImageExists(db, path, options.SourcePrefix)
	if err != nil {
		return &ProcessImageResult{
			Path:  path,
			Error: fmt.Errorf("database error for %s: %v", path, err),
		}
	}
	if !exists {
		return nil
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return &ProcessImageResult{
			Path:  path,
			Error: fmt.Errorf("cannot stat file %s: %v", path, err),
		}
	}

	// RFC3339Nano keeps sub-second precision, so an unchanged file compares
	// equal to its stored mtime.
	storedTime, err := time.Parse(time.RFC3339Nano, storedModTime)
	if err != nil {
		return &ProcessImageResult{
			Path:  path,
			Error: fmt.Errorf("cannot parse stored time for %s: %v", path, err),
		}
	}

	if !fileInfo.ModTime().After(storedTime) {
		if options.DebugMode {
			logging.DebugLog("Skipping unchanged image: %s", path)
		}
		return &ProcessImageResult{Path: path, Success: true, Skipped: true}
	}

	return nil
}
