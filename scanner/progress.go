package scanner

import (
	"fmt"
	"sync"
	"time"

	"github.com/shuntingyard/goopho/logging"
)

// ProgressTracker tracks progress of the scan operation
type ProgressTracker struct {
	processed  int
	skipped    int
	errors     int
	totalFiles int
	ticker     *time.Ticker
	done       chan bool
	drained    chan struct{}
	mu         sync.Mutex
}

// setupProgressTracker starts the progress display and result tally
func setupProgressTracker(stats FileStats, resultsChan chan ProcessImageResult) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(500 * time.Millisecond),
		done:       make(chan bool),
		drained:    make(chan struct{}),
		totalFiles: stats.totalFiles,
	}

	go tracker.displayProgress()
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Printf("\rProgress: %d/%d (Errors: %d)", p.processed, p.totalFiles, p.errors)
			} else {
				fmt.Printf("\rProgress: %d/%d", p.processed, p.totalFiles)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state based on processing results
func (p *ProgressTracker) processResults(resultsChan chan ProcessImageResult) {
	for result := range resultsChan {
		p.mu.Lock()
		p.processed++
		if result.Skipped {
			p.skipped++
		}
		if !result.Success {
			p.errors++
			if result.Error != nil {
				logging.LogImageProcessed(result.Path, false, result.Error.Error())
			}
		} else if !result.Skipped {
			logging.LogImageProcessed(result.Path, true, "")
		}
		p.mu.Unlock()
	}
	close(p.drained)
}

// counts returns the final tallies; call after stop
func (p *ProgressTracker) counts() (processed, skipped, errors int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.skipped, p.errors
}

// stop ends progress tracking once the results channel is closed and drained
func (p *ProgressTracker) stop() {
	<-p.drained
	p.ticker.Stop()
	p.done <- true
}
