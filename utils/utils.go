package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseArguments converts command-line arguments into a map of flags and values
func ParseArguments() map[string]string {
	args := make(map[string]string)

	// First, identify the command (scan/search)
	command := ""
	commandIndex := -1
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "scan" || os.Args[i] == "search" {
			command = os.Args[i]
			commandIndex = i
			break
		}
	}

	if command != "" {
		args["command"] = command
	}

	// Process all arguments, skipping the command
	for i := 1; i < len(os.Args); i++ {
		if i == commandIndex {
			continue
		}

		arg := os.Args[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(os.Args) || strings.HasPrefix(os.Args[i+1], "--") {
				args[flagName] = "true"
			} else {
				args[flagName] = os.Args[i+1]
				i++ // Skip the value in the next iteration
			}
		}
	}

	return args
}

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	return defaultPath("goopho.db")
}

// GetDefaultTreePath returns the default path for the VP-tree snapshot
func GetDefaultTreePath() string {
	return defaultPath("goopho.vptree")
}

// GetDefaultHashesPath returns the default path for the hashes snapshot
func GetDefaultHashesPath() string {
	return defaultPath("goopho.hashes")
}

// defaultPath places a data file next to the executable, falling back to
// the working directory
func defaultPath(name string) string {
	exePath, err := os.Executable()
	if err != nil {
		return name
	}
	return filepath.Join(filepath.Dir(exePath), name)
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s scan --folder=PATH [--database=PATH] [--tree=PATH] [--hashes=PATH] [--prefix=NAME] [--hashsize=N] [--force] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("  %s search --image=PATH [--database=PATH] [--tree=PATH] [--hashes=PATH] [--radius=N] [--prefix=NAME] [--hashsize=N] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --folder      : Path to folder containing images to index\n")
	fmt.Printf("  --image       : Path to query image for search\n")
	fmt.Printf("  --database    : Path to database file (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("  --tree        : Path to VP-tree snapshot (default: %s)\n", GetDefaultTreePath())
	fmt.Printf("  --hashes      : Path to hashes snapshot (default: %s)\n", GetDefaultHashesPath())
	fmt.Printf("  --prefix      : Source prefix for scanning/filtering results\n")
	fmt.Printf("  --hashsize    : Difference hash size (1-8, default: 8)\n")
	fmt.Printf("  --force       : Force rewrite existing entries during scan\n")
	fmt.Printf("  --radius      : Maximum Hamming distance for matches (default: 10)\n")
	fmt.Printf("  --debug       : Enable debug mode (logs detailed information)\n")
	fmt.Printf("  --logfile     : Specify custom log file path (default: goopho.log)\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s scan --folder=/path/to/images --prefix=ExternalDrive1 --debug\n", os.Args[0])
	fmt.Printf("  %s search --image=/path/to/query.jpg --radius=4\n", os.Args[0])
}

// ParseRadius parses and validates the search radius from string
func ParseRadius(radiusStr string) (int, error) {
	radius, err := strconv.Atoi(radiusStr)
	if err != nil || radius < 0 {
		return 10, fmt.Errorf("invalid radius value '%s', using default (10)", radiusStr)
	}
	return radius, nil
}

// ParseHashSize parses and validates the hash size from string
func ParseHashSize(hashSizeStr string) (int, error) {
	hashSize, err := strconv.Atoi(hashSizeStr)
	if err != nil || hashSize < 1 || hashSize > 8 {
		return 8, fmt.Errorf("invalid hash size '%s', must be 1-8, using default (8)", hashSizeStr)
	}
	return hashSize, nil
}
