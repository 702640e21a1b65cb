// Package imageloader decodes the image formats the indexer accepts. Common
// formats decode in-process; RAW camera files fall back to extracting the
// embedded preview JPEG with exiftool, so fingerprints stay comparable with
// the camera's own JPEG output.
package imageloader

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	// Register the decoders the standard library ships with plus the
	// extended formats from golang.org/x/image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/shuntingyard/goopho/logging"
)

var rawExtensions = map[string]bool{
	".dng": true, ".raf": true, ".arw": true, ".nef": true,
	".cr2": true, ".cr3": true, ".nrw": true, ".srf": true,
	".orf": true, ".rw2": true, ".pef": true, ".raw": true,
}

var decodableExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".tif": true, ".tiff": true,
}

// IsImageFile reports whether the file extension belongs to a format the
// loader can handle, directly or through a RAW preview.
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return decodableExtensions[ext] || rawExtensions[ext]
}

// IsRawFormat reports whether the file is a RAW camera format.
func IsRawFormat(path string) bool {
	return rawExtensions[strings.ToLower(filepath.Ext(path))]
}

// FileFormat returns the lowercase extension without the dot.
func FileFormat(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Load decodes the image at path. RAW files are routed through the preview
// extractor; everything else decodes with the registered format decoders.
func Load(path string) (image.Image, error) {
	if IsRawFormat(path) {
		return loadRawPreview(path)
	}
	return decodeFile(path)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", path, err)
	}
	logging.DebugLog("Decoded %s image: %s", format, path)
	return img, nil
}

// loadRawPreview extracts the embedded preview JPEG from a RAW file via the
// exiftool binary and decodes that. Cameras embed a full-size JPEG rendering
// in nearly every RAW container, and hashing the preview matches what the
// same scene looks like as a plain JPEG export.
func loadRawPreview(path string) (image.Image, error) {
	tempJpg := filepath.Join(os.TempDir(),
		fmt.Sprintf("goopho_preview_%d.jpg", time.Now().UnixNano()))
	defer os.Remove(tempJpg)

	// CR3 containers usually carry several previews; prefer the largest.
	tags := []string{"PreviewImage", "OtherImage", "ThumbnailImage"}
	if strings.ToLower(filepath.Ext(path)) == ".cr3" {
		tags = append([]string{"LargePreviewImage", "FullPreviewImage"}, tags...)
	}

	var lastErr error
	for _, tag := range tags {
		ok, err := extractPreviewTag(path, tag, tempJpg)
		if err != nil {
			lastErr = err
			continue
		}
		if !ok {
			continue
		}
		img, err := decodeFile(tempJpg)
		if err != nil {
			lastErr = err
			continue
		}
		return img, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("cannot extract preview from %s: %w", path, lastErr)
	}
	return nil, fmt.Errorf("no embedded preview found in %s", path)
}

// extractPreviewTag runs exiftool and streams the binary tag value into
// tempJpg. A RAW file without the requested tag still exits cleanly and
// writes nothing, so an empty output file means the tag is absent.
func extractPreviewTag(path, tag, tempJpg string) (bool, error) {
	outFile, err := os.Create(tempJpg)
	if err != nil {
		return false, fmt.Errorf("cannot create temp file for preview: %w", err)
	}

	cmd := exec.Command("exiftool", "-b", "-"+tag, path)
	cmd.Stdout = outFile
	runErr := cmd.Run()
	outFile.Close()
	if runErr != nil {
		return false, runErr
	}

	info, err := os.Stat(tempJpg)
	if err != nil || info.Size() == 0 {
		return false, nil
	}
	return true, nil
}
