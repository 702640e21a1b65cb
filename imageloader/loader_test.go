package imageloader

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatClassification(t *testing.T) {
	assert.True(t, IsImageFile("photo.jpg"))
	assert.True(t, IsImageFile("photo.JPEG"))
	assert.True(t, IsImageFile("scan.tiff"))
	assert.True(t, IsImageFile("shot.CR2"))
	assert.False(t, IsImageFile("notes.txt"))
	assert.False(t, IsImageFile("archive.zip"))

	assert.True(t, IsRawFormat("shot.nef"))
	assert.True(t, IsRawFormat("shot.DNG"))
	assert.False(t, IsRawFormat("photo.png"))

	assert.Equal(t, "jpg", FileFormat("dir/photo.JPG"))
	assert.Equal(t, "webp", FileFormat("photo.webp"))
}

func TestLoadDecodesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestLoadUndecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRawWithoutPreview(t *testing.T) {
	// A RAW container with no embedded preview must surface an error,
	// whether exiftool is missing, rejects the file, or extracts nothing.
	path := filepath.Join(t.TempDir(), "junk.dng")
	require.NoError(t, os.WriteFile(path, []byte("not a raw file"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestExtractPreviewTagLeavesNoPartialOutput(t *testing.T) {
	// The extractor writes previews into the temp file it creates, not next
	// to the source file. A failed or empty extraction reports ok=false.
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "shot.nef")
	require.NoError(t, os.WriteFile(rawPath, []byte("not a raw file"), 0o644))

	tempJpg := filepath.Join(dir, "preview.jpg")
	ok, _ := extractPreviewTag(rawPath, "PreviewImage", tempJpg)
	assert.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Contains(t, []string{"shot.nef", "preview.jpg"}, e.Name())
	}
}
