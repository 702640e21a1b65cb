package dhash

import "github.com/shuntingyard/goopho/imageloader"

// HashFile decodes the image at path and returns its difference hash with
// the given grid size. RAW camera files hash their embedded preview.
func HashFile(path string, hashSize int) (uint64, error) {
	img, err := imageloader.Load(path)
	if err != nil {
		return 0, err
	}
	return Hash(img, hashSize)
}
