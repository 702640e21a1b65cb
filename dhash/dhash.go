// Package dhash computes difference hashes: compact perceptual fingerprints
// of images that tolerate resizing, recompression and other minor variation.
// The algorithm follows the description at
// https://www.hackerfactor.com/blog/index.php?/archives/529-Kind-of-Like-That.html
package dhash

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/bits"

	"github.com/nfnt/resize"
)

// DefaultHashSize yields a 64-bit fingerprint (8x8 gradient bits).
const DefaultHashSize = 8

// ErrInvalidInput is returned for nil or zero-area images and for hash sizes
// the uint64 fingerprint cannot hold.
var ErrInvalidInput = errors.New("dhash: invalid input")

// Hash computes the difference hash of img. The image is converted to
// grayscale and resampled to (hashSize+1) x hashSize pixels with a bilinear
// kernel; the resampling kernel is part of the hash definition and must not
// change, or previously stored fingerprints become unreachable. Bit k of the
// result (row-major scan order) is set when the right pixel of gradient k is
// brighter than the left one. A uniformly colored image hashes to 0.
//
// hashSize must be between 1 and 8: the fingerprint holds hashSize^2 bits
// and is stored exactly in a uint64, never through a lossy intermediate.
func Hash(img image.Image, hashSize int) (uint64, error) {
	if img == nil {
		return 0, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	if hashSize < 1 {
		return 0, fmt.Errorf("%w: hash size %d, must be at least 1", ErrInvalidInput, hashSize)
	}
	if hashSize*hashSize > 64 {
		return 0, fmt.Errorf("%w: hash size %d needs %d bits, fingerprint holds 64",
			ErrInvalidInput, hashSize, hashSize*hashSize)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return 0, fmt.Errorf("%w: empty image %dx%d", ErrInvalidInput, bounds.Dx(), bounds.Dy())
	}

	gray := grayscale(img)
	scaled := resize.Resize(uint(hashSize+1), uint(hashSize), gray, resize.Bilinear)

	var hash uint64
	var bit uint
	min := scaled.Bounds().Min
	for y := 0; y < hashSize; y++ {
		left := pixelAt(scaled, min.X, min.Y+y)
		for x := 0; x < hashSize; x++ {
			right := pixelAt(scaled, min.X+x+1, min.Y+y)
			if right > left {
				hash |= 1 << bit
			}
			left = right
			bit++
		}
	}
	return hash, nil
}

// Distance returns the Hamming distance between two fingerprints: the number
// of gradient bits on which the underlying images disagree.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// grayscale flattens img to a single intensity channel before resampling.
func grayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

func pixelAt(img image.Image, x, y int) uint8 {
	if g, ok := img.(*image.Gray); ok {
		return g.GrayAt(x, y).Y
	}
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}
