package frames

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/corona10/goimagehash"
)

// ComputeHash returns the 64-bit perceptual hash of an image file. The hash
// is a coarse structural fingerprint, stable across compression and minor
// motion noise.
func ComputeHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("phash %s: %w", filepath.Base(path), err)
	}
	return h.GetHash(), nil
}

// Distance is the Hamming distance between two perceptual hashes.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

var frameNameRE = regexp.MustCompile(`frame_(\d+)\.jpg$`)

// SecondsFor derives the sample timestamp from a frame filename. The sampler
// numbers frames from 1, one per interval.
func SecondsFor(name string, intervalSeconds int) (int, error) {
	m := frameNameRE.FindStringSubmatch(name)
	if m == nil {
		return 0, fmt.Errorf("not a sampled frame name: %s", name)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	return (n - 1) * intervalSeconds, nil
}
