package essaydoc

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"inkcast/internal/types"
)

var imageRE = regexp.MustCompile(`!\[(.*?)\]\(([^)]+)\)`)

// NumberFigures assigns 1-based figure numbers to image lines in document
// order and appends an italic caption under each. Numbers are immutable once
// assigned; callers run this exactly once, after placement.
func NumberFigures(text string) (string, []types.Figure) {
	var figures []types.Figure
	counter := 0
	out := imageRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := imageRE.FindStringSubmatch(m)
		counter++
		figures = append(figures, types.Figure{Number: counter, AltText: sub[1], Source: sub[2]})
		return fmt.Sprintf("%s\n*Figure %d: %s*", m, counter, sub[1])
	})
	return out, figures
}

// CountFigureRefs counts prose references to a figure number, excluding the
// caption itself.
func CountFigureRefs(text string, number int) int {
	re := regexp.MustCompile(fmt.Sprintf(`Figure\s+%d\b`, number))
	n := len(re.FindAllString(text, -1))
	if n > 0 {
		n-- // the caption always matches once
	}
	return n
}

// EmbedImages rewrites image references to base64 data URIs so the final
// markdown is self-contained. Images that cannot be read are left as paths.
func EmbedImages(text, imagesDir string) string {
	return imageRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := imageRE.FindStringSubmatch(m)
		alt, src := sub[1], sub[2]
		raw, err := os.ReadFile(filepath.Join(imagesDir, filepath.Base(src)))
		if err != nil {
			return m
		}
		return fmt.Sprintf("![%s](data:image/jpeg;base64,%s)", alt, base64.StdEncoding.EncodeToString(raw))
	})
}
