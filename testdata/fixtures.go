// Package testdata embeds recorded hand landmarker results for tests.
package testdata

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/ayusman/handseal/internal/detector"
)

//go:embed hands/*.json
var handsFS embed.FS

// Fixture names.
const (
	TwoHands       = "two_hands.json"
	OneHand        = "one_hand.json"
	DegeneratePalm = "degenerate_palm.json"
)

// Raw returns a fixture exactly as a browser would push it.
func Raw(name string) ([]byte, error) {
	data, err := handsFS.ReadFile("hands/" + name)
	if err != nil {
		return nil, fmt.Errorf("load fixture %s: %w", name, err)
	}
	return data, nil
}

// LoadFrameResult loads and decodes a fixture by name.
func LoadFrameResult(name string) (detector.FrameResult, error) {
	data, err := Raw(name)
	if err != nil {
		return detector.FrameResult{}, err
	}

	result, err := detector.DecodeFrameResult(data)
	if err != nil {
		return detector.FrameResult{}, fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return result, nil
}

// LoadSequence decodes every fixture in name order, as a recorded run.
func LoadSequence() ([]detector.FrameResult, error) {
	names, err := fs.Glob(handsFS, "hands/*.json")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	results := make([]detector.FrameResult, 0, len(names))
	for _, name := range names {
		result, err := LoadFrameResult(name[len("hands/"):])
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
