package ocr

import (
	"image"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Recognize decodes a field crop into text. Deterministic: identical pixel
// input always yields identical output. Returns ErrEmptyRecognition when
// the crop carries no decodable glyphs.
func (m *Model) Recognize(crop image.Image) (DecodedText, error) {
	start := time.Now()
	defer func() { m.incStatistics(time.Since(start)) }()

	pixels, ok := preprocess(crop)
	if !ok {
		return DecodedText{}, ErrEmptyRecognition
	}
	decoded := m.greedyDecode(m.forward(pixels))
	if decoded.Text == "" {
		return DecodedText{}, ErrEmptyRecognition
	}
	return decoded, nil
}

// greedyDecode applies the CTC collapse rule: take the argmax symbol at
// each step, merge consecutive repeats, drop blanks. Confidence per
// character is the probability of its symbol at the step it was emitted.
func (m *Model) greedyDecode(probs *mat.Dense) DecodedText {
	steps, classes := probs.Dims()
	var sb strings.Builder
	var conf []float64
	last := -1
	for t := 0; t < steps; t++ {
		best, bestP := 0, probs.At(t, 0)
		for c := 1; c < classes; c++ {
			if p := probs.At(t, c); p > bestP {
				best, bestP = c, p
			}
		}
		if best != last && best != m.blankIdx {
			sb.WriteString(m.alphabet[best])
			conf = append(conf, bestP)
		}
		last = best
	}
	return DecodedText{Text: sb.String(), Conf: conf}
}
