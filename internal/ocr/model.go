// Package ocr wraps the trained character-recognition model. The model is
// a fixed-topology CRNN: a small convolutional feature extractor over a
// 32x384 grayscale crop, a GRU sequence labeler along the horizontal axis,
// and a linear projection onto a closed alphabet plus a blank symbol. The
// alphabet is fixed at training time, so every decodable string is made of
// known symbols by construction.
package ocr

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Fixed model input geometry.
const (
	InputHeight = 32
	InputWidth  = 384
)

// Blank is the CTC blank symbol as it appears in the alphabet file.
const Blank = "-"

// Derived layer sizes. Two conv+pool stages quarter each spatial dim.
const (
	conv1Ch  = 8
	conv2Ch  = 16
	seqLen   = InputWidth / 4  // horizontal steps fed to the GRU
	featDim  = conv2Ch * (InputHeight / 4)
	hiddenSz = 64
)

// ErrModelUnavailable means the weights or alphabet could not be loaded.
// Scanning cannot proceed without the model.
var ErrModelUnavailable = errors.New("ocr: model unavailable")

// ErrEmptyRecognition means a crop decoded to the empty string. Callers
// that expect a non-empty field treat this as a recognition failure;
// callers reading optional fields ignore it.
var ErrEmptyRecognition = errors.New("ocr: empty recognition")

// DecodedText is a decoded string with one confidence per character.
type DecodedText struct {
	Text string
	Conf []float64
}

// Model holds the loaded weights. Safe for concurrent Recognize calls:
// inference allocates its own state, only statistics are shared.
type Model struct {
	alphabet []string
	blankIdx int

	conv1W []float64 // conv1Ch x 1 x 3 x 3
	conv1B []float64
	conv2W []float64 // conv2Ch x conv1Ch x 3 x 3
	conv2B []float64

	// GRU gate weights. W* act on the feature vector, U* on the hidden
	// state, laid out hidden x input.
	wz, wr, wh *mat.Dense
	uz, ur, uh *mat.Dense
	bz, br, bh []float64

	outW *mat.Dense // classes x hidden
	outB []float64

	mu          sync.Mutex
	invokeCount int
	totalTime   time.Duration
}

// Load reads the alphabet JSON (index -> symbol, yas layout) and the raw
// little-endian float32 weight blob whose size is fully determined by the
// alphabet length.
func Load(weightsPath, alphabetPath string) (*Model, error) {
	alphabet, err := loadAlphabet(alphabetPath)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(weightsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: weight blob size %d not a float32 multiple", ErrModelUnavailable, len(blob))
	}
	weights := make([]float64, len(blob)/4)
	for i := range weights {
		weights[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:])))
	}
	m, err := newModel(alphabet, weights)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return m, nil
}

func loadAlphabet(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	var indexToWord map[string]string
	if err := json.Unmarshal(raw, &indexToWord); err != nil {
		return nil, fmt.Errorf("%w: alphabet: %v", ErrModelUnavailable, err)
	}
	type entry struct {
		idx  int
		word string
	}
	entries := make([]entry, 0, len(indexToWord))
	for k, v := range indexToWord {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: alphabet index %q", ErrModelUnavailable, k)
		}
		entries = append(entries, entry{idx, v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
	alphabet := make([]string, len(entries))
	for i, e := range entries {
		alphabet[i] = e.word
	}
	return alphabet, nil
}

// WeightCount returns the expected number of float32 values for an
// alphabet of the given size.
func WeightCount(classes int) int {
	n := conv1Ch*9 + conv1Ch
	n += conv2Ch*conv1Ch*9 + conv2Ch
	n += 3 * (hiddenSz*featDim + hiddenSz*hiddenSz + hiddenSz)
	n += classes*hiddenSz + classes
	return n
}

func newModel(alphabet []string, weights []float64) (*Model, error) {
	classes := len(alphabet)
	if classes < 2 {
		return nil, fmt.Errorf("alphabet too small: %d symbols", classes)
	}
	blankIdx := -1
	for i, w := range alphabet {
		if w == Blank {
			blankIdx = i
			break
		}
	}
	if blankIdx < 0 {
		return nil, fmt.Errorf("alphabet has no blank symbol %q", Blank)
	}
	if want := WeightCount(classes); len(weights) != want {
		return nil, fmt.Errorf("weight blob has %d values, want %d for %d classes", len(weights), want, classes)
	}

	m := &Model{alphabet: alphabet, blankIdx: blankIdx}
	take := func(n int) []float64 {
		out := weights[:n]
		weights = weights[n:]
		return out
	}
	m.conv1W = take(conv1Ch * 9)
	m.conv1B = take(conv1Ch)
	m.conv2W = take(conv2Ch * conv1Ch * 9)
	m.conv2B = take(conv2Ch)
	m.wz = mat.NewDense(hiddenSz, featDim, take(hiddenSz*featDim))
	m.wr = mat.NewDense(hiddenSz, featDim, take(hiddenSz*featDim))
	m.wh = mat.NewDense(hiddenSz, featDim, take(hiddenSz*featDim))
	m.uz = mat.NewDense(hiddenSz, hiddenSz, take(hiddenSz*hiddenSz))
	m.ur = mat.NewDense(hiddenSz, hiddenSz, take(hiddenSz*hiddenSz))
	m.uh = mat.NewDense(hiddenSz, hiddenSz, take(hiddenSz*hiddenSz))
	m.bz = take(hiddenSz)
	m.br = take(hiddenSz)
	m.bh = take(hiddenSz)
	m.outW = mat.NewDense(classes, hiddenSz, take(classes*hiddenSz))
	m.outB = take(classes)
	return m, nil
}

// Alphabet returns the symbol table including the blank.
func (m *Model) Alphabet() []string { return m.alphabet }

func (m *Model) incStatistics(d time.Duration) {
	m.mu.Lock()
	m.invokeCount++
	m.totalTime += d
	m.mu.Unlock()
}

// AverageInferenceTime reports mean wall time per Recognize call.
func (m *Model) AverageInferenceTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.invokeCount == 0 {
		return 0
	}
	return m.totalTime / time.Duration(m.invokeCount)
}

// InvokeCount reports how many crops have been recognized.
func (m *Model) InvokeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invokeCount
}
