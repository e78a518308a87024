package ocr

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// forward runs the CRNN over a preprocessed 32x384 input and returns the
// per-step class probability rows (seqLen x classes).
func (m *Model) forward(pixels []float64) *mat.Dense {
	// Conv stage 1: 1 -> conv1Ch channels, 3x3 pad 1, relu, 2x2 maxpool.
	c1 := convolve([][]float64{pixels}, InputHeight, InputWidth, m.conv1W, m.conv1B, conv1Ch)
	p1, h1, w1 := maxPool(c1, InputHeight, InputWidth)

	// Conv stage 2: conv1Ch -> conv2Ch channels.
	c2 := convolve(p1, h1, w1, m.conv2W, m.conv2B, conv2Ch)
	p2, h2, w2 := maxPool(c2, h1, w1)

	// Columns become the feature sequence: one feature vector per
	// horizontal step, channels stacked over the remaining height.
	features := mat.NewDense(seqLen, featDim, nil)
	for x := 0; x < w2; x++ {
		for ch := 0; ch < conv2Ch; ch++ {
			for y := 0; y < h2; y++ {
				features.Set(x, ch*h2+y, p2[ch][y*w2+x])
			}
		}
	}

	hidden := m.runGRU(features)

	// Linear projection + softmax per step.
	classes, _ := m.outW.Dims()
	probs := mat.NewDense(seqLen, classes, nil)
	logits := make([]float64, classes)
	for t := 0; t < seqLen; t++ {
		h := hidden.RowView(t)
		for c := 0; c < classes; c++ {
			logits[c] = mat.Dot(m.outW.RowView(c), h) + m.outB[c]
		}
		softmax(logits)
		probs.SetRow(t, logits)
	}
	return probs
}

// convolve applies a 3x3 same-padding convolution with relu. Weights are
// laid out outCh x inCh x 3 x 3.
func convolve(in [][]float64, h, w int, weights, bias []float64, outCh int) [][]float64 {
	inCh := len(in)
	out := make([][]float64, outCh)
	for oc := 0; oc < outCh; oc++ {
		plane := make([]float64, h*w)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				acc := bias[oc]
				for ic := 0; ic < inCh; ic++ {
					base := (oc*inCh + ic) * 9
					for ky := -1; ky <= 1; ky++ {
						yy := y + ky
						if yy < 0 || yy >= h {
							continue
						}
						for kx := -1; kx <= 1; kx++ {
							xx := x + kx
							if xx < 0 || xx >= w {
								continue
							}
							acc += weights[base+(ky+1)*3+(kx+1)] * in[ic][yy*w+xx]
						}
					}
				}
				if acc < 0 {
					acc = 0
				}
				plane[y*w+x] = acc
			}
		}
		out[oc] = plane
	}
	return out
}

// maxPool halves both spatial dimensions with a 2x2 window.
func maxPool(in [][]float64, h, w int) (out [][]float64, oh, ow int) {
	oh, ow = h/2, w/2
	out = make([][]float64, len(in))
	for ch, plane := range in {
		pooled := make([]float64, oh*ow)
		for y := 0; y < oh; y++ {
			for x := 0; x < ow; x++ {
				v := plane[2*y*w+2*x]
				if n := plane[2*y*w+2*x+1]; n > v {
					v = n
				}
				if n := plane[(2*y+1)*w+2*x]; n > v {
					v = n
				}
				if n := plane[(2*y+1)*w+2*x+1]; n > v {
					v = n
				}
				pooled[y*ow+x] = v
			}
		}
		out[ch] = pooled
	}
	return out, oh, ow
}

// runGRU unrolls the recurrent labeler over the feature sequence and
// returns the hidden state at every step (seqLen x hiddenSz).
func (m *Model) runGRU(features *mat.Dense) *mat.Dense {
	steps, _ := features.Dims()
	out := mat.NewDense(steps, hiddenSz, nil)

	h := mat.NewVecDense(hiddenSz, nil)
	var xz, xr, xh, hz, hr, hh mat.VecDense
	for t := 0; t < steps; t++ {
		x := features.RowView(t)
		xz.MulVec(m.wz, x)
		xr.MulVec(m.wr, x)
		xh.MulVec(m.wh, x)
		hz.MulVec(m.uz, h)
		hr.MulVec(m.ur, h)

		next := mat.NewVecDense(hiddenSz, nil)
		reset := mat.NewVecDense(hiddenSz, nil)
		for i := 0; i < hiddenSz; i++ {
			r := sigmoid(xr.AtVec(i) + hr.AtVec(i) + m.br[i])
			reset.SetVec(i, r*h.AtVec(i))
		}
		hh.MulVec(m.uh, reset)
		for i := 0; i < hiddenSz; i++ {
			z := sigmoid(xz.AtVec(i) + hz.AtVec(i) + m.bz[i])
			cand := math.Tanh(xh.AtVec(i) + hh.AtVec(i) + m.bh[i])
			next.SetVec(i, (1-z)*h.AtVec(i)+z*cand)
		}
		h = next
		out.SetRow(t, h.RawVector().Data)
	}
	return out
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func softmax(v []float64) {
	maxV := v[0]
	for _, x := range v[1:] {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for i, x := range v {
		v[i] = math.Exp(x - maxV)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}
