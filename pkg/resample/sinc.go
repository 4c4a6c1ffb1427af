// Package resample converts audio between sample rates with a windowed-sinc
// interpolation filter. Converters are stateful: they keep filter history
// across calls so consecutive blocks form one continuous stream.
package resample

import (
	"errors"
	"fmt"
	"math"
)

// ErrInputSize is returned by Process when the input block does not match
// the chunk size the converter was built for.
var ErrInputSize = errors.New("resample: wrong input block size")

// Window selects the window applied to the sinc kernel.
type Window int

const (
	BlackmanHarris Window = iota
	BlackmanHarris2
)

// Params tunes the interpolation filter.
type Params struct {
	// Taps is the kernel length in input samples. Must be even.
	Taps int
	// Oversampling is the number of kernel table rows per input sample.
	Oversampling int
	// Cutoff is the passband edge relative to the Nyquist frequency of the
	// lower of the two rates.
	Cutoff float64
	Window Window
}

// DefaultParams favours low aliasing over latency.
var DefaultParams = Params{
	Taps:         256,
	Oversampling: 256,
	Cutoff:       0.95,
	Window:       BlackmanHarris2,
}

func (p Params) validate() error {
	if p.Taps <= 0 || p.Taps%2 != 0 {
		return fmt.Errorf("resample: taps must be positive and even, got %d", p.Taps)
	}
	if p.Oversampling <= 0 {
		return fmt.Errorf("resample: oversampling must be positive, got %d", p.Oversampling)
	}
	if !(p.Cutoff > 0 && p.Cutoff <= 1) {
		return fmt.Errorf("resample: cutoff must be in (0, 1], got %v", p.Cutoff)
	}
	switch p.Window {
	case BlackmanHarris, BlackmanHarris2:
	default:
		return fmt.Errorf("resample: unknown window %d", p.Window)
	}

	return nil
}

// Sinc is a fixed-input-size synchronous converter. It is not safe for
// concurrent use.
type Sinc struct {
	// in:out is the reduced rate ratio.
	in, out int64

	chunk        int
	taps         int
	oversampling int

	// table holds oversampling+1 rows of taps coefficients. Row r is the
	// kernel for a fractional delay of r/oversampling.
	table []float64

	// buf is taps samples of history followed by the current chunk.
	buf []float64

	consumed int64
	produced int64
}

// NewSinc builds a converter from inRate to outRate that consumes exactly
// chunk samples per call.
func NewSinc(inRate, outRate, chunk int, params Params) (*Sinc, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("resample: rates must be positive, got %d -> %d", inRate, outRate)
	}
	if chunk <= 0 {
		return nil, fmt.Errorf("resample: chunk must be positive, got %d", chunk)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	g := gcd(inRate, outRate)
	s := &Sinc{
		in:           int64(inRate / g),
		out:          int64(outRate / g),
		chunk:        chunk,
		taps:         params.Taps,
		oversampling: params.Oversampling,
		buf:          make([]float64, params.Taps+chunk),
	}

	cutoff := params.Cutoff
	if outRate < inRate {
		cutoff *= float64(outRate) / float64(inRate)
	}
	s.table = buildTable(params.Taps, params.Oversampling, cutoff, params.Window)

	return s, nil
}

// Chunk returns the input block size.
func (s *Sinc) Chunk() int {
	return s.chunk
}

// Process consumes one block and returns every output sample whose position
// is now covered by the input. Output lags input by Taps/2 input samples.
func (s *Sinc) Process(in []float64) ([]float64, error) {
	if len(in) != s.chunk {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInputSize, len(in), s.chunk)
	}

	copy(s.buf[s.taps:], in)
	before := s.consumed
	s.consumed += int64(s.chunk)

	// Global input index of buf[0].
	base := before - int64(s.taps)
	limit := s.consumed * s.out

	n := (limit-1)/s.in + 1 - s.produced
	outBuf := make([]float64, 0, max(n, 0))

	osr := float64(s.oversampling)
	for m := s.produced; m*s.in < limit; m++ {
		num := m * s.in
		q := num / s.out
		pos := float64(num%s.out) * osr / float64(s.out)
		r := int(pos)
		frac := pos - float64(r)

		start := int(q - int64(s.taps) + 1 - base)
		window := s.buf[start : start+s.taps]

		y0 := dot(s.row(r), window)
		y := y0
		if frac > 0 {
			y += frac * (dot(s.row(r+1), window) - y0)
		}
		outBuf = append(outBuf, y)
		s.produced = m + 1
	}

	copy(s.buf[:s.taps], s.buf[s.chunk:])

	return outBuf, nil
}

// Reset clears the filter history.
func (s *Sinc) Reset() {
	clear(s.buf)
	s.consumed = 0
	s.produced = 0
}

func (s *Sinc) row(r int) []float64 {
	return s.table[r*s.taps : (r+1)*s.taps]
}

// buildTable samples the windowed kernel. Tap k of row r weighs window[k] of
// Process, counting from the oldest sample (tap taps-1 is the newest), for a
// fractional position of r/oversampling past the window centre.
func buildTable(taps, oversampling int, cutoff float64, w Window) []float64 {
	half := float64(taps / 2)
	table := make([]float64, (oversampling+1)*taps)

	for r := 0; r <= oversampling; r++ {
		frac := float64(r) / float64(oversampling)
		for k := 0; k < taps; k++ {
			u := frac + half - 1 - float64(k)
			table[r*taps+k] = cutoff * sinc(cutoff*u) * window(w, (u+half)/(2*half))
		}
	}

	var sum float64
	for _, v := range table[:taps] {
		sum += v
	}
	for i := range table {
		table[i] /= sum
	}

	return table
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x

	return math.Sin(px) / px
}

// window evaluates w at p in [0, 1].
func window(w Window, p float64) float64 {
	if p < 0 || p > 1 {
		return 0
	}
	a := 2 * math.Pi * p
	v := 0.35875 - 0.48829*math.Cos(a) + 0.14128*math.Cos(2*a) - 0.01168*math.Cos(3*a)
	if w == BlackmanHarris2 {
		return v * v
	}

	return v
}

func dot(a, b []float64) float64 {
	var sum float64
	for i, v := range a {
		sum += v * b[i]
	}

	return sum
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}

	return a
}
