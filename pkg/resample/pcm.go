package resample

import "math"

// PCMToFloat scales 16-bit samples into [-1, 1).
func PCMToFloat(pcm []int16) []float64 {
	out := make([]float64, len(pcm))
	for i, v := range pcm {
		out[i] = float64(v) / 32768.0
	}

	return out
}

// FloatToPCM rounds to the nearest 16-bit value, saturating at the int16
// range.
func FloatToPCM(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		x := math.Round(v * 32768)
		switch {
		case x > math.MaxInt16:
			x = math.MaxInt16
		case x < math.MinInt16:
			x = math.MinInt16
		case math.IsNaN(x):
			x = 0
		}
		out[i] = int16(x)
	}

	return out
}

// DownmixStereo averages interleaved L/R pairs into normalized mono.
func DownmixStereo(stereo []int16) []float64 {
	out := make([]float64, len(stereo)/2)
	for i := range out {
		out[i] = (float64(stereo[2*i]) + float64(stereo[2*i+1])) / 65536.0
	}

	return out
}

// UpmixMono duplicates each sample into both channels.
func UpmixMono(mono []int16) []int16 {
	out := make([]int16, 2*len(mono))
	for i, v := range mono {
		out[2*i], out[2*i+1] = v, v
	}

	return out
}
