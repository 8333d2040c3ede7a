package frames

import "math"

// AudioLevelsFromPCM computes one normalized RMS amplitude per frame from
// mono 16-bit samples. Frame i covers the audio window starting at i divided
// by fps. Windows past the end of the audio read as silence.
func AudioLevelsFromPCM(samples []int16, sampleRate int, fps float64, frameCount int) []float64 {
	levels := make([]float64, frameCount)
	if sampleRate <= 0 || fps <= 0 || len(samples) == 0 {
		return levels
	}
	window := int(float64(sampleRate) / fps)
	if window < 1 {
		window = 1
	}
	for i := 0; i < frameCount; i++ {
		start := int(float64(i) / fps * float64(sampleRate))
		if start >= len(samples) {
			break
		}
		end := start + window
		if end > len(samples) {
			end = len(samples)
		}
		var sum float64
		for _, s := range samples[start:end] {
			v := float64(s) / 32768.0
			sum += v * v
		}
		levels[i] = math.Sqrt(sum / float64(end-start))
	}
	return levels
}
