package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}

// Fill sets all values in buf to v.
func Fill(buf []float64, v float64) {
	for i := range buf {
		buf[i] = v
	}
}

// FillRamp writes the linear start→end ramp into buf using the RampAt
// convention over len(buf) samples.
func FillRamp(buf []float64, start, end float64) {
	n := len(buf)
	if start == end {
		Fill(buf, end)
		return
	}

	step := (end - start) / float64(n)
	for i := range buf {
		buf[i] = start + step*float64(i+1)
	}
}
