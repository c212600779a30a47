package render

import "math"

// ToneMap holds the output transform applied after compositing.
type ToneMap struct {
	// ExposureEV scales linear light by 2^EV.
	ExposureEV float64
	// Gamma is the output gamma; zero means 2.2, one disables encoding.
	Gamma float64
}

// Filmic applies an ACES approximation with exposure and gamma. Colour stays
// premultiplied: channels are mapped and then capped by alpha.
func (tm ToneMap) Filmic(buf []Color) {
	gamma := tm.Gamma
	if gamma <= 0 {
		gamma = 2.2
	}
	exposure := float32(math.Pow(2.0, tm.ExposureEV))

	for i := range buf {
		r := acesApprox(buf[i].R * exposure)
		g := acesApprox(buf[i].G * exposure)
		b := acesApprox(buf[i].B * exposure)

		if gamma != 1.0 {
			ig := 1.0 / gamma
			r = powf(r, ig)
			g = powf(g, ig)
			b = powf(b, ig)
		}

		a := clamp01(buf[i].A)
		buf[i].R = min(clamp01(r), a)
		buf[i].G = min(clamp01(g), a)
		buf[i].B = min(clamp01(b), a)
		buf[i].A = a
	}
}

// Clamp only bounds every channel to [0,1].
func Clamp(buf []Color) {
	for i := range buf {
		buf[i].R = clamp01(buf[i].R)
		buf[i].G = clamp01(buf[i].G)
		buf[i].B = clamp01(buf[i].B)
		buf[i].A = clamp01(buf[i].A)
	}
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func powf(x float32, p float64) float32 {
	return float32(math.Pow(float64(x), p))
}

// Approximate ACES filmic curve (Narkowicz 2015).
func acesApprox(x float32) float32 {
	a := float32(2.51)
	b := float32(0.03)
	c := float32(2.43)
	d := float32(0.59)
	e := float32(0.14)
	return clamp01((x * (a*x + b)) / (x*(c*x+d) + e))
}
