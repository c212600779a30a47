package render

// Mix blends two framebuffers (a,b) into dst using alpha (0..1).
// Channels are linear; no gamma assumed.
func Mix(dst, a, b []Color, alpha float64) {
	if alpha <= 0 {
		copy(dst, a)
		return
	}
	if alpha >= 1 {
		copy(dst, b)
		return
	}
	af := float32(1.0 - alpha)
	bf := float32(alpha)
	n := min(len(dst), len(a), len(b))
	for i := 0; i < n; i++ {
		dst[i].R = a[i].R*af + b[i].R*bf
		dst[i].G = a[i].G*af + b[i].G*bf
		dst[i].B = a[i].B*af + b[i].B*bf
		dst[i].A = a[i].A*af + b[i].A*bf
	}
}

// Lighter composites src over dst additively (the "lighter" blend of stacked
// transparent canvases). Both buffers are premultiplied; values may exceed 1
// until tone mapping.
func Lighter(dst, src []Color) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i].R += src[i].R
		dst[i].G += src[i].G
		dst[i].B += src[i].B
		dst[i].A = clamp01(dst[i].A + src[i].A)
	}
}

// Resample scales a w×h framebuffer into dst (dw×dh) by nearest neighbour.
// Layers rendered at different DPR caps are brought to a common size
// before compositing.
func Resample(dst []Color, dw, dh int, src []Color, w, h int) {
	if dw <= 0 || dh <= 0 || len(dst) < dw*dh {
		return
	}
	if w <= 0 || h <= 0 || len(src) < w*h {
		clear(dst[:dw*dh])
		return
	}
	if w == dw && h == dh {
		copy(dst, src[:w*h])
		return
	}
	for y := 0; y < dh; y++ {
		sy := y * h / dh
		for x := 0; x < dw; x++ {
			dst[y*dw+x] = src[sy*w+x*w/dw]
		}
	}
}
