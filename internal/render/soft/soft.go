// Package soft is a CPU render.Backend. It reads the uniform table out of the
// Kage program source and shades every pixel with the Go reference kernel.
package soft

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"image"
	"image/color"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/funtimes-hyperlattice/internal/params"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
	"github.com/coreman2200/funtimes-hyperlattice/internal/render/shader"
)

// ErrNoEntryPoint is returned when the program has no Fragment function.
var ErrNoEntryPoint = errors.New("link: missing entry point " + shader.EntryPoint)

// rowsPerTask is the band height handed to one worker.
const rowsPerTask = 16

// Backend owns a premultiplied framebuffer, row 0 at the top.
type Backend struct {
	workers int

	mu  sync.RWMutex
	w   int
	h   int
	buf []render.Color
}

// New returns a backend that shades with up to workers goroutines;
// workers <= 0 uses GOMAXPROCS.
func New(workers int) *Backend {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Backend{workers: workers}
}

// Compile parses src and builds the uniform table from its package-level
// vars. Syntax errors and a missing entry point are compile failures.
func (b *Backend) Compile(src []byte) (render.Program, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "lattice.kage", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	p := &Program{index: map[string]render.Location{}}
	entry := false
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.Name == shader.EntryPoint {
				entry = true
			}
		case *ast.GenDecl:
			if d.Tok != token.VAR {
				continue
			}
			for _, spec := range d.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				width := uniformWidth(vs.Type)
				for _, id := range vs.Names {
					if !id.IsExported() || width == 0 {
						continue
					}
					p.index[id.Name] = render.Location(len(p.vals))
					p.vals = append(p.vals, [2]float32{})
				}
			}
		}
	}
	if !entry {
		return nil, ErrNoEntryPoint
	}
	return p, nil
}

func uniformWidth(t ast.Expr) int {
	id, ok := t.(*ast.Ident)
	if !ok {
		return 0
	}
	switch id.Name {
	case "float":
		return 1
	case "vec2":
		return 2
	}
	return 0
}

func (b *Backend) Viewport(w, h int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	b.w, b.h = w, h
	b.buf = make([]render.Color, w*h)
}

func (b *Backend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.buf)
}

// DrawQuad shades the whole viewport. Programs from another backend are
// ignored.
func (b *Backend) DrawQuad(rp render.Program) {
	p, ok := rp.(*Program)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.w == 0 || b.h == 0 {
		return
	}
	f := shader.Prepare(p.uniforms(b.w, b.h))
	w, h := b.w, b.h

	var g errgroup.Group
	g.SetLimit(b.workers)
	for y0 := 0; y0 < h; y0 += rowsPerTask {
		y1 := min(y0+rowsPerTask, h)
		g.Go(func() error {
			for j := y0; j < y1; j++ {
				fy := float64(h-j) - 0.5
				row := b.buf[j*w : (j+1)*w]
				for i := range row {
					r, gg, bb, a := f.At(float64(i)+0.5, fy)
					row[i] = render.Color{R: r, G: gg, B: bb, A: a}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Size is the framebuffer size.
func (b *Backend) Size() (w, h int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.w, b.h
}

// Frame copies the framebuffer into dst, growing it as needed.
func (b *Backend) Frame(dst []render.Color) []render.Color {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if cap(dst) < len(b.buf) {
		dst = make([]render.Color, len(b.buf))
	}
	dst = dst[:len(b.buf)]
	copy(dst, b.buf)
	return dst
}

// Image converts the framebuffer to an 8-bit premultiplied image.
func (b *Backend) Image() *image.RGBA {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return render.ToImage(b.buf, b.w, b.h)
}

// Program is the uniform table of a parsed lattice program.
type Program struct {
	index map[string]render.Location
	vals  [][2]float32
}

func (p *Program) Uniform(name string) (render.Location, bool) {
	loc, ok := p.index[name]
	return loc, ok
}

func (p *Program) Set1f(loc render.Location, v float32) {
	if int(loc) >= 0 && int(loc) < len(p.vals) {
		p.vals[loc][0] = v
	}
}

func (p *Program) Set2f(loc render.Location, x, y float32) {
	if int(loc) >= 0 && int(loc) < len(p.vals) {
		p.vals[loc] = [2]float32{x, y}
	}
}

func (p *Program) get(name string) (float64, bool) {
	loc, ok := p.index[name]
	if !ok {
		return 0, false
	}
	return float64(p.vals[loc][0]), true
}

// uniforms gathers the kernel inputs. Parameters the program does not
// declare keep their defaults; the resolution falls back to the viewport.
func (p *Program) uniforms(w, h int) shader.Uniforms {
	u := shader.Uniforms{Width: float64(w), Height: float64(h), P: params.Defaults()}
	if v, ok := p.get(shader.UniformTime); ok {
		u.TimeMS = v
	}
	if loc, ok := p.index[shader.UniformResolution]; ok {
		if rw, rh := p.vals[loc][0], p.vals[loc][1]; rw > 0 && rh > 0 {
			u.Width, u.Height = float64(rw), float64(rh)
		}
	}
	for _, n := range params.Names() {
		if v, ok := p.get(n.Uniform()); ok {
			u.P[n] = v
		}
	}
	return u
}

var _ render.Backend = (*Backend)(nil)

// Pixel is a helper for tests and hosts that sample single pixels.
func (b *Backend) Pixel(x, y int) color.RGBA {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return color.RGBA{}
	}
	return render.To8(b.buf[y*b.w+x])
}
