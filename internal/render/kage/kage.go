// Package kage is the GPU render.Backend, built on ebiten's Kage shaders.
// Each backend draws into its own offscreen image, which the host composites
// onto the screen.
package kage

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/coreman2200/funtimes-hyperlattice/internal/render"
)

// Backend owns an offscreen image sized to the renderer's backing store.
type Backend struct {
	img *ebiten.Image
}

func New() *Backend { return &Backend{} }

// Compile builds the shader. Uniform names come from the exported
// package-level vars of the source, since ebiten does not report them.
func (b *Backend) Compile(src []byte) (render.Program, error) {
	sh, err := ebiten.NewShader(src)
	if err != nil {
		return nil, fmt.Errorf("kage: %w", err)
	}
	names, err := uniformNames(src)
	if err != nil {
		sh.Deallocate()
		return nil, err
	}
	p := &Program{shader: sh, names: names, index: map[string]render.Location{}, vals: map[string]any{}}
	for i, n := range names {
		p.index[n] = render.Location(i)
	}
	return p, nil
}

func uniformNames(src []byte) ([]string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("kage: %w", err)
	}
	var names []string
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.VAR {
			continue
		}
		for _, spec := range gd.Specs {
			for _, id := range spec.(*ast.ValueSpec).Names {
				if id.IsExported() {
					names = append(names, id.Name)
				}
			}
		}
	}
	return names, nil
}

func (b *Backend) Viewport(w, h int) {
	if b.img != nil {
		if sz := b.img.Bounds().Size(); sz.X == w && sz.Y == h {
			return
		}
		b.img.Deallocate()
		b.img = nil
	}
	if w > 0 && h > 0 {
		b.img = ebiten.NewImage(w, h)
	}
}

func (b *Backend) Clear() {
	if b.img != nil {
		b.img.Clear()
	}
}

func (b *Backend) DrawQuad(rp render.Program) {
	p, ok := rp.(*Program)
	if !ok || b.img == nil {
		return
	}
	sz := b.img.Bounds().Size()
	op := &ebiten.DrawRectShaderOptions{Uniforms: p.vals}
	b.img.DrawRectShader(sz.X, sz.Y, p.shader, op)
}

// Image is the offscreen target, nil before the first Viewport.
func (b *Backend) Image() *ebiten.Image { return b.img }

// Program is a compiled Kage shader and its pending uniform values.
type Program struct {
	shader *ebiten.Shader
	names  []string
	index  map[string]render.Location
	vals   map[string]any
}

func (p *Program) Uniform(name string) (render.Location, bool) {
	loc, ok := p.index[name]
	return loc, ok
}

func (p *Program) Set1f(loc render.Location, v float32) {
	if int(loc) >= 0 && int(loc) < len(p.names) {
		p.vals[p.names[loc]] = v
	}
}

func (p *Program) Set2f(loc render.Location, x, y float32) {
	if int(loc) >= 0 && int(loc) < len(p.names) {
		p.vals[p.names[loc]] = []float32{x, y}
	}
}

var _ render.Backend = (*Backend)(nil)
