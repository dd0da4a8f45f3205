package software

import (
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

// rasterBandRows is the number of framebuffer rows shaded by one worker task.
const rasterBandRows = 32

// draw is one recorded Draw call with its bindings.
type draw struct {
	pipeline  *renderPipeline
	viewport  renderer.Viewport
	vertex    map[int]binding
	fragment  map[int]binding
	primitive renderer.PrimitiveType
	start     int
	count     int
}

// renderPass is a recorded render pass.
type renderPass struct {
	color    renderer.ColorAttachment
	target   *texture
	resolve  *texture
	draws    []draw
	commands []string
}

func (p *renderPass) describe() string {
	resolve := ""
	if p.resolve != nil {
		resolve = p.resolve.label
	}
	c := p.color.Clear
	return fmt.Sprintf("attachment texture=%q resolve=%q load=%d store=%d clear=(%g,%g,%g,%g)",
		p.target.label, resolve, p.color.Load, p.color.Store, c.R, c.G, c.B, c.A)
}

func (p *renderPass) record() PassRecord {
	return PassRecord{Kind: "render", Commands: p.commands}
}

func (p *renderPass) execute(dev *device) error {
	if p.color.Load == renderer.LoadActionClear {
		c := p.color.Clear
		p.target.fill([4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)})
	}
	for i, d := range p.draws {
		if err := d.execute(dev, p.target); err != nil {
			return fmt.Errorf("draw %d: %w", i, err)
		}
	}
	if p.resolve != nil {
		resolveInto(p.resolve, p.target)
	}
	return nil
}

// resolveInto copies a single-sample rendering into the resolve texture, converting formats when they differ.
func resolveInto(dst, src *texture) {
	if dst.format == src.format {
		copy(dst.data, src.data)
		return
	}
	for y := uint32(0); y < src.height; y++ {
		for x := uint32(0); x < src.width; x++ {
			dst.Write(x, y, src.Read(x, y))
		}
	}
}

// screenVertex is a vertex after the viewport transform.
type screenVertex struct {
	x, y, z, w float64
	varyings   []float32
	valid      bool
}

func (d draw) execute(dev *device, target *texture) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vertex function %q panicked: %v", d.pipeline.vertex.Name, r)
		}
	}()

	vargs, err := argsFor(d.vertex)
	if err != nil {
		return fmt.Errorf("vertex function %q: %w", d.pipeline.vertex.Name, err)
	}
	verts := make([]screenVertex, d.count)
	for i := range verts {
		out := d.pipeline.vertexFn(uint32(d.start+i), vargs)
		if len(out.Varyings) > MaxVaryings {
			return fmt.Errorf("vertex function %q returned %d varyings, limit is %d", d.pipeline.vertex.Name, len(out.Varyings), MaxVaryings)
		}
		verts[i] = d.toScreen(out)
	}

	var tris [][3]int
	switch d.primitive {
	case renderer.PrimitiveTypeTriangleStrip:
		for i := 0; i+2 < len(verts); i++ {
			tris = append(tris, [3]int{i, i + 1, i + 2})
		}
	default:
		for i := 0; i+2 < len(verts); i += 3 {
			tris = append(tris, [3]int{i, i + 1, i + 2})
		}
	}

	fargs, err := argsFor(d.fragment)
	if err != nil {
		return fmt.Errorf("fragment function %q: %w", d.pipeline.fragment.Name, err)
	}
	for _, t := range tris {
		if err := d.rasterize(dev, target, fargs, verts[t[0]], verts[t[1]], verts[t[2]]); err != nil {
			return err
		}
	}
	return nil
}

func (d draw) toScreen(out VertexOutput) screenVertex {
	w := float64(out.Position[3])
	if w <= 0 {
		return screenVertex{}
	}
	vp := d.viewport
	nx := float64(out.Position[0]) / w
	ny := float64(out.Position[1]) / w
	nz := float64(out.Position[2]) / w
	return screenVertex{
		x:        vp.X + (nx+1)*0.5*vp.Width,
		y:        vp.Y + (1-ny)*0.5*vp.Height,
		z:        vp.ZNear + nz*(vp.ZFar-vp.ZNear),
		w:        w,
		varyings: out.Varyings,
		valid:    true,
	}
}

// edge evaluates the edge function of a→b at p. Positive values lie on the interior side.
func edge(a, b screenVertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// topLeft reports whether the edge a→b is a top or left edge under the positive-area winding.
func topLeft(a, b screenVertex) bool {
	dx, dy := b.x-a.x, b.y-a.y
	return (dy == 0 && dx > 0) || dy < 0
}

func covers(e float64, tl bool) bool {
	return e > 0 || (e == 0 && tl)
}

// rasterize shades every pixel centre inside the triangle, splitting the bounding box into row bands.
func (d draw) rasterize(dev *device, target *texture, args *Args, v0, v1, v2 screenVertex) error {
	if !v0.valid || !v1.valid || !v2.valid {
		return nil
	}
	area := edge(v0, v1, v2.x, v2.y)
	if area == 0 {
		return nil
	}
	if area < 0 {
		v1, v2 = v2, v1
		area = -area
	}

	vp := d.viewport
	minX := max(math.Floor(min(v0.x, v1.x, v2.x)), math.Floor(vp.X), 0)
	maxX := min(math.Ceil(max(v0.x, v1.x, v2.x)), math.Ceil(vp.X+vp.Width), float64(target.width))
	minY := max(math.Floor(min(v0.y, v1.y, v2.y)), math.Floor(vp.Y), 0)
	maxY := min(math.Ceil(max(v0.y, v1.y, v2.y)), math.Ceil(vp.Y+vp.Height), float64(target.height))
	if minX >= maxX || minY >= maxY {
		return nil
	}

	tl12, tl20, tl01 := topLeft(v1, v2), topLeft(v2, v0), topLeft(v0, v1)
	nv := min(len(v0.varyings), len(v1.varyings), len(v2.varyings))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	onPanic := func(r any) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = fmt.Errorf("fragment function %q panicked: %v", d.pipeline.fragment.Name, r)
		}
	}

	for y0 := int(minY); y0 < int(maxY); y0 += rasterBandRows {
		y1 := min(y0+rasterBandRows, int(maxY))
		band := [2]int{y0, y1}
		dev.submit(&wg, func() {
			varyings := make([]float32, nv)
			for y := band[0]; y < band[1]; y++ {
				py := float64(y) + 0.5
				for x := int(minX); x < int(maxX); x++ {
					px := float64(x) + 0.5
					e12 := edge(v1, v2, px, py)
					e20 := edge(v2, v0, px, py)
					e01 := edge(v0, v1, px, py)
					if !covers(e12, tl12) || !covers(e20, tl20) || !covers(e01, tl01) {
						continue
					}
					l0, l1, l2 := e12/area, e20/area, e01/area
					for k := range varyings {
						varyings[k] = float32(l0*float64(v0.varyings[k]) + l1*float64(v1.varyings[k]) + l2*float64(v2.varyings[k]))
					}
					in := FragmentInput{
						Position: [4]float32{
							float32(px),
							float32(py),
							float32(l0*v0.z + l1*v1.z + l2*v2.z),
							float32(l0*v0.w + l1*v1.w + l2*v2.w),
						},
						Varyings: varyings,
					}
					c := d.pipeline.fragmentFn(in, args)
					if d.pipeline.blending {
						c = blend(c, target.Read(uint32(x), uint32(y)))
					}
					target.Write(uint32(x), uint32(y), c)
				}
			}
		}, onPanic)
	}
	wg.Wait()
	return firstErr
}

// blend composites src over dst with non-premultiplied alpha.
func blend(src, dst [4]float32) [4]float32 {
	a := src[3]
	return [4]float32{
		src[0]*a + dst[0]*(1-a),
		src[1]*a + dst[1]*(1-a),
		src[2]*a + dst[2]*(1-a),
		a + dst[3]*(1-a),
	}
}
