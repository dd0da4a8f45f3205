package executor

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
)

// DefaultTileSize is the edge of the square thread group used by Grid2D.
const DefaultTileSize = 16

// DispatchSize is the thread group count and thread group size of one dispatch.
type DispatchSize struct {
	Groups          renderer.Size
	ThreadsPerGroup renderer.Size
}

// Threads returns the total number of threads launched.
func (s DispatchSize) Threads() uint64 {
	return s.Groups.Total() * s.ThreadsPerGroup.Total()
}

// Grid computes the dispatch size of a compute pass once its pipeline is known.
type Grid func(p renderer.ComputePipeline, info FrameInfo) (DispatchSize, error)

// Linear sizes a one dimensional dispatch over d elements with at most maxThreads threads per
// group. The group holds min(maxThreads, d) threads and enough groups are launched to cover d.
//
// Parameters:
//   - d: the number of elements, the data length
//   - maxThreads: the pipeline limit on threads per group
//
// Returns:
//   - DispatchSize: the dispatch, empty when d or maxThreads is zero
func Linear(d, maxThreads uint32) DispatchSize {
	tpg := min(maxThreads, d)
	if tpg == 0 {
		return DispatchSize{}
	}
	return DispatchSize{
		Groups:          renderer.Size{Width: common.CeilDiv(d, tpg), Height: 1, Depth: 1},
		ThreadsPerGroup: renderer.Size{Width: tpg, Height: 1, Depth: 1},
	}
}

// Tiled sizes a two dimensional dispatch over a w by h grid in square tiles.
// Tiled(100, 50, 16) launches (7, 4, 1) groups of (16, 16, 1) threads.
//
// Parameters:
//   - w: the grid width
//   - h: the grid height
//   - tile: the tile edge
//
// Returns:
//   - DispatchSize: the dispatch, empty when any argument is zero
func Tiled(w, h, tile uint32) DispatchSize {
	if w == 0 || h == 0 || tile == 0 {
		return DispatchSize{}
	}
	return DispatchSize{
		Groups:          renderer.Size{Width: common.CeilDiv(w, tile), Height: common.CeilDiv(h, tile), Depth: 1},
		ThreadsPerGroup: renderer.Size{Width: tile, Height: tile, Depth: 1},
	}
}

// Grid1D covers n elements with groups as large as the pipeline allows.
func Grid1D(n uint32) Grid {
	return func(p renderer.ComputePipeline, _ FrameInfo) (DispatchSize, error) {
		s := Linear(n, p.MaxTotalThreadsPerThreadgroup())
		if s.Threads() == 0 {
			return s, fmt.Errorf("empty 1D grid of %d elements", n)
		}
		return s, nil
	}
}

// Grid2D covers a w by h grid. A pipeline with a fixed two dimensional workgroup dictates the tile;
// otherwise DefaultTileSize is used, shrunk to fit the pipeline thread limit.
func Grid2D(w, h uint32) Grid {
	return func(p renderer.ComputePipeline, _ FrameInfo) (DispatchSize, error) {
		if wg := p.WorkgroupSize(); wg.Width > 1 && wg.Height > 1 {
			s := DispatchSize{
				Groups:          renderer.Size{Width: common.CeilDiv(w, wg.Width), Height: common.CeilDiv(h, wg.Height), Depth: 1},
				ThreadsPerGroup: renderer.Size{Width: wg.Width, Height: wg.Height, Depth: 1},
			}
			if s.Threads() == 0 {
				return s, fmt.Errorf("empty 2D grid %dx%d", w, h)
			}
			return s, nil
		}
		tile := uint32(DefaultTileSize)
		if limit := p.MaxTotalThreadsPerThreadgroup(); tile*tile > limit {
			tile = uint32(math.Sqrt(float64(limit)))
		}
		s := Tiled(w, h, tile)
		if s.Threads() == 0 {
			return s, fmt.Errorf("empty 2D grid %dx%d", w, h)
		}
		return s, nil
	}
}

// GridFromTexture covers every texel of tex.
func GridFromTexture(tex renderer.Texture) Grid {
	return Grid2D(tex.Width(), tex.Height())
}

// GridFromFrame covers the drawable, sized when the frame is encoded.
func GridFromFrame() Grid {
	return func(p renderer.ComputePipeline, info FrameInfo) (DispatchSize, error) {
		return Grid2D(info.Width, info.Height)(p, info)
	}
}
