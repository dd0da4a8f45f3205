package samples

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/software"
)

// ColorVertex matches the WGSL ColorVertex struct in a storage array: vec2 position, padding to the
// vec4 alignment, vec4 color.
type ColorVertex struct {
	Position [2]float32
	_        [2]float32
	Color    [4]float32
}

// TexturedVertex matches the WGSL TexturedVertex struct: vec2 position, vec2 texture coordinate.
type TexturedVertex struct {
	Position [2]float32
	Texcoord [2]float32
}

var (
	colorVertexStride    = int(unsafe.Sizeof(ColorVertex{}))
	texturedVertexStride = int(unsafe.Sizeof(TexturedVertex{}))
)

func colorVertexAt(data []byte, i uint32) ColorVertex {
	off := int(i) * colorVertexStride
	return common.BytesToSlice[ColorVertex](data[off : off+colorVertexStride])[0]
}

func texturedVertexAt(data []byte, i uint32) TexturedVertex {
	off := int(i) * texturedVertexStride
	return common.BytesToSlice[TexturedVertex](data[off : off+texturedVertexStride])[0]
}

// pixelToClip maps a pixel offset from the viewport centre to clip space.
func pixelToClip(p [2]float32, viewport []byte) [4]float32 {
	halfW := float32(common.Uint32At(viewport, 0)) / 2
	halfH := float32(common.Uint32At(viewport, 1)) / 2
	return [4]float32{p[0] / halfW, p[1] / halfH, 0, 1}
}

// The rasterizer outputs shared by every render sample.

func colorOutput(pos [4]float32, c [4]float32) software.VertexOutput {
	return software.VertexOutput{Position: pos, Varyings: c[:]}
}

func texturedOutput(pos [4]float32, uv [2]float32) software.VertexOutput {
	return software.VertexOutput{Position: pos, Varyings: uv[:]}
}

func passColor(in software.FragmentInput, _ *software.Args) [4]float32 {
	return [4]float32{in.Varyings[0], in.Varyings[1], in.Varyings[2], in.Varyings[3]}
}

func sampleTexture(in software.FragmentInput, args *software.Args) [4]float32 {
	return args.Texture(0).Sample(in.Varyings[0], in.Varyings[1])
}

// quadVertices is a square of side 2*half centred on the origin, as two triangles with the texture's
// top-left corner at the top-left vertex.
func quadVertices(half float32) []TexturedVertex {
	return []TexturedVertex{
		{Position: [2]float32{half, -half}, Texcoord: [2]float32{1, 1}},
		{Position: [2]float32{-half, -half}, Texcoord: [2]float32{0, 1}},
		{Position: [2]float32{-half, half}, Texcoord: [2]float32{0, 0}},

		{Position: [2]float32{half, -half}, Texcoord: [2]float32{1, 1}},
		{Position: [2]float32{-half, half}, Texcoord: [2]float32{0, 0}},
		{Position: [2]float32{half, half}, Texcoord: [2]float32{1, 0}},
	}
}
