package executor

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-frames/common"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frames/engine/renderer/software"
	"github.com/stretchr/testify/require"
)

// stubLibrary serves hand-written reflection data.
type stubLibrary map[string]*shader.Function

func (l stubLibrary) Label() string { return "stub" }

func (l stubLibrary) Function(name string) (*shader.Function, error) {
	fn, ok := l[name]
	if !ok {
		return nil, &shader.EntryPointNotFound{Name: name, Library: "stub"}
	}
	return fn, nil
}

func (l stubLibrary) Functions() []*shader.Function {
	out := make([]*shader.Function, 0, len(l))
	for _, name := range l.Names() {
		out = append(out, l[name])
	}
	return out
}

func (l stubLibrary) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var testLibrary = stubLibrary{
	"add_arrays": {
		Name:          "add_arrays",
		Stage:         shader.ShaderTypeCompute,
		WorkgroupSize: [3]uint32{64, 1, 1},
		Bindings: []shader.Binding{
			{Name: "a", Binding: 0, Kind: shader.BindingReadOnlyStorage},
			{Name: "b", Binding: 1, Kind: shader.BindingReadOnlyStorage},
			{Name: "result", Binding: 2, Kind: shader.BindingStorage},
		},
	},
	"solidVertex": {
		Name:     "solidVertex",
		Stage:    shader.ShaderTypeVertex,
		Bindings: []shader.Binding{{Name: "viewport", Binding: 1, Kind: shader.BindingUniform, Size: 8}},
	},
	"solidFragment": {
		Name:     "solidFragment",
		Stage:    shader.ShaderTypeFragment,
		Bindings: []shader.Binding{{Name: "color", Group: shader.FragmentGroup, Binding: 0, Kind: shader.BindingUniform, Size: 16}},
	},
}

// fullscreenTriangle covers clip space with a single oversized triangle.
var fullscreenTriangle = [3][2]float32{{-1, -1}, {3, -1}, {-1, 3}}

func addArrays(tid software.ThreadPosition, args *software.Args) {
	out := args.Buffer(2)
	i := int(tid.Global[0])
	if i*4 >= len(out) {
		return
	}
	common.PutFloat32(out, i, common.Float32At(args.Buffer(0), i)+common.Float32At(args.Buffer(1), i))
}

func testFunctions() software.Functions {
	return software.Functions{
		Kernels: map[string]software.Kernel{"add_arrays": addArrays},
		Vertex: map[string]software.VertexFunction{
			"solidVertex": func(id uint32, _ *software.Args) software.VertexOutput {
				p := fullscreenTriangle[id%3]
				return software.VertexOutput{Position: [4]float32{p[0], p[1], 0, 1}}
			},
		},
		Fragment: map[string]software.FragmentFunction{
			"solidFragment": func(_ software.FragmentInput, args *software.Args) [4]float32 {
				c := common.BytesToSlice[float32](args.Buffer(0))
				return [4]float32{c[0], c[1], c[2], c[3]}
			},
		},
	}
}

func newDevice(t *testing.T, options ...software.DeviceBuilderOption) software.Device {
	t.Helper()
	options = append([]software.DeviceBuilderOption{software.WithWorkers(4), software.WithFunctions(testFunctions())}, options...)
	dev := software.NewDevice(options...)
	t.Cleanup(dev.Release)
	return dev
}

func addSpec() pipeline.Descriptor {
	return pipeline.NewCompute("add", "add_arrays")
}

func solidSpec(format renderer.PixelFormat, samples uint32) pipeline.Descriptor {
	return pipeline.NewRender("solid", "solidVertex", "solidFragment",
		pipeline.WithColorFormat(format), pipeline.WithSampleCount(samples))
}

func newReadyExecutor(t *testing.T, dev renderer.Device, options ...ExecutorBuilderOption) Executor {
	t.Helper()
	e := NewExecutor(options...)
	require.NoError(t, e.Initialize(dev, testLibrary, addSpec(), solidSpec(renderer.PixelFormatBGRA8Unorm, 1)))
	t.Cleanup(e.Release)
	return e
}

func floats(n int, f func(i int) float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func solidPass(color [4]float32) RenderPass {
	return RenderPass{
		Label:          "solid",
		Pipeline:       "solid",
		Load:           renderer.LoadActionClear,
		Clear:          renderer.ClearColor{A: 1},
		VertexParams:   []Param{ViewportSizeParam(1)},
		FragmentParams: []Param{StaticParam(0, common.SliceToBytes(color[:]))},
		VertexCount:    3,
	}
}
