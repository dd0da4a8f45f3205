package shader

import (
	"fmt"
	"sort"

	"github.com/gogpu/naga/ir"
)

var storageFormatNames = map[ir.StorageFormat]string{
	ir.StorageFormatR32Float:    "r32float",
	ir.StorageFormatR32Uint:     "r32uint",
	ir.StorageFormatRgba8Unorm:  "rgba8unorm",
	ir.StorageFormatBgra8Unorm:  "bgra8unorm",
	ir.StorageFormatRgba16Float: "rgba16float",
	ir.StorageFormatRgba32Float: "rgba32float",
}

// reflectModule extracts every entry point of a lowered module with the resources it references.
func reflectModule(module, source string, m *ir.Module) ([]*Function, error) {
	functions := make([]*Function, 0, len(m.EntryPoints))
	for _, ep := range m.EntryPoints {
		stage, err := stageOf(ep.Stage)
		if err != nil {
			return nil, fmt.Errorf("entry point %q: %w", ep.Name, err)
		}

		used := make(map[ir.GlobalVariableHandle]bool)
		globalsOf(m, &ep.Function, used, make(map[ir.FunctionHandle]bool))

		bindings := make([]Binding, 0, len(used))
		for h := range used {
			if int(h) >= len(m.GlobalVariables) {
				continue
			}
			gv := m.GlobalVariables[h]
			if gv.Binding == nil {
				continue
			}
			b, ok := classify(m, gv)
			if !ok {
				continue
			}
			bindings = append(bindings, b)
		}
		sort.Slice(bindings, func(i, j int) bool {
			if bindings[i].Group != bindings[j].Group {
				return bindings[i].Group < bindings[j].Group
			}
			return bindings[i].Binding < bindings[j].Binding
		})

		f := &Function{
			Name:     ep.Name,
			Stage:    stage,
			Module:   module,
			Source:   source,
			Bindings: bindings,
		}
		if stage == ShaderTypeCompute {
			f.WorkgroupSize = ep.Workgroup
		}
		functions = append(functions, f)
	}
	return functions, nil
}

func stageOf(s ir.ShaderStage) (ShaderType, error) {
	switch s {
	case ir.StageCompute:
		return ShaderTypeCompute, nil
	case ir.StageVertex:
		return ShaderTypeVertex, nil
	case ir.StageFragment:
		return ShaderTypeFragment, nil
	default:
		return 0, fmt.Errorf("unsupported shader stage %d", s)
	}
}

// globalsOf collects the globals fn references itself or through the helpers it calls.
func globalsOf(m *ir.Module, fn *ir.Function, into map[ir.GlobalVariableHandle]bool, visited map[ir.FunctionHandle]bool) {
	collectGlobals(fn.Expressions, into)
	var calls []ir.FunctionHandle
	collectCalls(fn.Body, &calls)
	for _, h := range calls {
		if visited[h] || int(h) >= len(m.Functions) {
			continue
		}
		visited[h] = true
		globalsOf(m, &m.Functions[h], into, visited)
	}
}

func collectCalls(stmts []ir.Statement, into *[]ir.FunctionHandle) {
	for _, st := range stmts {
		switch k := st.Kind.(type) {
		case ir.StmtCall:
			*into = append(*into, k.Function)
		case ir.StmtBlock:
			collectCalls(k.Block, into)
		case ir.StmtIf:
			collectCalls(k.Accept, into)
			collectCalls(k.Reject, into)
		case ir.StmtSwitch:
			for _, c := range k.Cases {
				collectCalls(c.Body, into)
			}
		case ir.StmtLoop:
			collectCalls(k.Body, into)
			collectCalls(k.Continuing, into)
		}
	}
}

func collectGlobals(exprs []ir.Expression, into map[ir.GlobalVariableHandle]bool) {
	for _, e := range exprs {
		if gv, ok := e.Kind.(ir.ExprGlobalVariable); ok {
			into[gv.Variable] = true
		}
	}
}

func classify(m *ir.Module, gv ir.GlobalVariable) (Binding, bool) {
	b := Binding{
		Name:    gv.Name,
		Group:   gv.Binding.Group,
		Binding: gv.Binding.Binding,
	}

	switch gv.Space {
	case ir.SpaceUniform:
		b.Kind = BindingUniform
		b.Size = ir.TypeSize(m, gv.Type)
		return b, true
	case ir.SpaceStorage:
		b.Kind = BindingStorage
		if gv.Access == ir.StorageRead {
			b.Kind = BindingReadOnlyStorage
		}
		b.Size = ir.TypeSize(m, gv.Type)
		return b, true
	case ir.SpaceHandle:
	default:
		return Binding{}, false
	}

	if int(gv.Type) >= len(m.Types) {
		return Binding{}, false
	}
	switch t := m.Types[gv.Type].Inner.(type) {
	case ir.SamplerType:
		b.Kind = BindingSampler
	case ir.ImageType:
		b.Multisampled = t.Multisampled
		if t.Class != ir.ImageClassStorage {
			b.Kind = BindingSampledTexture
			break
		}
		b.Kind = BindingStorageTexture
		b.StorageFormat = storageFormatNames[t.StorageFormat]
		switch t.StorageAccess {
		case ir.StorageAccessRead:
			b.Access = TextureAccessRead
		case ir.StorageAccessReadWrite:
			b.Access = TextureAccessReadWrite
		default:
			b.Access = TextureAccessWrite
		}
	default:
		return Binding{}, false
	}
	return b, true
}
