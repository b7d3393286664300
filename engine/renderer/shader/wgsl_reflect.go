package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/wgsl"
)

// wgslStages maps the stages the WGSL front end can express onto IR stages.
var wgslStages = map[Stage]ir.ShaderStage{
	StageVertex:  ir.StageVertex,
	StagePixel:   ir.StageFragment,
	StageCompute: ir.StageCompute,
}

// selectEntryPoint finds the entry point for stage. The fixed per-stage name wins,
// otherwise the first entry point of the matching kind is used.
func selectEntryPoint(module *ir.Module, stage Stage) (*ir.EntryPoint, error) {
	irStage, ok := wgslStages[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStageUnsupported, stage)
	}

	var fallback *ir.EntryPoint
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		if ep.Stage != irStage {
			continue
		}
		if ep.Name == EntryPoint(stage) {
			return ep, nil
		}
		if fallback == nil {
			fallback = ep
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: no %s entry point", ErrEntryPointMissing, stage)
	}
	return fallback, nil
}

// reflectModule builds the reflection for one entry point. Only globals reachable from the
// entry point are reported.
func reflectModule(ast *wgsl.Module, module *ir.Module, ep *ir.EntryPoint, stage Stage) (*Reflection, error) {
	if int(ep.Function) >= len(module.Functions) {
		return nil, fmt.Errorf("%w: entry point %s has no function body", ErrNoReflection, ep.Name)
	}

	decls := make(map[string]*wgsl.VarDecl, len(ast.GlobalVars))
	for _, v := range ast.GlobalVars {
		decls[v.Name] = v
	}

	used := usedGlobals(module, ep.Function)
	r := &Reflection{EntryPoint: ep.Name}

	for i, gv := range module.GlobalVariables {
		if gv.Binding == nil || !used[ir.GlobalVariableHandle(i)] {
			continue
		}

		var addressSpace, accessMode, typeName string
		if decl, ok := decls[gv.Name]; ok {
			addressSpace, accessMode, typeName = decl.AddressSpace, decl.AccessMode, typeString(decl.Type)
		}

		res := BoundResource{
			Name:     gv.Name,
			Slot:     Slot{Group: gv.Binding.Group, Binding: gv.Binding.Binding},
			TypeName: typeName,
			Layout:   classifyResource(gv.Binding.Binding, addressSpace, accessMode, typeName),
		}

		switch gv.Space {
		case ir.SpaceUniform:
			size, _ := typeLayout(module, gv.Type)
			res.Kind = ResourceConstantBuffer
			res.Size = roundUpAlign(16, size)
			r.ConstantBuffers = append(r.ConstantBuffers, ConstantBufferDesc{
				Name:      gv.Name,
				Slot:      res.Slot,
				Size:      res.Size,
				Variables: constantBufferVariables(module, gv),
			})
		case ir.SpaceStorage:
			res.Kind = storageKind(module, gv.Type, accessMode)
			res.Size, _ = typeLayout(module, gv.Type)
		case ir.SpaceHandle:
			switch inner := module.Types[gv.Type].Inner.(type) {
			case ir.SamplerType:
				res.Kind = ResourceSampler
			case ir.ImageType:
				res.Kind = ResourceTexture
				if inner.Class == ir.ImageClassStorage {
					res.Kind = ResourceRWTyped
				}
				res.Dimension = textureDimension(typeName)
				if res.Dimension == 0 {
					res.Dimension = imageDimension(inner)
				}
			default:
				continue
			}
		default:
			continue
		}

		r.BoundResources = append(r.BoundResources, res)
	}

	fn := &module.Functions[ep.Function]
	switch stage {
	case StageVertex:
		r.InputParameters = inputSignature(module, fn)
	case StageCompute:
		r.ThreadGroupSize = ep.Workgroup
	}

	return r, nil
}

// constantBufferVariables lists the fields of a uniform. A struct uniform contributes one
// variable per member, anything else one variable named after the global.
func constantBufferVariables(module *ir.Module, gv ir.GlobalVariable) []VariableDesc {
	if st, ok := module.Types[gv.Type].Inner.(ir.StructType); ok {
		vars := make([]VariableDesc, 0, len(st.Members))
		for _, m := range st.Members {
			size, _ := typeLayout(module, m.Type)
			vars = append(vars, VariableDesc{Name: m.Name, Offset: m.Offset, Size: size})
		}
		return vars
	}
	size, _ := typeLayout(module, gv.Type)
	return []VariableDesc{{Name: gv.Name, Offset: 0, Size: size}}
}

// storageKind classifies a storage buffer. Runtime arrays of 32-bit words are byte-address
// buffers, and writable buffers holding atomics carry a counter.
func storageKind(module *ir.Module, handle ir.TypeHandle, accessMode string) ResourceKind {
	writable := accessMode == "read_write" || accessMode == "write"
	words := isWordArray(module, handle)

	switch {
	case writable && containsAtomic(module, handle):
		return ResourceRWStructuredWithCounter
	case writable && words:
		return ResourceRWByteAddress
	case writable:
		return ResourceRWStructured
	case words:
		return ResourceByteAddress
	}
	return ResourceStructured
}

func isWordArray(module *ir.Module, handle ir.TypeHandle) bool {
	arr, ok := module.Types[handle].Inner.(ir.ArrayType)
	if !ok || arr.Size.Constant != nil {
		return false
	}
	scalar, ok := module.Types[arr.Base].Inner.(ir.ScalarType)
	return ok && scalar.Kind == ir.ScalarUint && scalar.Width == 4
}

func imageDimension(img ir.ImageType) wgpu.TextureViewDimension {
	switch img.Dim {
	case ir.Dim1D:
		return wgpu.TextureViewDimension1D
	case ir.Dim3D:
		return wgpu.TextureViewDimension3D
	case ir.DimCube:
		if img.Arrayed {
			return wgpu.TextureViewDimensionCubeArray
		}
		return wgpu.TextureViewDimensionCube
	}
	if img.Arrayed {
		return wgpu.TextureViewDimension2DArray
	}
	return wgpu.TextureViewDimension2D
}

// usedGlobals collects the globals referenced by a function and everything it calls.
func usedGlobals(module *ir.Module, root ir.FunctionHandle) map[ir.GlobalVariableHandle]bool {
	used := make(map[ir.GlobalVariableHandle]bool)
	visited := make(map[ir.FunctionHandle]bool)

	var walk func(h ir.FunctionHandle)
	walk = func(h ir.FunctionHandle) {
		if visited[h] || int(h) >= len(module.Functions) {
			return
		}
		visited[h] = true

		fn := &module.Functions[h]
		for _, expr := range fn.Expressions {
			switch k := expr.Kind.(type) {
			case ir.ExprGlobalVariable:
				used[k.Variable] = true
			case ir.ExprCallResult:
				walk(k.Function)
			}
		}
		walkCalls(fn.Body, walk)
	}
	walk(root)

	return used
}

// walkCalls visits the callee of every call statement in a block, descending into nested blocks.
func walkCalls(block []ir.Statement, visit func(ir.FunctionHandle)) {
	for _, stmt := range block {
		switch s := stmt.Kind.(type) {
		case ir.StmtCall:
			visit(s.Function)
		case ir.StmtBlock:
			walkCalls(s.Block, visit)
		case ir.StmtIf:
			walkCalls(s.Accept, visit)
			walkCalls(s.Reject, visit)
		case ir.StmtSwitch:
			for _, c := range s.Cases {
				walkCalls(c.Body, visit)
			}
		case ir.StmtLoop:
			walkCalls(s.Body, visit)
			walkCalls(s.Continuing, visit)
		}
	}
}

// inputSignature lists the location-bound inputs of an entry function in declaration order.
// Struct arguments are flattened into their members.
func inputSignature(module *ir.Module, fn *ir.Function) []SignatureParameter {
	var params []SignatureParameter
	for _, arg := range fn.Arguments {
		if loc, ok := locationOf(arg.Binding); ok {
			params = append(params, signatureParameter(module, arg.Name, loc, arg.Type))
			continue
		}
		st, ok := module.Types[arg.Type].Inner.(ir.StructType)
		if !ok {
			continue
		}
		for _, m := range st.Members {
			if loc, ok := locationOf(m.Binding); ok {
				params = append(params, signatureParameter(module, m.Name, loc, m.Type))
			}
		}
	}
	return params
}

func locationOf(b *ir.Binding) (uint32, bool) {
	if b == nil {
		return 0, false
	}
	loc, ok := (*b).(ir.LocationBinding)
	if !ok {
		return 0, false
	}
	return loc.Location, true
}

func signatureParameter(module *ir.Module, name string, location uint32, handle ir.TypeHandle) SignatureParameter {
	p := SignatureParameter{
		SemanticName:  name,
		SemanticIndex: location,
		Register:      location,
	}
	switch inner := module.Types[handle].Inner.(type) {
	case ir.ScalarType:
		p.Mask = MaskR
		p.ComponentType = componentType(inner)
	case ir.VectorType:
		p.Mask = ComponentMask(1<<inner.Size) - 1
		p.ComponentType = componentType(inner.Scalar)
	}
	return p
}

func componentType(s ir.ScalarType) ComponentType {
	if s.Width != 4 {
		return ComponentUnknown
	}
	switch s.Kind {
	case ir.ScalarUint:
		return ComponentUint32
	case ir.ScalarSint:
		return ComponentSint32
	case ir.ScalarFloat:
		return ComponentFloat32
	}
	return ComponentUnknown
}
