package effect

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/logger"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// BindingTable maps every named shader input of an effect to its slot and stages. It is
// built from reflection, one stage at a time, and is shared by graphics and compute effects.
//
// Entries are keyed by the hash of their name. The name is stored with each entry; when two
// names hash to the same key the first entry is kept and the collision is logged.
type BindingTable struct {
	dev   device.Device
	label string

	constantBuffers    map[uint64]*constantBuffer
	accessors          map[uint64]*constantBufferAccessor
	shaderResources    map[uint64]*ShaderResource
	readWriteResources map[uint64]*ReadWriteResource
	samplers           map[uint64]*SamplerBinding

	// initialData seeds constant buffers by name when they are created
	initialData map[string][]byte

	// emission order, rebuilt after each Ingest
	orderedConstantBuffers []*constantBuffer
	orderedShaderResources []*ShaderResource
	orderedReadWrite       []*ReadWriteResource
	orderedSamplers        []*SamplerBinding
}

// NewBindingTable creates an empty binding table whose constant buffers are allocated on dev.
//
// Parameters:
//   - dev: the device constant buffers are allocated on
//   - label: a debug label used in log messages and buffer labels
//
// Returns:
//   - *BindingTable: the empty table
func NewBindingTable(dev device.Device, label string) *BindingTable {
	return &BindingTable{
		dev:                dev,
		label:              label,
		constantBuffers:    make(map[uint64]*constantBuffer),
		accessors:          make(map[uint64]*constantBufferAccessor),
		shaderResources:    make(map[uint64]*ShaderResource),
		readWriteResources: make(map[uint64]*ReadWriteResource),
		samplers:           make(map[uint64]*SamplerBinding),
		initialData:        make(map[string][]byte),
	}
}

// Ingest adds the resources one stage declares. Constant buffers already present gain the
// stage; every other resource already present keeps the stage that first declared it.
//
// Parameters:
//   - stage: the single stage the reflection belongs to
//   - refl: the stage's reflection
//
// Returns:
//   - error: an error for each constant buffer whose device buffer could not be allocated
func (t *BindingTable) Ingest(stage shader.Stage, refl *shader.Reflection) error {
	if refl == nil {
		return fmt.Errorf("%s: %w", stage, shader.ErrNoReflection)
	}

	var errs []error
	for _, res := range refl.BoundResources {
		key := common.StringToID(res.Name)
		switch {
		case res.Kind == shader.ResourceConstantBuffer:
			if err := t.ingestConstantBuffer(stage, key, res, refl); err != nil {
				errs = append(errs, err)
			}
		case res.Kind.IsShaderReadable():
			if existing, ok := t.shaderResources[key]; ok {
				t.checkCollision("shader resource", existing.Name, res.Name)
				continue
			}
			t.shaderResources[key] = &ShaderResource{
				Name:      res.Name,
				Kind:      res.Kind,
				Dimension: res.Dimension,
				Slot:      res.Slot,
				Stage:     stage,
			}
		case res.Kind.IsReadWrite():
			if existing, ok := t.readWriteResources[key]; ok {
				t.checkCollision("read-write resource", existing.Name, res.Name)
				continue
			}
			t.readWriteResources[key] = &ReadWriteResource{
				Name:              res.Name,
				Kind:              res.Kind,
				Dimension:         res.Dimension,
				Slot:              res.Slot,
				Stage:             stage,
				HasCounter:        res.Kind.HasCounter(),
				needsInitialCount: res.Kind.HasCounter(),
			}
		case res.Kind == shader.ResourceSampler:
			if existing, ok := t.samplers[key]; ok {
				t.checkCollision("sampler", existing.Name, res.Name)
				continue
			}
			t.samplers[key] = &SamplerBinding{
				Name:  res.Name,
				Slot:  res.Slot,
				Stage: stage,
			}
		default:
			logger.Logger().Warn("[Effect] unhandled resource kind", "effect", t.label, "name", res.Name, "kind", res.Kind)
		}
	}

	t.reorder()
	logger.Logger().Debug("[Effect] ingested stage",
		"effect", t.label,
		"stage", stage,
		"constantBuffers", len(t.constantBuffers),
		"shaderResources", len(t.shaderResources),
		"readWriteResources", len(t.readWriteResources),
		"samplers", len(t.samplers),
	)
	return errors.Join(errs...)
}

func (t *BindingTable) ingestConstantBuffer(stage shader.Stage, key uint64, res shader.BoundResource, refl *shader.Reflection) error {
	size := res.Size
	var variables []shader.VariableDesc
	if desc, ok := refl.ConstantBuffer(res.Name); ok {
		size = desc.Size
		variables = desc.Variables
	}

	buffer, ok := t.constantBuffers[key]
	if ok {
		if !t.checkCollision("constant buffer", buffer.name, res.Name) {
			return nil
		}
	} else {
		cb, err := NewConstantBuffer(t.dev, res.Name, res.Slot, size, t.initialData[res.Name])
		if err != nil {
			logger.Logger().Warn("[Effect] constant buffer allocation failed", "effect", t.label, "name", res.Name, "error", err)
			return err
		}
		buffer = cb.(*constantBuffer)
		t.constantBuffers[key] = buffer
	}
	buffer.addStage(stage)

	// a later stage may declare fields the first one did not; the first declaration of a
	// name keeps its accessor, clamped to the buffer allocated first
	for _, v := range variables {
		vkey := common.StringToID(v.Name)
		if existing, ok := t.accessors[vkey]; ok {
			t.checkCollision("accessor", existing.name, v.Name)
			continue
		}
		t.accessors[vkey] = newConstantBufferAccessor(v.Name, v.Offset, v.Size, buffer)
	}
	return nil
}

// checkCollision reports whether an existing entry really is the named one. A different
// name under the same key is logged.
func (t *BindingTable) checkCollision(kind, existing, incoming string) bool {
	if existing == incoming {
		return true
	}
	logger.Logger().Warn("[Effect] name hash collision, keeping first entry",
		"effect", t.label, "kind", kind, "kept", existing, "dropped", incoming)
	return false
}

// reorder rebuilds the emission order: by slot group, then binding, then name.
func (t *BindingTable) reorder() {
	t.orderedConstantBuffers = sortedValues(t.constantBuffers, func(c *constantBuffer) (shader.Slot, string) {
		return c.slot, c.name
	})
	t.orderedShaderResources = sortedValues(t.shaderResources, func(r *ShaderResource) (shader.Slot, string) {
		return r.Slot, r.Name
	})
	t.orderedReadWrite = sortedValues(t.readWriteResources, func(r *ReadWriteResource) (shader.Slot, string) {
		return r.Slot, r.Name
	})
	t.orderedSamplers = sortedValues(t.samplers, func(s *SamplerBinding) (shader.Slot, string) {
		return s.Slot, s.Name
	})
}

func sortedValues[T any](m map[uint64]T, key func(T) (shader.Slot, string)) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		si, ni := key(out[i])
		sj, nj := key(out[j])
		if si != sj {
			return si.Less(sj)
		}
		return ni < nj
	})
	return out
}

// Label returns the table's debug label.
func (t *BindingTable) Label() string {
	return t.label
}

// QueryAccessor fetches the accessor for a constant buffer field.
//
// Parameters:
//   - name: the field name
//
// Returns:
//   - ConstantBufferAccessor: the accessor, or nil if no stage declared the field
//   - bool: whether it was found
func (t *BindingTable) QueryAccessor(name string) (ConstantBufferAccessor, bool) {
	a, ok := t.accessors[common.StringToID(name)]
	if !ok || a.name != name {
		return nil, false
	}
	return a, true
}

// ConstantBuffer fetches a constant buffer by name.
//
// Parameters:
//   - name: the constant buffer name
//
// Returns:
//   - ConstantBuffer: the constant buffer, or nil if absent
//   - bool: whether it was found
func (t *BindingTable) ConstantBuffer(name string) (ConstantBuffer, bool) {
	cb, ok := t.constantBuffers[common.StringToID(name)]
	if !ok || cb.name != name {
		return nil, false
	}
	return cb, true
}

// ShaderResource fetches a shader-readable binding by name.
func (t *BindingTable) ShaderResource(name string) (*ShaderResource, bool) {
	r, ok := t.shaderResources[common.StringToID(name)]
	if !ok || r.Name != name {
		return nil, false
	}
	return r, true
}

// ReadWriteResource fetches a read-write binding by name.
func (t *BindingTable) ReadWriteResource(name string) (*ReadWriteResource, bool) {
	r, ok := t.readWriteResources[common.StringToID(name)]
	if !ok || r.Name != name {
		return nil, false
	}
	return r, true
}

// Sampler fetches a sampler binding by name.
func (t *BindingTable) Sampler(name string) (*SamplerBinding, bool) {
	s, ok := t.samplers[common.StringToID(name)]
	if !ok || s.Name != name {
		return nil, false
	}
	return s, true
}

// BindShaderResource stores the view emitted for a shader-readable binding. Unknown names
// are ignored.
//
// Parameters:
//   - name: the binding name
//   - handle: the backend view handle
//
// Returns:
//   - bool: whether the name was found
func (t *BindingTable) BindShaderResource(name string, handle any) bool {
	r, ok := t.ShaderResource(name)
	if ok {
		r.Handle = handle
	}
	return ok
}

// BindUnorderedAccess stores the view emitted for a read-write binding. Unknown names are
// ignored.
//
// Parameters:
//   - name: the binding name
//   - handle: the backend view handle
//
// Returns:
//   - bool: whether the name was found
func (t *BindingTable) BindUnorderedAccess(name string, handle any) bool {
	r, ok := t.ReadWriteResource(name)
	if ok {
		r.Handle = handle
	}
	return ok
}

// BindSampler stores the sampler emitted for a sampler binding. Unknown names are ignored.
//
// Parameters:
//   - name: the binding name
//   - handle: the backend sampler handle
//
// Returns:
//   - bool: whether the name was found
func (t *BindingTable) BindSampler(name string, handle any) bool {
	s, ok := t.Sampler(name)
	if ok {
		s.Handle = handle
	}
	return ok
}

// ResetCounter sets the initial count of a counter-bearing read-write binding and passes it
// again on the next emission.
//
// Parameters:
//   - name: the binding name
//   - initial: the counter value to upload
//
// Returns:
//   - bool: whether the name was found
func (t *BindingTable) ResetCounter(name string, initial uint32) bool {
	r, ok := t.ReadWriteResource(name)
	if ok {
		r.InitialCount = initial
		r.needsInitialCount = r.HasCounter
	}
	return ok
}

// TransmitTo copies the named constant buffer into the same-named buffer of dst.
//
// Parameters:
//   - dst: the receiving table
//   - name: the constant buffer name
//
// Returns:
//   - bool: whether both tables hold the buffer
func (t *BindingTable) TransmitTo(dst *BindingTable, name string) bool {
	if dst == nil {
		return false
	}
	src, ok := t.ConstantBuffer(name)
	if !ok {
		return false
	}
	target, ok := dst.ConstantBuffer(name)
	if !ok {
		return false
	}
	src.Transmit(target)
	return true
}

// ConstantBuffers returns the constant buffers in emission order.
func (t *BindingTable) ConstantBuffers() []ConstantBuffer {
	out := make([]ConstantBuffer, len(t.orderedConstantBuffers))
	for i, cb := range t.orderedConstantBuffers {
		out[i] = cb
	}
	return out
}

// Accessors returns every field accessor, ordered by buffer slot then offset.
func (t *BindingTable) Accessors() []ConstantBufferAccessor {
	list := make([]*constantBufferAccessor, 0, len(t.accessors))
	for _, a := range t.accessors {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		bi, bj := list[i].buffer, list[j].buffer
		if bi != bj {
			if bi.slot != bj.slot {
				return bi.slot.Less(bj.slot)
			}
			return bi.name < bj.name
		}
		if list[i].offset != list[j].offset {
			return list[i].offset < list[j].offset
		}
		return list[i].name < list[j].name
	})
	out := make([]ConstantBufferAccessor, len(list))
	for i, a := range list {
		out[i] = a
	}
	return out
}

// ShaderResources returns the shader-readable bindings in emission order.
func (t *BindingTable) ShaderResources() []*ShaderResource {
	return append([]*ShaderResource(nil), t.orderedShaderResources...)
}

// ReadWriteResources returns the read-write bindings in emission order.
func (t *BindingTable) ReadWriteResources() []*ReadWriteResource {
	return append([]*ReadWriteResource(nil), t.orderedReadWrite...)
}

// Samplers returns the sampler bindings in emission order.
func (t *BindingTable) Samplers() []*SamplerBinding {
	return append([]*SamplerBinding(nil), t.orderedSamplers...)
}

// Release frees every constant buffer's device buffer.
func (t *BindingTable) Release() {
	for _, cb := range t.constantBuffers {
		cb.Release()
	}
}
