// Command oxyfx-reflect compiles WGSL stages and prints their reflection and the merged
// binding table an effect would build from them.
//
// Usage:
//
//	oxyfx-reflect [options] <shader.wgsl>
//
// Options:
//
//	-stages <list>   Comma-separated stages to compile (default: vertex,pixel)
//	-I <dir>         Add an include search path (repeatable)
//	-json            Print JSON instead of text
//	-debug           Log compiler activity to stderr
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/engine/effect"
	"github.com/Carmen-Shannon/oxy-fx/engine/logger"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type searchPaths []string

func (s *searchPaths) String() string     { return strings.Join(*s, ",") }
func (s *searchPaths) Set(v string) error { *s = append(*s, v); return nil }

func run(args []string, out io.Writer) error {
	var (
		stageList string
		includes  searchPaths
		asJSON    bool
		debug     bool
	)

	fs := flag.NewFlagSet("oxyfx-reflect", flag.ContinueOnError)
	fs.StringVar(&stageList, "stages", "vertex,pixel", "Comma-separated `stages` to compile")
	fs.Var(&includes, "I", "Add an include search `dir`")
	fs.BoolVar(&asJSON, "json", false, "Print JSON instead of text")
	fs.BoolVar(&debug, "debug", false, "Log compiler activity to stderr")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: oxyfx-reflect [options] <shader.wgsl>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one shader file, got %d", fs.NArg())
	}
	if debug {
		logger.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	stages, err := parseStages(stageList)
	if err != nil {
		return err
	}

	compiler := shader.NewCompiler(shader.WithSearchPaths(includes...))
	defer compiler.Release()

	path := fs.Arg(0)
	requests := make([]shader.CompileRequest, len(stages))
	for i, s := range stages {
		requests[i] = shader.CompileRequest{Path: path, Stage: s, Profile: shader.DefaultTargetProfile}
	}

	table := effect.NewBindingTable(hostDevice{}, path)
	defer table.Release()

	rep := report{Path: path}
	for _, outcome := range compiler.CompileStages(requests) {
		if outcome.Err != nil {
			return outcome.Err
		}
		res := outcome.Result
		rep.Stages = append(rep.Stages, newStageReport(res))
		if err := table.Ingest(res.Stage, res.Reflection); err != nil {
			return fmt.Errorf("%s: %w", res.Stage, err)
		}
	}
	rep.Table = newTableReport(table)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	rep.writeText(out)
	return nil
}

// parseStages parses a comma-separated stage list such as "vertex,pixel".
func parseStages(list string) ([]shader.Stage, error) {
	var stages []shader.Stage
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		found := false
		for _, s := range shader.AllStages {
			if s.String() == name {
				stages = append(stages, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("no stages given")
	}
	return stages, nil
}

// hostDevice allocates constant buffers in memory so a binding table can be built without
// a GPU.
type hostDevice struct{}

type hostBuffer struct {
	label string
	size  uint32
}

func (b *hostBuffer) Label() string { return b.label }
func (b *hostBuffer) Size() uint32  { return b.size }
func (b *hostBuffer) Release()      {}

func (hostDevice) CreateConstantBuffer(label string, size uint32) (device.Buffer, error) {
	return &hostBuffer{label: label, size: size}, nil
}

func (hostDevice) CreateShader(*shader.CompileResult) (device.Shader, error) {
	return nil, fmt.Errorf("shader objects are not supported without a device")
}

func (hostDevice) CreateInputLayout([]device.InputElement, *shader.CompileResult) (device.InputLayout, error) {
	return nil, fmt.Errorf("input layouts are not supported without a device")
}

type report struct {
	Path   string        `json:"path"`
	Stages []stageReport `json:"stages"`
	Table  tableReport   `json:"table"`
}

type stageReport struct {
	Stage           string          `json:"stage"`
	EntryPoint      string          `json:"entryPoint"`
	ThreadGroupSize *[3]uint32      `json:"threadGroupSize,omitempty"`
	Resources       []bindingReport `json:"resources"`
	Inputs          []inputReport   `json:"inputs,omitempty"`
	Diagnostics     []string        `json:"diagnostics,omitempty"`
}

type bindingReport struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Group   uint32 `json:"group"`
	Binding uint32 `json:"binding"`
	Size    uint32 `json:"size,omitempty"`
	Stages  string `json:"stages,omitempty"`
}

type inputReport struct {
	Semantic string `json:"semantic"`
	Register uint32 `json:"register"`
}

type variableReport struct {
	Buffer string `json:"buffer"`
	Name   string `json:"name"`
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
}

type tableReport struct {
	ConstantBuffers []bindingReport  `json:"constantBuffers"`
	Variables       []variableReport `json:"variables"`
	ShaderResources []bindingReport  `json:"shaderResources"`
	ReadWrite       []bindingReport  `json:"readWrite"`
	Samplers        []bindingReport  `json:"samplers"`
}

func newStageReport(res *shader.CompileResult) stageReport {
	sr := stageReport{
		Stage:       res.Stage.String(),
		EntryPoint:  res.EntryPoint,
		Diagnostics: res.Diagnostics,
	}
	refl := res.Reflection
	if refl == nil {
		return sr
	}
	if res.Stage == shader.StageCompute {
		size := refl.ThreadGroupSize
		sr.ThreadGroupSize = &size
	}
	for _, r := range refl.BoundResources {
		sr.Resources = append(sr.Resources, bindingReport{
			Name: r.Name, Kind: r.Kind.String(), Group: r.Slot.Group, Binding: r.Slot.Binding, Size: r.Size,
		})
	}
	for _, p := range refl.InputParameters {
		sr.Inputs = append(sr.Inputs, inputReport{
			Semantic: fmt.Sprintf("%s%d", p.SemanticName, p.SemanticIndex), Register: p.Register,
		})
	}
	return sr
}

func newTableReport(t *effect.BindingTable) tableReport {
	var tr tableReport
	for _, cb := range t.ConstantBuffers() {
		tr.ConstantBuffers = append(tr.ConstantBuffers, bindingReport{
			Name: cb.Name(), Kind: shader.ResourceConstantBuffer.String(),
			Group: cb.Slot().Group, Binding: cb.Slot().Binding, Size: cb.Size(), Stages: cb.Stages().String(),
		})
	}
	for _, a := range t.Accessors() {
		tr.Variables = append(tr.Variables, variableReport{
			Buffer: a.ConstantBuffer().Name(), Name: a.Name(), Offset: a.Offset(), Size: a.Size(),
		})
	}
	for _, r := range t.ShaderResources() {
		tr.ShaderResources = append(tr.ShaderResources, bindingReport{
			Name: r.Name, Kind: r.Kind.String(), Group: r.Slot.Group, Binding: r.Slot.Binding, Stages: r.Stage.String(),
		})
	}
	for _, r := range t.ReadWriteResources() {
		tr.ReadWrite = append(tr.ReadWrite, bindingReport{
			Name: r.Name, Kind: r.Kind.String(), Group: r.Slot.Group, Binding: r.Slot.Binding, Stages: r.Stage.String(),
		})
	}
	for _, s := range t.Samplers() {
		tr.Samplers = append(tr.Samplers, bindingReport{
			Name: s.Name, Kind: shader.ResourceSampler.String(), Group: s.Slot.Group, Binding: s.Slot.Binding, Stages: s.Stage.String(),
		})
	}
	return tr
}

func (r report) writeText(w io.Writer) {
	fmt.Fprintf(w, "%s\n", r.Path)
	for _, s := range r.Stages {
		fmt.Fprintf(w, "\nstage %s (entry %s)\n", s.Stage, s.EntryPoint)
		if s.ThreadGroupSize != nil {
			g := *s.ThreadGroupSize
			fmt.Fprintf(w, "  workgroup size %d x %d x %d\n", g[0], g[1], g[2])
		}
		for _, b := range s.Resources {
			fmt.Fprintf(w, "  @group(%d) @binding(%d) %-28s %s\n", b.Group, b.Binding, b.Kind, b.Name)
		}
		for _, in := range s.Inputs {
			fmt.Fprintf(w, "  input %-12s location %d\n", in.Semantic, in.Register)
		}
		for _, d := range s.Diagnostics {
			fmt.Fprintf(w, "  diagnostic: %s\n", d)
		}
	}

	fmt.Fprintf(w, "\nbinding table\n")
	section := func(title string, rows []bindingReport) {
		if len(rows) == 0 {
			return
		}
		fmt.Fprintf(w, "  %s\n", title)
		for _, b := range rows {
			fmt.Fprintf(w, "    @group(%d) @binding(%d) %-20s %s", b.Group, b.Binding, b.Name, b.Stages)
			if b.Size > 0 {
				fmt.Fprintf(w, " (%d bytes)", b.Size)
			}
			fmt.Fprintln(w)
		}
	}
	section("constant buffers", r.Table.ConstantBuffers)
	if len(r.Table.Variables) > 0 {
		fmt.Fprintf(w, "  variables\n")
		for _, v := range r.Table.Variables {
			fmt.Fprintf(w, "    %s.%-20s offset %-4d size %d\n", v.Buffer, v.Name, v.Offset, v.Size)
		}
	}
	section("shader resources", r.Table.ShaderResources)
	section("read-write resources", r.Table.ReadWrite)
	section("samplers", r.Table.Samplers)
}
