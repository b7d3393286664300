package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Stage is a programmable pipeline stage bit. Constant buffers carry a union of stages,
// every other binding carries exactly one.
type Stage uint32

const (
	StageVertex   Stage = 0x1
	StageHull     Stage = 0x2
	StageDomain   Stage = 0x4
	StageGeometry Stage = 0x8
	StagePixel    Stage = 0x10
	StageCompute  Stage = 0x20
)

// GraphicsStages lists the graphics stages in pipeline order.
var GraphicsStages = []Stage{StageVertex, StageHull, StageDomain, StageGeometry, StagePixel}

// AllStages lists every stage in pipeline order.
var AllStages = []Stage{StageVertex, StageHull, StageDomain, StageGeometry, StagePixel, StageCompute}

var stageNames = map[Stage]string{
	StageVertex:   "vertex",
	StageHull:     "hull",
	StageDomain:   "domain",
	StageGeometry: "geometry",
	StagePixel:    "pixel",
	StageCompute:  "compute",
}

// stageEntryPoints are the fixed entry point names looked up in a stage's source.
var stageEntryPoints = map[Stage]string{
	StageVertex:   "VS",
	StageHull:     "HS",
	StageDomain:   "DS",
	StageGeometry: "GS",
	StagePixel:    "PS",
	StageCompute:  "CS",
}

// Has reports whether every bit of other is set on s.
func (s Stage) Has(other Stage) bool {
	return other != 0 && s&other == other
}

// Each returns the single-bit stages set on s, in pipeline order.
func (s Stage) Each() []Stage {
	out := make([]Stage, 0, 2)
	for _, st := range AllStages {
		if s&st != 0 {
			out = append(out, st)
		}
	}
	return out
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	parts := make([]string, 0, 2)
	for _, st := range s.Each() {
		parts = append(parts, stageNames[st])
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Stage(%#x)", uint32(s))
	}
	return strings.Join(parts, "|")
}

// Visibility converts the stage bits into the wgpu visibility mask. Stages without a
// WebGPU counterpart are dropped.
//
// Returns:
//   - wgpu.ShaderStage: the visibility mask for bind group layout entries
func (s Stage) Visibility() wgpu.ShaderStage {
	var v wgpu.ShaderStage
	if s&StageVertex != 0 {
		v |= wgpu.ShaderStageVertex
	}
	if s&StagePixel != 0 {
		v |= wgpu.ShaderStageFragment
	}
	if s&StageCompute != 0 {
		v |= wgpu.ShaderStageCompute
	}
	return v
}

// EntryPoint returns the fixed entry point name for a single stage ("VS", "PS", ...),
// or an empty string if s is not a single known stage.
//
// Parameters:
//   - s: the stage to look up
//
// Returns:
//   - string: the entry point name
func EntryPoint(s Stage) string {
	return stageEntryPoints[s]
}

// TargetProfile selects the shader model the compiler targets.
type TargetProfile uint32

const (
	ShaderModel5_0 TargetProfile = 0x40
	ShaderModel5_1 TargetProfile = 0x80
	ShaderModel6_0 TargetProfile = 0x100
	ShaderModel6_1 TargetProfile = 0x200
	ShaderModel6_2 TargetProfile = 0x400
	ShaderModel6_3 TargetProfile = 0x800
	ShaderModel6_4 TargetProfile = 0x1000
	ShaderModel6_5 TargetProfile = 0x2000
	ShaderModel6_6 TargetProfile = 0x4000
)

// DefaultTargetProfile is used when an effect descriptor does not name one.
const DefaultTargetProfile = ShaderModel5_1

// ErrUnmappedTarget is returned for a stage/profile pair with no target string.
var ErrUnmappedTarget = errors.New("no target string for stage and profile")

var profileSuffixes = map[TargetProfile]string{
	ShaderModel5_0: "5_0",
	ShaderModel5_1: "5_1",
	ShaderModel6_0: "6_0",
}

var stagePrefixes = map[Stage]string{
	StageVertex:   "vs",
	StageHull:     "hs",
	StageDomain:   "ds",
	StageGeometry: "gs",
	StagePixel:    "ps",
	StageCompute:  "cs",
}

// Target maps a stage and shader model to the compiler's target string, e.g. "vs_5_0".
// Only shader models 5.0, 5.1 and 6.0 are mapped.
//
// Parameters:
//   - s: a single stage
//   - p: the shader model
//
// Returns:
//   - string: the target string
//   - error: ErrUnmappedTarget if the pair has no mapping
func Target(s Stage, p TargetProfile) (string, error) {
	prefix, ok := stagePrefixes[s]
	if !ok {
		return "", fmt.Errorf("%w: stage %s", ErrUnmappedTarget, s)
	}
	suffix, ok := profileSuffixes[p]
	if !ok {
		return "", fmt.Errorf("%w: %s with profile %#x", ErrUnmappedTarget, s, uint32(p))
	}
	return prefix + "_" + suffix, nil
}
