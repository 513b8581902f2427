package jobs

import "strings"

// Type identifies a pipeline job kind. The set is closed; every other
// component routes on these names, so new stages are added here first.
type Type string

const (
	TypeAnalyze        Type = "analyze"
	TypeGenerateScript Type = "generate-script"
	TypeGenerateMedia  Type = "generate-media"
	TypeQualityCheck   Type = "quality-check"
	TypeReview         Type = "review"
	TypePublish        Type = "publish"
	TypeTrack          Type = "track"
	TypeReport         Type = "report"
	TypeScore          Type = "score"
)

var allTypes = []Type{
	TypeAnalyze,
	TypeGenerateScript,
	TypeGenerateMedia,
	TypeQualityCheck,
	TypeReview,
	TypePublish,
	TypeTrack,
	TypeReport,
	TypeScore,
}

var typeSet = func() map[Type]struct{} {
	set := make(map[Type]struct{}, len(allTypes))
	for _, t := range allTypes {
		set[t] = struct{}{}
	}
	return set
}()

// pipelineOrder is the canonical stage sequence for a full content run.
// The flow scheduler nests these in reverse so children execute first.
var pipelineOrder = []Type{
	TypeAnalyze,
	TypeGenerateScript,
	TypeGenerateMedia,
	TypeQualityCheck,
	TypeReview,
	TypePublish,
	TypeTrack,
}

// AllTypes returns the ordered list of known job types.
func AllTypes() []Type {
	cp := make([]Type, len(allTypes))
	copy(cp, allTypes)
	return cp
}

// PipelineOrder returns the canonical seven-stage pipeline sequence.
func PipelineOrder() []Type {
	cp := make([]Type, len(pipelineOrder))
	copy(cp, pipelineOrder)
	return cp
}

// PipelineStageCount is the number of stages in a full pipeline run.
func PipelineStageCount() int {
	return len(pipelineOrder)
}

// ParseType converts a string into a known Type.
func ParseType(value string) (Type, bool) {
	normalized := Type(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := typeSet[normalized]
	return normalized, ok
}

// Valid reports whether the type belongs to the closed set.
func (t Type) Valid() bool {
	_, ok := typeSet[t]
	return ok
}

func (t Type) String() string {
	return string(t)
}
