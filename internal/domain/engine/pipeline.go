package engine

// PipelinePhase names one step of a resolution pass in the execution log.
type PipelinePhase string

const (
	PhaseRulepack  PipelinePhase = "rulepack"
	PhaseSelector  PipelinePhase = "selector"
	PhaseStructure PipelinePhase = "structure"
	PhaseNormalize PipelinePhase = "normalize"
	PhaseFold      PipelinePhase = "fold"
)

// ExecutionStep is one entry of the resolution execution log.
type ExecutionStep struct {
	Phase   PipelinePhase `json:"phase"`
	Message string        `json:"message"`
}
