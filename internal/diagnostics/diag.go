package diagnostics

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes reported by the visual layers and the control bridge.
const (
	CodeUnsupported = "RENDER.UNSUPPORTED"
	CodeCompile     = "RENDER.COMPILE"
	CodeStage       = "STAGE.APPLIED"
	CodeSkipped     = "CONTROL.SKIPPED_KEYS"
	CodeBadMessage  = "CONTROL.BAD_MESSAGE"
	CodeReloaded    = "CONFIG.RELOADED"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}
