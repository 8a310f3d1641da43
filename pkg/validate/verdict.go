package validate

// Stage identifies one trust check in the validation pipeline.
type Stage string

const (
	StageContentType Stage = "content_type"
	StageExtension   Stage = "extension"
	StageSignature   Stage = "signature"
	StageSize        Stage = "size"
	StageStream      Stage = "stream"
)

// Reason is a stable machine-readable rejection code suitable for API
// responses and logs.
type Reason string

const (
	ReasonContentTypeNotAllowed Reason = "content_type_not_allowed"
	ReasonExtensionMismatch     Reason = "extension_mismatch"
	ReasonSignatureMismatch     Reason = "signature_mismatch"
	ReasonSizeExceeded          Reason = "size_exceeded"
	ReasonStreamTruncated       Reason = "stream_truncated"
)

// StageResult is the outcome of a single check.
type StageResult struct {
	Stage  Stage  `json:"stage"`
	Passed bool   `json:"passed"`
	Reason Reason `json:"reason,omitempty"`
}

// Verdict accumulates stage results in execution order. It lives only for
// the duration of one upload request; reason codes outlive it in logs.
type Verdict struct {
	Stages []StageResult `json:"stages"`
}

// Record appends a stage result and returns it for convenience.
func (v *Verdict) Record(res StageResult) StageResult {
	v.Stages = append(v.Stages, res)
	return res
}

// Accepted reports whether every recorded stage passed.
func (v *Verdict) Accepted() bool {
	for _, s := range v.Stages {
		if !s.Passed {
			return false
		}
	}
	return true
}

// FirstFailure returns the earliest failed stage, if any.
func (v *Verdict) FirstFailure() (StageResult, bool) {
	for _, s := range v.Stages {
		if !s.Passed {
			return s, true
		}
	}
	return StageResult{}, false
}

func pass(stage Stage) StageResult {
	return StageResult{Stage: stage, Passed: true}
}

func fail(stage Stage, reason Reason) StageResult {
	return StageResult{Stage: stage, Passed: false, Reason: reason}
}
