package pipeline

// Stage is the pipeline position of an acquisition job. Stages are
// strictly ordered; the only branch is to StageFailed.
type Stage int

const (
	StageResolving Stage = iota
	StageFetching
	StageTagging
	StagePublishing
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageResolving:
		return "resolving"
	case StageFetching:
		return "fetching"
	case StageTagging:
		return "tagging"
	case StagePublishing:
		return "publishing"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StageError records which stage an acquisition job died in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage.String() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }
