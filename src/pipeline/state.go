package pipeline

import "time"

// State is a point in the pipeline's strictly forward state machine:
//
//	Start → Detected → CustomizationsResolved → DescriptorReady →
//	(Tested|TestsSkipped) → (Authenticated|LoginSkipped) → Built →
//	(Pushed|PushSkipped) → Cleaned → Done
//
// Failed is reachable from any state before Cleaned.
type State string

const (
	StateStart                  State = "start"
	StateDetected               State = "detected"
	StateCustomizationsResolved State = "customizations-resolved"
	StateDescriptorReady        State = "descriptor-ready"
	StateTested                 State = "tested"
	StateTestsSkipped           State = "tests-skipped"
	StateAuthenticated          State = "authenticated"
	StateLoginSkipped           State = "login-skipped"
	StateBuilt                  State = "built"
	StatePushed                 State = "pushed"
	StatePushSkipped            State = "push-skipped"
	StateCleaned                State = "cleaned"
	StateDone                   State = "done"
	StateFailed                 State = "failed"
)

// Skipped reports whether the state records a stage that deliberately did nothing.
func (s State) Skipped() bool {
	switch s {
	case StateTestsSkipped, StateLoginSkipped, StatePushSkipped:
		return true
	}
	return false
}

// Stage names, in execution order.
const (
	StageDetect     = "detect"
	StageCustomize  = "customize"
	StageDockerfile = "dockerfile"
	StageTest       = "test"
	StageLogin      = "login"
	StageBuild      = "build"
	StagePush       = "push"
	StageCleanup    = "cleanup"
)

// StageResult records the outcome of one stage.
type StageResult struct {
	Name     string
	State    State // state reached, or StateFailed
	Detail   string
	Duration time.Duration
	Err      error
}
