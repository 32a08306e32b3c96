package publish

import "fmt"

// Phase names a step of a publication attempt.
type Phase string

const (
	PhaseIdle                      Phase = "idle"
	PhaseRendering                 Phase = "rendering"
	PhaseConnecting                Phase = "connecting"
	PhaseUploadingAsset            Phase = "uploading_asset"
	PhaseAwaitingAssetPropagation  Phase = "awaiting_asset_propagation"
	PhasePreparingRecord           Phase = "preparing_record"
	PhaseUploadingRecord           Phase = "uploading_record"
	PhaseAwaitingRecordPropagation Phase = "awaiting_record_propagation"
	PhaseCommitting                Phase = "committing"
	PhaseSucceeded                 Phase = "succeeded"
	PhaseFailed                    Phase = "failed"
)

// Phases lists every phase in pipeline order, terminal phases last.
func Phases() []Phase {
	return []Phase{
		PhaseIdle,
		PhaseRendering,
		PhaseConnecting,
		PhaseUploadingAsset,
		PhaseAwaitingAssetPropagation,
		PhasePreparingRecord,
		PhaseUploadingRecord,
		PhaseAwaitingRecordPropagation,
		PhaseCommitting,
		PhaseSucceeded,
		PhaseFailed,
	}
}

// Terminal reports whether no further phase can follow p.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Message returns the status line shown on entering p. The record upload
// message includes the attempt counter.
func (p Phase) Message(recordAttempt, maxRecordAttempts int) string {
	switch p {
	case PhaseIdle:
		return "Starting publication..."
	case PhaseRendering:
		return "Rendering your pixel art..."
	case PhaseConnecting:
		return "Connecting to network..."
	case PhaseUploadingAsset:
		return "Uploading image..."
	case PhaseAwaitingAssetPropagation:
		return "Waiting for image propagation..."
	case PhasePreparingRecord:
		return "Preparing metadata..."
	case PhaseUploadingRecord:
		return fmt.Sprintf("Uploading metadata (%d/%d)...", recordAttempt, maxRecordAttempts)
	case PhaseAwaitingRecordPropagation:
		return "Waiting for metadata propagation..."
	case PhaseCommitting:
		return "Sending registration... Approve with your identity"
	case PhaseSucceeded:
		return "Published"
	case PhaseFailed:
		return "Publication failed"
	default:
		return string(p)
	}
}
