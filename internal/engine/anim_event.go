package engine

import "fmt"

type AnimEventKind int

const (
	// AnimSegmentEnded fires when the current combo section reaches its end.
	AnimSegmentEnded AnimEventKind = iota
	// AnimChargeLoopCompleted fires each time the charge loop finishes a pass.
	AnimChargeLoopCompleted
	// AnimAttackTrace fires at the active frame of an attack.
	AnimAttackTrace
	AnimMontageEnded
)

// AnimEvent is a montage notification queued for the owning controller
// instead of being delivered as a callback.
type AnimEvent struct {
	Kind        AnimEventKind
	Montage     Montage
	Source      string // damage source socket for AnimAttackTrace
	Interrupted bool
}

func (k AnimEventKind) String() string {
	switch k {
	case AnimSegmentEnded:
		return "segment_ended"
	case AnimChargeLoopCompleted:
		return "charge_loop_completed"
	case AnimAttackTrace:
		return "attack_trace"
	case AnimMontageEnded:
		return "montage_ended"
	default:
		return fmt.Sprintf("anim_event(%d)", int(k))
	}
}
