package event

import "github.com/Versifine/arena/internal/logger"

type Reason int

const (
	ReasonNone Reason = iota
	ReasonUser
	ReasonServerClosed
	ReasonError
	ReasonJoinTimeout
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonUser:
		return "User"
	case ReasonServerClosed:
		return "ServerClosed"
	case ReasonError:
		return "Error"
	case ReasonJoinTimeout:
		return "JoinTimeout"
	default:
		return "Unknown"
	}
}

// ConnectionEvent is published on every session state change. State holds
// the session state name ("disconnected", "connecting", "joined").
type ConnectionEvent struct {
	State    string
	PlayerID string
	Reason   Reason
	Detail   string
}

func NewConnectionEvent(state, playerID string, reason Reason, detail string) *ConnectionEvent {
	return &ConnectionEvent{
		State:    state,
		PlayerID: playerID,
		Reason:   reason,
		Detail:   detail,
	}
}

func ConnectionEventHandler(raw any) {
	evt, ok := raw.(*ConnectionEvent)
	if !ok {
		logger.With("event").Error("Invalid event type for ConnectionEventHandler")
		return
	}
	logger.With("event").Info("Connection changed", "state", evt.State, "player_id", evt.PlayerID, "reason", evt.Reason.String(), "detail", evt.Detail)
}
