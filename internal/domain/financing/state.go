package financing

import "github.com/agrocredit/backend/internal/domain/shared"

// State is the lifecycle state of a financing
type State string

const (
	StateActivo        State = "ACTIVO"         // originated, no payment yet
	StateEnSeguimiento State = "EN_SEGUIMIENTO" // partially repaid
	StateCosechado     State = "COSECHADO"      // fully repaid (settled)
	StateIncumplido    State = "INCUMPLIDO"     // defaulted
)

// allowedTransitions lists the only edges a financing may take. Cosechado and
// Incumplido have none.
var allowedTransitions = map[State][]State{
	StateActivo:        {StateEnSeguimiento, StateCosechado, StateIncumplido},
	StateEnSeguimiento: {StateCosechado, StateIncumplido},
}

// AllStates returns every state in lifecycle order
func AllStates() []State {
	return []State{StateActivo, StateEnSeguimiento, StateCosechado, StateIncumplido}
}

// ParseState validates a state string
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.IsValid() {
		return "", shared.NewValidationError("INVALID_STATE", "unknown financing state: "+s)
	}
	return st, nil
}

// IsValid checks if the state is a valid State
func (s State) IsValid() bool {
	switch s {
	case StateActivo, StateEnSeguimiento, StateCosechado, StateIncumplido:
		return true
	}
	return false
}

// String returns the string representation of State
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true for settled and defaulted financings
func (s State) IsTerminal() bool {
	return s == StateCosechado || s == StateIncumplido
}

// AcceptsPayments returns true if harvest payments can be applied
func (s State) AcceptsPayments() bool {
	return s == StateActivo || s == StateEnSeguimiento
}

// CanTransitionTo reports whether s -> target is a permitted edge
func (s State) CanTransitionTo(target State) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
