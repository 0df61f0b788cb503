// Package booking holds the booking conversation state machine, the slot
// universe and the callback payload codec used between booking steps.
package booking

import (
	"errors"
	"fmt"
	"time"
)

// State is a step of the booking conversation.
type State string

const (
	StateCollectingIdentity   State = "collecting_identity"
	StateAwaitingService      State = "awaiting_service"
	StateAwaitingBarber       State = "awaiting_barber"
	StateAwaitingDate         State = "awaiting_date"
	StateAwaitingTime         State = "awaiting_time"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateCommitted            State = "committed"
	StateCancelled            State = "cancelled"
)

var (
	ErrIllegalTransition = errors.New("illegal booking transition")
	ErrSessionTerminal   = errors.New("booking session already finished")
	ErrMissingSelection  = errors.New("booking selection missing")
)

// transitions lists the forward and back edges of every state. Cancel is
// handled separately since it is allowed from every non-terminal state.
var transitions = map[State][]State{
	StateCollectingIdentity:   {StateAwaitingService, StateAwaitingBarber},
	StateAwaitingService:      {StateAwaitingBarber},
	StateAwaitingBarber:       {StateAwaitingDate},
	StateAwaitingDate:         {StateAwaitingTime, StateAwaitingBarber},
	StateAwaitingTime:         {StateAwaitingConfirmation, StateAwaitingDate},
	StateAwaitingConfirmation: {StateCommitted, StateAwaitingTime},
	StateCommitted:            nil,
	StateCancelled:            nil,
}

// AllStates returns every state in flow order.
func AllStates() []State {
	return []State{
		StateCollectingIdentity,
		StateAwaitingService,
		StateAwaitingBarber,
		StateAwaitingDate,
		StateAwaitingTime,
		StateAwaitingConfirmation,
		StateCommitted,
		StateCancelled,
	}
}

func (s State) Terminal() bool {
	return s == StateCommitted || s == StateCancelled
}

func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from -> to is an edge of the machine.
func CanTransition(from, to State) bool {
	if to == StateCancelled {
		return from.Valid() && !from.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Session is the per-user booking state, persisted between updates.
type Session struct {
	UserID    int64     `json:"user_id"`
	State     State     `json:"state"`
	FullName  string    `json:"fullname,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	ServiceID int64     `json:"service_id,omitempty"`
	BarberID  int64     `json:"barber_id,omitempty"`
	Date      string    `json:"date,omitempty"`
	Time      string    `json:"time,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession starts a booking. Identity is collected first when the user is
// unknown; a service picked from the catalog listing skips the service step.
func NewSession(userID int64, fullName, phone string, serviceID int64) *Session {
	s := &Session{
		UserID:    userID,
		FullName:  fullName,
		Phone:     phone,
		ServiceID: serviceID,
		UpdatedAt: time.Now(),
	}
	switch {
	case !s.HasIdentity():
		s.State = StateCollectingIdentity
	case serviceID > 0:
		s.State = StateAwaitingBarber
	default:
		s.State = StateAwaitingService
	}
	return s
}

func (s *Session) HasIdentity() bool {
	return s.FullName != "" && s.Phone != ""
}

func (s *Session) transition(to State) error {
	if s.State.Terminal() {
		return ErrSessionTerminal
	}
	if !CanTransition(s.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.State, to)
	}
	s.State = to
	s.UpdatedAt = time.Now()
	return nil
}

func (s *Session) expect(state State) error {
	if s.State.Terminal() {
		return ErrSessionTerminal
	}
	if s.State != state {
		return fmt.Errorf("%w: expected %s, session is in %s", ErrIllegalTransition, state, s.State)
	}
	return nil
}

// SetFullName records the name during identity collection.
func (s *Session) SetFullName(name string) error {
	if err := s.expect(StateCollectingIdentity); err != nil {
		return err
	}
	s.FullName = name
	s.UpdatedAt = time.Now()
	return nil
}

// SetPhone records the phone and leaves identity collection once the name is
// known too.
func (s *Session) SetPhone(phone string) error {
	if err := s.expect(StateCollectingIdentity); err != nil {
		return err
	}
	if s.FullName == "" {
		return fmt.Errorf("%w: full name", ErrMissingSelection)
	}
	s.Phone = phone
	if s.ServiceID > 0 {
		return s.transition(StateAwaitingBarber)
	}
	return s.transition(StateAwaitingService)
}

func (s *Session) SelectService(serviceID int64) error {
	if err := s.expect(StateAwaitingService); err != nil {
		return err
	}
	s.ServiceID = serviceID
	return s.transition(StateAwaitingBarber)
}

func (s *Session) SelectBarber(barberID int64) error {
	if err := s.expect(StateAwaitingBarber); err != nil {
		return err
	}
	if s.ServiceID == 0 {
		return fmt.Errorf("%w: service", ErrMissingSelection)
	}
	s.BarberID = barberID
	return s.transition(StateAwaitingDate)
}

func (s *Session) SelectDate(date string) error {
	if err := s.expect(StateAwaitingDate); err != nil {
		return err
	}
	s.Date = date
	return s.transition(StateAwaitingTime)
}

func (s *Session) SelectTime(t string) error {
	if err := s.expect(StateAwaitingTime); err != nil {
		return err
	}
	s.Time = t
	return s.transition(StateAwaitingConfirmation)
}

// Back steps from date to barber or from time to date. Selections made so
// far stay in place so the previous screen can highlight them.
func (s *Session) Back() error {
	switch s.State {
	case StateAwaitingDate:
		return s.transition(StateAwaitingBarber)
	case StateAwaitingTime:
		return s.transition(StateAwaitingDate)
	default:
		if s.State.Terminal() {
			return ErrSessionTerminal
		}
		return fmt.Errorf("%w: back from %s", ErrIllegalTransition, s.State)
	}
}

// SlotLost sends a confirming session back to time selection after the slot
// was taken by someone else.
func (s *Session) SlotLost() error {
	if err := s.expect(StateAwaitingConfirmation); err != nil {
		return err
	}
	s.Time = ""
	return s.transition(StateAwaitingTime)
}

func (s *Session) Commit() error {
	if err := s.expect(StateAwaitingConfirmation); err != nil {
		return err
	}
	return s.transition(StateCommitted)
}

func (s *Session) Cancel() error {
	return s.transition(StateCancelled)
}
