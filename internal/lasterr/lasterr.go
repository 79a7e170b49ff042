// Package lasterr implements the last-error slot of a decode session.
//
// Decoders return errors directly; the slot is a compatibility surface for
// callers that poll "what went wrong" after a failing call. Each session owns
// one Slot. Draining is single-consumer: the first Drain after a failure sees
// it, later calls see success.
package lasterr

import (
	"sync"

	"github.com/joshuapare/codeobjkit/pkg/types"
)

// Slot holds the status and message of the most recent failure.
// The zero value is ready to use and reports success.
type Slot struct {
	mu     sync.Mutex
	status types.Status
	msg    string
}

// Set overwrites the status. An empty msg keeps the previous message so that
// code-only updates do not lose context.
func (s *Slot) Set(status types.Status, msg string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if msg != "" {
		s.msg = msg
	}
}

// Record stores err in the slot. A nil error is ignored.
func (s *Slot) Record(err error) {
	if err == nil {
		return
	}
	s.Set(types.StatusOf(err), "ERROR: "+err.Error())
}

// Peek returns the slot contents without resetting them.
func (s *Slot) Peek() (types.Status, string) {
	if s == nil {
		return types.StatusSuccess, ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.msg
}

// Failed reports whether the slot currently holds a failure.
func (s *Slot) Failed() bool {
	status, _ := s.Peek()
	return status != types.StatusSuccess
}

// Drain returns the slot contents and resets the slot to success. When no
// message was recorded the status name is returned instead.
func (s *Slot) Drain() (types.Status, string) {
	if s == nil {
		return types.StatusSuccess, types.StatusSuccess.String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	status, msg := s.status, s.msg
	s.status, s.msg = types.StatusSuccess, ""
	if msg == "" {
		msg = status.String()
	}
	return status, msg
}
