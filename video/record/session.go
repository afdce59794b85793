package record

import (
	"time"

	"github.com/google/uuid"
)

// Session is the ordered chunk sequence of one recording. It is append-only
// while recording and immutable once sealed. Exactly one component owns an
// unsealed session at a time.
type Session struct {
	ID       uuid.UUID
	Start    time.Time
	Duration time.Duration

	chunks [][]byte
	bytes  int
	sealed bool
}

func NewSession(d time.Duration) *Session {
	return &Session{
		ID:       uuid.New(),
		Start:    time.Now(),
		Duration: d,
	}
}

// Append adds a chunk at the tail. Panics if the session has been sealed;
// sealing is the hard boundary after which no writes are ever accepted.
func (s *Session) Append(b []byte) {
	if s.sealed {
		panic("record: append to sealed session")
	}
	s.chunks = append(s.chunks, b)
	s.bytes += len(b)
}

// Seal makes the session immutable.
func (s *Session) Seal() {
	s.sealed = true
}

func (s *Session) Sealed() bool {
	return s.sealed
}

// Chunks returns the captured chunks in arrival order.
func (s *Session) Chunks() [][]byte {
	return s.chunks
}

// Bytes returns the total captured payload size.
func (s *Session) Bytes() int {
	return s.bytes
}
