package channel

import (
	"sync/atomic"

	"github.com/Laisky/syncd/internal/syncd"
)

// ackHandle is a single-use acknowledgment callback, per the Glossary:
// invoking it a second time is a programming error and panics; the
// dispatch loop recovers so one buggy handler cannot take down a
// connection's read loop.
type ackHandle struct {
	conn  *Conn
	ackID string
	used  int32
}

func newAckHandle(conn *Conn, ackID string) *ackHandle {
	return &ackHandle{conn: conn, ackID: ackID}
}

func (a *ackHandle) fire(f ackFrame) {
	if !atomic.CompareAndSwapInt32(&a.used, 0, 1) {
		panic("ack handle invoked more than once")
	}
	f.AckID = a.ackID
	a.conn.ack(f)
}

// Success acknowledges the event; hash is included for operations that
// produced a content-bearing record, per spec §4.5.
func (a *ackHandle) Success(hash string) {
	a.fire(ackFrame{Success: true, Hash: hash})
}

// Error acknowledges a failure with one of the channel-path's three
// error codes, per spec §4.5.
func (a *ackHandle) Error(code syncd.ErrorCode, message string) {
	a.fire(ackFrame{Success: false, Error: &ackErrBody{Code: string(code), Message: message}})
}
