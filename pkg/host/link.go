package host

import (
	"errors"
	"net"
	"time"

	"github.com/spacecodeur/space-lt/pkg/protocol"
)

// peerLink wraps one accepted connection (client or orchestrator) with the
// bounded-write discipline spec §4.2/§5 requires: "writes block under a
// bounded timeout... a timeout drops the current job".
type peerLink struct {
	conn         net.Conn
	writer       *protocol.FrameWriter
	writeTimeout time.Duration
}

func newPeerLink(conn net.Conn, writeTimeout time.Duration) *peerLink {
	return &peerLink{conn: conn, writer: protocol.NewFrameWriter(conn), writeTimeout: writeTimeout}
}

// writeFrame applies the write deadline around a single frame write. A
// deadline exceeded surfaces as ErrWriteTimeout so callers can distinguish
// it from a hard connection error.
func (l *peerLink) writeFrame(tag protocol.Tag, payload []byte) error {
	if l.writeTimeout > 0 {
		_ = l.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout))
		defer l.conn.SetWriteDeadline(time.Time{})
	}

	err := l.writer.WriteFrame(tag, payload)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrWriteTimeout
		}
		return err
	}
	return nil
}

func (l *peerLink) close() error {
	return l.conn.Close()
}
