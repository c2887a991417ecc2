package wsutil

import (
	"encoding/json"
	"log/slog"
)

// SafeSend sends data to a channel without panicking if the channel is
// closed. If the channel is full or closed, the send is skipped (a slow
// client must never stall a match). Panics are recovered and logged.
func SafeSend(ch chan []byte, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("SafeSend recovered panic", "tag", "wsutil", "panic", r)
		}
	}()
	select {
	case ch <- data:
	default:
	}
}

// SendClose queues a server-initiated close for the connection draining ch.
// The write pump treats a nil payload as an instruction to send a close
// frame and tear the connection down. Like SafeSend it never blocks and
// never panics; if the signal is dropped the connection dies at the next
// failed keepalive instead.
func SendClose(ch chan []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("SendClose recovered panic", "tag", "wsutil", "panic", r)
		}
	}()
	if ch == nil {
		return
	}
	select {
	case ch <- nil:
	default:
	}
}

// SendJSON marshals v and sends it via SafeSend. Marshal failures are logged
// and dropped; every payload type in this repo is marshallable by
// construction, so a failure here is a programming error worth a log line
// but never a reason to kill a connection.
func SendJSON(ch chan []byte, v any) {
	if ch == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshaling outbound message", "tag", "wsutil", "err", err)
		return
	}
	SafeSend(ch, data)
}
