package game

import (
	"log/slog"
	"time"

	"tetrad-server/wsutil"
)

// handleAttach binds a live connection to a seat. It serves three cases:
// the initial join, a duplicate session (the previous connection is
// evicted), and a rejoin inside the grace window (the in-progress turn
// timer keeps running; no time is refunded).
func (m *Match) handleAttach(seat int, send chan []byte) {
	if seat < 0 || seat > 1 || send == nil {
		return
	}
	st := m.seats[seat]

	if st.Connected && st.Send != nil && st.Send != send {
		// Anti-multi-session: the newest connection wins; the old one is
		// dropped with a notice, not an error. The close signal makes the
		// write pump send a close frame and tear the connection down; any
		// action the old read loop still flushes fails the seat's
		// send-channel identity check and is ignored.
		wsutil.SendJSON(st.Send, map[string]string{
			"type":    "session_evicted",
			"message": "another session joined this match",
		})
		wsutil.SendClose(st.Send)
		slog.Info("duplicate session evicted", "tag", "game", "match", m.ID, "user", st.UserID)
	}

	rejoined := m.graceCancel[seat] != nil
	st.Send = send
	st.Connected = true
	if rejoined {
		m.cancelGraceTimer(seat)
		m.notifySeat(1-seat, map[string]string{"type": "opponent_reconnected"})
		slog.Info("participant rejoined within grace", "tag", "game", "match", m.ID, "user", st.UserID)
	}

	m.notifySeat(seat, JoinedMsg{
		Type:        "joined",
		GameState:   BuildStateView(m.state.Load(), st.UserID, m.turn.endsAtUnixMs()),
		PlayerSlot:  seat,
		RejoinToken: st.RejoinToken,
	})

	if m.phase == PhaseAwaitingPlayers && m.seats[0].Connected && m.seats[1].Connected {
		m.phase = PhaseActive
		m.startTurnTimer()
		m.broadcastStartTurn()
		slog.Info("match active", "tag", "game", "match", m.ID)
	}
}

// handleDisconnected starts the seat's grace window for a lost connection.
// The send channel identifies the connection: a disconnect from an
// already-evicted session must not touch the live one. Windows are per
// seat, so both participants dropping at once each get their own. The turn
// timer is not paused; a timeout during the window still forces a move.
func (m *Match) handleDisconnected(seat int, send chan []byte) {
	if seat < 0 || seat > 1 {
		return
	}
	st := m.seats[seat]
	if send != nil && st.Send != send {
		return // stale connection
	}
	if !st.Connected || m.graceCancel[seat] != nil {
		return
	}
	st.Connected = false
	m.graceDeadline[seat] = time.Now().Add(m.grace)
	m.notifySeat(1-seat, map[string]any{
		"type":                "opponent_reconnecting",
		"graceDeadlineUnixMs": m.graceDeadline[seat].UnixMilli(),
	})
	slog.Info("participant disconnected, grace window started", "tag", "game",
		"match", m.ID, "user", st.UserID, "grace", m.grace)

	m.graceSeq[seat]++
	m.graceCancel[seat] = make(chan struct{})
	cancel := m.graceCancel[seat]
	seq := m.graceSeq[seat]
	go func() {
		select {
		case <-time.After(m.grace):
			select {
			case m.Actions <- Action{Type: ActionGraceExpired, Seat: seat, Seq: seq}:
			case <-m.Done:
			}
		case <-cancel:
		}
	}()
}

// handleGraceExpired finalizes the match for the remaining participant.
// A stale expiry (the seat already rejoined, which bumped its sequence)
// is fully suppressed so each race has exactly one winner. When both seats
// are inside a window, whichever expires first forfeits.
func (m *Match) handleGraceExpired(seat int, seq int) {
	if seat < 0 || seat > 1 {
		return
	}
	if seq != m.graceSeq[seat] || m.graceCancel[seat] == nil {
		return
	}
	m.cancelGraceTimer(seat)
	winner := m.seats[1-seat].UserID
	slog.Info("grace window expired", "tag", "game", "match", m.ID, "forfeiting", m.seats[seat].UserID)
	m.finalize(winner, "disconnect")
}

// cancelGraceTimer clears the seat's window; bumping the sequence
// suppresses any expiry already queued behind the rejoin.
func (m *Match) cancelGraceTimer(seat int) {
	if m.graceCancel[seat] != nil {
		close(m.graceCancel[seat])
		m.graceCancel[seat] = nil
	}
	m.graceSeq[seat]++
	m.graceDeadline[seat] = time.Time{}
}
