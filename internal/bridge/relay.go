package bridge

import "github.com/FabianRolfMatthiasNoll/gbbridge/internal/ext"

// relay forwards guest notifications to the configured listener. Pause
// and stop requests also act on the session: a paused session waits for
// Resume, a stopped one makes Update return false.
type relay struct{ s *Session }

func (r relay) Streamed(data []byte) {
	if l := r.s.cfg.Listener; l != nil {
		l.Streamed(data)
	}
}

func (r relay) Sync(name string) {
	if l := r.s.cfg.Listener; l != nil {
		l.Sync(name)
	}
}

func (r relay) Debug(text string) {
	r.s.log.Debug("guest", "msg", text)
	if l := r.s.cfg.Listener; l != nil {
		l.Debug(text)
	}
}

func (r relay) Cursor(mode ext.Cursor) {
	if l := r.s.cfg.Listener; l != nil {
		l.Cursor(mode)
	}
}

func (r relay) Paused() {
	r.s.paused = true
	if l := r.s.cfg.Listener; l != nil {
		l.Paused()
	}
}

func (r relay) Stopped() {
	r.s.stopped = true
	if l := r.s.cfg.Listener; l != nil {
		l.Stopped()
	}
}
