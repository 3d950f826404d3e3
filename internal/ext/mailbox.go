package ext

// mailbox is a one-slot handoff: the host posts a value, the guest
// consumes it, and only then may the host post the next one.
type mailbox struct {
	full  bool
	value byte
}

func (m *mailbox) put(v byte) bool {
	if m.full {
		return false
	}
	m.full, m.value = true, v
	return true
}

func (m *mailbox) take() (byte, bool) {
	if !m.full {
		return 0, false
	}
	m.full = false
	return m.value, true
}
