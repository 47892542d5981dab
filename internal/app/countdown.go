package app

import "time"

// startTimerLocked replaces any running countdown with a fresh one at the full limit.
// Each countdown carries a generation; ticks from an older generation are ignored,
// so at most one countdown is ever live.
func (s *Session) startTimerLocked() {
	s.stopTimerLocked()
	s.st.RemainingSeconds = s.opts.TimeLimitSeconds
	s.st.TimerRunning = true
	if s.tickInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	s.timerStop = stop
	go s.runTicker(s.timerGen, stop, s.tickInterval)
}

func (s *Session) stopTimerLocked() {
	s.timerGen++
	s.st.TimerRunning = false
	if s.timerStop != nil {
		close(s.timerStop)
		s.timerStop = nil
	}
}

func (s *Session) runTicker(gen uint64, stop <-chan struct{}, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !s.tick(gen) {
				return
			}
		}
	}
}
