package simulator

import "github.com/spaghettifunk/anima-xr/engine/xr"

// lifecycle replays the runtime state sequence a real compositor reports
// around session begin/end.
type lifecycle struct {
	state    xr.RuntimeState
	queue    []xr.Event
	running  bool
	closing  bool
	exitSent bool
}

func (l *lifecycle) push(states ...xr.RuntimeState) {
	for _, s := range states {
		l.state = s
		l.queue = append(l.queue, xr.Event{Type: xr.EVENT_TYPE_SESSION_STATE_CHANGED, State: s})
	}
}

// poll returns the next event. Once a close was requested and everything
// before it was delivered, EXITING follows.
func (l *lifecycle) poll() (xr.Event, bool) {
	if len(l.queue) == 0 && l.closing && !l.exitSent {
		l.exitSent = true
		l.push(xr.RUNTIME_STATE_EXITING)
	}
	if len(l.queue) == 0 {
		return xr.Event{}, false
	}
	e := l.queue[0]
	l.queue = l.queue[1:]
	return e, true
}

func (l *lifecycle) sessionCreated() {
	l.push(xr.RUNTIME_STATE_IDLE, xr.RUNTIME_STATE_READY)
}

func (l *lifecycle) sessionBegun() {
	l.running = true
	l.push(xr.RUNTIME_STATE_SYNCHRONIZED, xr.RUNTIME_STATE_VISIBLE, xr.RUNTIME_STATE_FOCUSED)
}

// requestClose is the user closing the preview window. A running session is
// asked to stop first.
func (l *lifecycle) requestClose() {
	if l.closing {
		return
	}
	l.closing = true
	if l.running {
		l.push(xr.RUNTIME_STATE_VISIBLE, xr.RUNTIME_STATE_SYNCHRONIZED, xr.RUNTIME_STATE_STOPPING)
	}
}

func (l *lifecycle) sessionEnded() {
	l.running = false
	l.push(xr.RUNTIME_STATE_IDLE)
}

// shouldRender mirrors the compositor: only visible sessions render.
func (l *lifecycle) shouldRender() bool {
	return l.state == xr.RUNTIME_STATE_VISIBLE || l.state == xr.RUNTIME_STATE_FOCUSED
}

// framePacer hands out display times on a fixed refresh period.
type framePacer struct {
	period int64
	next   int64
}

func newFramePacer(refreshRate float64) *framePacer {
	if refreshRate <= 0 {
		refreshRate = 90
	}
	return &framePacer{period: int64(1e9 / refreshRate)}
}

// wait returns how long the caller should sleep and the predicted display
// time of the frame. A late frame re-anchors the schedule at now.
func (p *framePacer) wait(now int64) (sleep int64, displayTime int64) {
	if p.next < now {
		p.next = now
	}
	sleep = p.next - now
	displayTime = p.next + p.period
	p.next += p.period
	return sleep, displayTime
}
