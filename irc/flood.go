package irc

import (
	"golang.org/x/time/rate"
)

// Default flood-protection parameters, used when the host leaves the
// ClientParams flood fields at zero; ISUPPORT is not consulted (spec.md
// §4.8: "burst 4 lines, 2 lines/second").
const (
	defaultFloodBurst = 4
	defaultFloodRate  = 2.0
)

// floodLimiter paces outgoing PRIVMSG/NOTICE/TAGMSG writes through a
// token bucket. PING/PONG and registration commands bypass it entirely,
// matching senpai's per-target rate.Limiter use for typing notifications,
// generalized to the whole writer queue.
type floodLimiter struct {
	limiter *rate.Limiter
}

func newFloodLimiter(linesPerSecond float64, burst int) *floodLimiter {
	if linesPerSecond <= 0 {
		linesPerSecond = defaultFloodRate
	}
	if burst <= 0 {
		burst = defaultFloodBurst
	}
	return &floodLimiter{limiter: rate.NewLimiter(rate.Limit(linesPerSecond), burst)}
}

// reserve claims a token for one line without blocking, returning a
// reservation whose Delay reports how long the caller must wait before
// sending — letting callers yield to higher-priority work in the
// meantime instead of blocking inside the limiter.
func (f *floodLimiter) reserve() *rate.Reservation {
	return f.limiter.Reserve()
}

// exempt reports whether command bypasses flood control.
func exempt(command string) bool {
	switch command {
	case "PING", "PONG", "CAP", "AUTHENTICATE", "NICK", "USER", "QUIT":
		return true
	default:
		return false
	}
}
