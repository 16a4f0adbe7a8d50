package irc

import "time"

// Event is implemented by every event this package emits. It carries no
// methods of its own — callers type-switch on the concrete event, the
// "tagged variant delivered through one channel" option from spec.md §9.
type Event interface{}

// Sink is the single capability surface a host can implement to receive
// events synchronously (inbound events from the reader goroutine,
// outbound raw lines from the writer goroutine), instead of draining
// Client.Events(). Exactly one method, per spec.md §9's "single event
// sink capability" design note — Handle type-switches on the Event.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Handle(e Event) { f(e) }

// Connection lifecycle.

type ConnectingEvent struct{ Host string }
type ConnectedEvent struct{ Host string }
type RegisteredEvent struct{ Nick string }
type ReadyEvent struct{}
type DisconnectedEvent struct{ Err error }

// ErrorEvent reports an inbound line that failed to parse or to be
// handled, or a SASL failure numeric during registration.
type Severity int

const (
	SeverityNote Severity = iota
	SeverityWarn
	SeverityFail
)

type ErrorEvent struct {
	Severity Severity
	Code     string
	Message  string
}

// Message/notice/CTCP variants.

type MessageEvent struct {
	User            string
	Target          string
	TargetIsChannel bool
	// TargetStatus is the STATUSMSG symbol ("@", "+", ...) the message
	// was restricted to, or "" for an ordinary channel/private message.
	TargetStatus string
	Content      string
	Time         time.Time
	URLs         []string
}

type NoticeEvent struct {
	User            string
	Target          string
	TargetIsChannel bool
	TargetStatus    string
	Content         string
	Time            time.Time
	URLs            []string
}

type CTCPEvent struct {
	User    string
	Target  string
	Command string
	Params  string
	Time    time.Time
}

type CTCPReplyEvent struct {
	User    string
	Target  string
	Command string
	Params  string
	Time    time.Time
}

// Membership and identity changes.

type UserJoinEvent struct {
	User    string
	Channel string
	Time    time.Time
}

type SelfJoinEvent struct {
	Channel   string
	Topic     string
	Requested bool
}

type UserPartEvent struct {
	User    string
	Channel string
	Reason  string
	Time    time.Time
}

type SelfPartEvent struct{ Channel string }

type UserKickEvent struct {
	Kicker  string
	User    string
	Channel string
	Reason  string
	Time    time.Time
}

type SelfKickEvent struct {
	Kicker  string
	Channel string
	Reason  string
}

type UserQuitEvent struct {
	User     string
	Channels []string
	Reason   string
	Time     time.Time
}

type UserNickEvent struct {
	User       string
	FormerNick string
	Time       time.Time
}

type SelfNickEvent struct{ FormerNick string }

type ModeChangeEvent struct {
	Channel string
	By      string
	Mode    string
	Time    time.Time
}

type TopicChangeEvent struct {
	Channel string
	Topic   string
	Setter  string
	Time    time.Time
}

type InviteEvent struct {
	Inviter string
	Invitee string
	Channel string
}

// Presence subscription.

type UserOnlineEvent struct{ User string }
type UserOfflineEvent struct{ User string }

// UserDisappearedEvent reports that a User has been dropped from the
// tracker: it shares no channel with the local user, is not monitored,
// and is not the local user itself (spec.md §3).
type UserDisappearedEvent struct{ User string }

// Raw line tracing — the generic sink the dispatcher always has
// available (spec.md's "emit to a generic sink" non-goal for a real
// logging backend).
type RawLineEvent struct {
	In   bool
	Line string
}

// AccountChangeEvent reports an ACCOUNT (account-notify) update. Accounts
// learned from extended-join or WHOIS update the tracked User without
// emitting this event.
type AccountChangeEvent struct {
	User    string
	Account string // "" means logged out.
}
