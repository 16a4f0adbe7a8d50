package irc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SASLClient is a pluggable SASL mechanism, matched against AUTHENTICATE
// challenges during registration.
type SASLClient interface {
	Early() bool
	Handshake() (mech string)
	Respond(challenge string) (res string, err error)
}

// SASLPlain implements the PLAIN mechanism (RFC 4616).
type SASLPlain struct {
	Username string
	Password string
}

func (auth *SASLPlain) Early() bool { return true }

func (auth *SASLPlain) Handshake() (mech string) { return "PLAIN" }

func (auth *SASLPlain) Respond(challenge string) (res string, err error) {
	if challenge != "+" {
		return "", errors.New("unexpected SASL challenge")
	}
	user := []byte(auth.Username)
	pass := []byte(auth.Password)
	payload := bytes.Join([][]byte{user, user, pass}, []byte{0})
	return base64.StdEncoding.EncodeToString(payload), nil
}

// SupportedCapabilities is the set of capabilities this library negotiates
// when offered by the server.
var SupportedCapabilities = map[string]struct{}{
	"account-notify": {},
	"account-tag":    {},
	"away-notify":    {},
	"batch":          {},
	"cap-notify":     {},
	"chghost":        {},
	"echo-message":   {},
	"extended-join":  {},
	"invite-notify":  {},
	"message-tags":   {},
	"multi-prefix":   {},
	"server-time":    {},
	"sasl":           {},
	"setname":        {},
	"userhost-in-names": {},
}

// SASLOnFailure controls what happens when SASL authentication fails
// during registration, resolving the corresponding Open Question: either
// abort the connection, or continue unauthenticated and surface an
// ErrorEvent (the default, mirroring the teacher's endRegistration
// fallback path).
type SASLOnFailure int

const (
	ContinueUnauthenticated SASLOnFailure = iota
	AbortOnSASLFailure
)

// SessionState is the registration/negotiation state machine driving one
// connection, per spec.md §4.5.
type SessionState int

const (
	Disconnected SessionState = iota
	Connecting
	SaslAuthenticating
	Registering
	ReceivingServerInfo
	Online
	Disconnecting
)

func (s SessionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case SaslAuthenticating:
		return "sasl-authenticating"
	case Registering:
		return "registering"
	case ReceivingServerInfo:
		return "receiving-server-info"
	case Online:
		return "online"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// SessionParams configures a Session's registration.
type SessionParams struct {
	Nickname      string
	Username      string
	RealName      string
	Auth          SASLClient
	SASLOnFailure SASLOnFailure
}

// Session owns registration, CAP/SASL negotiation, and inbound message
// dispatch for one connection. It writes outgoing messages to out and
// reports effects to the caller as (Event, error) from HandleMessage; it
// does not itself own a socket (spec.md §1 non-goal).
type Session struct {
	out         chan<- Message
	priorityOut chan<- Message

	state   SessionState
	nick    string
	user    string
	real    string
	acct    string
	host    string
	auth    SASLClient
	onFail  SASLOnFailure

	availableCaps map[string]string
	enabledCaps   map[string]struct{}
	capEndSent    bool

	tracker *tracker
	matcher *requestMatcher
	monitor *MonitorList

	// pending holds secondary events produced while handling the current
	// message (e.g. UserDisappearedEvent alongside a PART/KICK/QUIT's
	// primary event). Drained by DrainEvents after HandleMessage returns.
	pending []Event
}

// NewSession creates a Session and sends the registration burst: CAP LS,
// NICK and USER, following senpai's NewSession sequencing. The SASL
// handshake starts later, once the server ACKs the sasl capability.
func NewSession(out chan<- Message, params SessionParams) *Session {
	s := &Session{
		out:           out,
		state:         Connecting,
		nick:          params.Nickname,
		user:          params.Username,
		real:          params.RealName,
		auth:          params.Auth,
		onFail:        params.SASLOnFailure,
		availableCaps: map[string]string{},
		enabledCaps:   map[string]struct{}{},
		tracker:       newTracker(),
		matcher:       newRequestMatcher(),
	}
	s.tracker.selfNick = s.nick
	s.tracker.selfNickCf = s.tracker.fold(s.nick)
	s.monitor = newMonitorList(s.tracker.casemap)
	s.priorityOut = out

	s.out <- NewMessage("CAP", "LS", "302")
	s.out <- NewMessage("NICK", s.nick)
	s.out <- NewMessage("USER", s.user, "0", "*", s.real)
	s.state = Registering
	return s
}

func (s *Session) State() SessionState { return s.state }
func (s *Session) Nick() string        { return s.nick }
func (s *Session) NickCf() string      { return s.tracker.fold(s.nick) }

func (s *Session) HasCapability(capability string) bool {
	_, ok := s.enabledCaps[capability]
	return ok
}

func (s *Session) IsChannel(name string) bool { return s.tracker.isChannel(name) }
func (s *Session) Casemap(name string) string { return s.tracker.fold(name) }

// Tracker exposes the read-only state model for host queries.
func (s *Session) Tracker() *tracker { return s.tracker }

// Matcher exposes the async-request registry so callers can register
// pending requests ahead of sending the triggering command.
func (s *Session) Matcher() *requestMatcher { return s.matcher }

// Monitor exposes the presence-list component.
func (s *Session) Monitor() *MonitorList { return s.monitor }

// capToken is one parsed CAP token, name and optional value, with its sign.
type capToken struct {
	Name   string
	Value  string
	Enable bool
}

func parseCaps(s string) []capToken {
	var out []capToken
	for _, tok := range strings.Fields(s) {
		c := capToken{Enable: true}
		if strings.HasPrefix(tok, "-") {
			c.Enable = false
			tok = tok[1:]
		}
		if eq := strings.IndexByte(tok, '='); eq >= 0 {
			c.Name = tok[:eq]
			c.Value = tok[eq+1:]
		} else {
			c.Name = tok
		}
		out = append(out, c)
	}
	return out
}

// HandleMessage dispatches one inbound line according to the current
// registration state, returning the effect event (if any) for the host to
// surface.
func (s *Session) HandleMessage(msg Message) (Event, error) {
	// A numeric can both resolve a pending async request and update
	// tracker state (e.g. a WHOIS reply), so matching never short-circuits
	// dispatch below.
	s.matcher.match(msg, s.tracker.fold)
	if s.state == Registering || s.state == SaslAuthenticating {
		if ev, err, handled := s.handleDuringRegistration(msg); handled {
			return ev, err
		}
	}
	return s.handlePostRegistration(msg)
}

// DrainEvents returns and clears any secondary events queued while
// handling the most recent message — currently just UserDisappearedEvent,
// emitted alongside a PART/KICK/QUIT that leaves a User untracked. Callers
// should drain after every HandleMessage call.
func (s *Session) DrainEvents() []Event {
	if len(s.pending) == 0 {
		return nil
	}
	p := s.pending
	s.pending = nil
	return p
}

func (s *Session) handleDuringRegistration(msg Message) (Event, error, bool) {
	switch msg.Command {
	case "CAP":
		return s.handleCap(msg)
	case "AUTHENTICATE":
		return s.handleAuthenticate(msg)
	case errNicknameinuse:
		var nick string
		if err := msg.ParseParams(nil, &nick); err != nil {
			return nil, err, true
		}
		s.nick = nick + "_"
		s.out <- NewMessage("NICK", s.nick)
		return nil, nil, true
	case rplLoggedin, rplLoggedout, errNicklocked, errSaslfail, errSasltoolong, errSaslaborted, errSaslalready, rplSaslmechs, rplSaslsuccess:
		return s.handleSaslOutcome(msg)
	case rplWelcome:
		return s.handleWelcome(msg), nil, true
	}
	return nil, nil, false
}

func (s *Session) handleCap(msg Message) (Event, error, bool) {
	if len(msg.Params) < 3 {
		return nil, errNotEnoughParamsText(msg.Command, 3, len(msg.Params)), true
	}
	subcommand := msg.Params[1]
	capList := msg.Params[len(msg.Params)-1]
	more := subcommand == "LS" && len(msg.Params) >= 4 && msg.Params[2] == "*"

	switch subcommand {
	case "LS":
		for _, c := range parseCaps(capList) {
			s.availableCaps[c.Name] = c.Value
		}
		// A "*" continuation marker before the cap list means more CAP LS
		// lines follow; only the final line triggers REQ.
		if more {
			return nil, nil, true
		}
		s.requestWantedCaps()
	case "ACK":
		for _, c := range parseCaps(capList) {
			if c.Enable {
				s.enabledCaps[c.Name] = struct{}{}
			} else {
				delete(s.enabledCaps, c.Name)
			}
			if c.Name == "sasl" && s.auth != nil {
				s.state = SaslAuthenticating
				s.out <- NewMessage("AUTHENTICATE", s.auth.Handshake())
				return nil, nil, true
			}
		}
		s.maybeEndCap()
	case "NAK":
		s.maybeEndCap()
	case "NEW":
		for _, c := range parseCaps(capList) {
			s.availableCaps[c.Name] = c.Value
			if _, ok := SupportedCapabilities[c.Name]; ok {
				s.out <- NewMessage("CAP", "REQ", c.Name)
			}
		}
	case "DEL":
		for _, c := range parseCaps(capList) {
			delete(s.availableCaps, c.Name)
			delete(s.enabledCaps, c.Name)
		}
	}
	return nil, nil, true
}

func (s *Session) requestWantedCaps() {
	var want []string
	for name := range s.availableCaps {
		if _, ok := SupportedCapabilities[name]; ok {
			want = append(want, name)
		}
	}
	if s.auth != nil {
		if _, ok := s.availableCaps["sasl"]; ok {
			want = append(want, "sasl")
		}
	}
	if len(want) == 0 {
		s.maybeEndCap()
		return
	}
	s.out <- NewMessage("CAP", "REQ", strings.Join(want, " "))
}

func (s *Session) handleAuthenticate(msg Message) (Event, error, bool) {
	if s.auth == nil {
		return nil, nil, true
	}
	var payload string
	if err := msg.ParseParams(&payload); err != nil {
		return nil, err, true
	}
	res, err := s.auth.Respond(payload)
	if err != nil {
		s.out <- NewMessage("AUTHENTICATE", "*")
	} else {
		s.out <- NewMessage("AUTHENTICATE", res)
	}
	return nil, nil, true
}

func (s *Session) handleSaslOutcome(msg Message) (Event, error, bool) {
	switch msg.Command {
	case rplLoggedin:
		var nuh string
		if err := msg.ParseParams(nil, &nuh, &s.acct); err != nil {
			return nil, err, true
		}
		prefix := ParsePrefix(nuh)
		s.user = prefix.User
		s.host = prefix.Host
	case rplLoggedout:
		s.acct = ""
	case rplSaslsuccess:
		s.auth = nil
		s.maybeEndCap()
		return nil, nil, true
	case errNicklocked, errSaslfail, errSasltoolong, errSaslaborted, errSaslalready, rplSaslmechs:
		s.auth = nil
		ev := ErrorEvent{
			Severity: SeverityFail,
			Code:     msg.Command,
			Message:  fmt.Sprintf("SASL authentication failed: %s", lastParam(msg)),
		}
		if s.onFail == AbortOnSASLFailure {
			s.Quit("")
			return ev, &Error{Kind: ErrKindNotSupported, Command: msg.Command}, true
		}
		s.maybeEndCap()
		return ev, nil, true
	}
	return nil, nil, true
}

func (s *Session) maybeEndCap() {
	if s.capEndSent {
		return
	}
	s.capEndSent = true
	s.out <- NewMessage("CAP", "END")
}

func (s *Session) handleWelcome(msg Message) Event {
	var nick string
	if err := msg.ParseParams(&nick); err == nil {
		s.nick = nick
	}
	s.tracker.selfNick = s.nick
	s.tracker.selfNickCf = s.tracker.fold(s.nick)
	s.state = ReceivingServerInfo
	u := newUser(s.tracker.selfNickCf, &Prefix{Name: s.nick, User: s.user, Host: s.host})
	u.Self = true
	s.tracker.users[s.tracker.selfNickCf] = u
	if s.host == "" {
		s.out <- NewMessage("WHO", s.nick)
	}
	return RegisteredEvent{Nick: s.nick}
}

func lastParam(msg Message) string {
	if len(msg.Params) == 0 {
		return ""
	}
	return strings.Join(msg.Params[1:], " ")
}

// handlePostRegistration dispatches every message that updates tracker
// state regardless of registration phase — ISUPPORT and WHO replies
// arrive in ReceivingServerInfo before the session ever reaches Online.
func (s *Session) handlePostRegistration(msg Message) (Event, error) {
	switch msg.Command {
	case rplIsupport:
		if len(msg.Params) < 3 {
			return nil, errNotEnoughParamsText(msg.Command, 3, len(msg.Params))
		}
		s.tracker.updateISupport(msg.Params[1 : len(msg.Params)-1])
		s.monitor.configure(s.tracker.features)
		if s.state == ReceivingServerInfo {
			s.state = Online
		}
		return nil, nil
	case rplEndofwho:
		if s.state == ReceivingServerInfo {
			s.state = Online
		}
		return nil, nil
	case rplWhoreply:
		return s.handleWhoReply(msg)
	case "JOIN":
		return s.handleJoin(msg)
	case "PART":
		return s.handlePart(msg)
	case "KICK":
		return s.handleKick(msg)
	case "QUIT":
		return s.handleQuit(msg)
	case "NICK":
		return s.handleNick(msg)
	case "MODE":
		return s.handleMode(msg)
	case "TOPIC":
		return s.handleTopic(msg)
	case rplTopic:
		return s.handleRplTopic(msg)
	case rplTopicwhotime:
		return s.handleRplTopicWhoTime(msg)
	case rplNamreply:
		return s.handleNamReply(msg)
	case rplEndofnames:
		return s.handleEndOfNames(msg)
	case "ACCOUNT":
		return s.handleAccount(msg)
	case "CHGHOST":
		return s.handleChghost(msg)
	case "AWAY":
		return s.handleAway(msg)
	case "INVITE":
		return s.handleInvite(msg)
	case "PRIVMSG":
		return s.handlePrivmsg(msg)
	case "NOTICE":
		return s.handleNotice(msg)
	case "PING":
		var token string
		msg.ParseParams(&token)
		s.priorityOut <- NewMessage("PONG", token)
		return nil, nil
	case rplMononline, rplMonoffline:
		return s.handleMonitorReply(msg)
	case rplWhoisuser:
		return s.handleWhoisUser(msg)
	case rplWhoisoperator:
		return s.handleWhoisOperator(msg)
	case rplAway:
		return s.handleRplAway(msg)
	case rplWhoisaccount:
		return s.handleWhoisAccount(msg)
	case errNicknameinuse:
		return nil, nil
	}
	return nil, nil
}

// handleWhoisUser folds RPL_WHOISUSER's ident/host/realname into the
// tracked User, independent of whether a caller is awaiting a
// WhoisAsync result (the async matcher consumes the same line
// separately, via its own accumulation).
func (s *Session) handleWhoisUser(msg Message) (Event, error) {
	var nick, username, host, realName string
	if err := msg.ParseParams(nil, &nick, &username, &host, nil, &realName); err != nil {
		return nil, err
	}
	if u, ok := s.tracker.userByNick(nick); ok {
		u.Ident = username
		u.Host = host
		u.RealName = realName
	}
	return nil, nil
}

func (s *Session) handleWhoisOperator(msg Message) (Event, error) {
	var nick string
	if err := msg.ParseParams(nil, &nick); err != nil {
		return nil, err
	}
	if u, ok := s.tracker.userByNick(nick); ok {
		u.Oper = true
	}
	return nil, nil
}

// handleRplAway mirrors the AWAY verb's effect for a nick learned through
// a numeric reply rather than a live away-notify broadcast.
func (s *Session) handleRplAway(msg Message) (Event, error) {
	var nick string
	if err := msg.ParseParams(nil, &nick); err != nil {
		return nil, err
	}
	if u, ok := s.tracker.userByNick(nick); ok {
		u.Away = true
	}
	return nil, nil
}

func (s *Session) handleWhoisAccount(msg Message) (Event, error) {
	var nick, account string
	if err := msg.ParseParams(nil, &nick, &account); err != nil {
		return nil, err
	}
	if u, ok := s.tracker.userByNick(nick); ok {
		u.Account = account
	}
	return nil, nil
}

func (s *Session) handleWhoReply(msg Message) (Event, error) {
	var nick, host, flags, username string
	if err := msg.ParseParams(nil, nil, &username, &host, nil, &nick, &flags, nil); err != nil {
		return nil, err
	}
	nickCf := s.tracker.fold(nick)
	away := len(flags) > 0 && flags[0] == 'G'
	if s.tracker.isSelf(nickCf) {
		s.user = username
		s.host = host
	}
	if u, ok := s.tracker.userByNick(nick); ok {
		u.Away = away
		u.Ident = username
		u.Host = host
	}
	return nil, nil
}

func (s *Session) handleJoin(msg Message) (Event, error) {
	if len(msg.Params) == 0 {
		return nil, msg.errNotEnoughParams(1)
	}
	channel := msg.Params[0]
	if msg.Prefix == nil {
		return nil, errMissingPrefix()
	}
	extended := s.HasCapability("extended-join") && len(msg.Params) >= 3

	nickCf := s.tracker.fold(msg.Prefix.Name)
	if s.tracker.isSelf(nickCf) {
		c := s.tracker.joinLocal(channel)
		u := s.tracker.ensureUser(msg.Prefix)
		u.Self = true
		if extended {
			u.Account = msg.Params[1]
			u.RealName = msg.Params[2]
		}
		s.tracker.addMember(c, u, "")
		s.out <- NewMessage("MODE", channel)
		s.out <- NewMessage("NAMES", channel)
		return SelfJoinEvent{Channel: c.Name}, nil
	}
	c, ok := s.tracker.channelByName(channel)
	if !ok {
		return nil, nil
	}
	u := s.tracker.ensureUser(msg.Prefix)
	if extended {
		u.Account = msg.Params[1]
		u.RealName = msg.Params[2]
	}
	s.tracker.addMember(c, u, "")
	return UserJoinEvent{User: u.Nick, Channel: c.Name, Time: msg.TimeOrNow()}, nil
}

func (s *Session) handlePart(msg Message) (Event, error) {
	var channel, reason string
	if err := msg.ParseParams(&channel, &reason); err != nil {
		reason = ""
	}
	if msg.Prefix == nil {
		return nil, errMissingPrefix()
	}
	c, ok := s.tracker.channelByName(channel)
	if !ok {
		return nil, nil
	}
	nickCf := s.tracker.fold(msg.Prefix.Name)
	if s.tracker.isSelf(nickCf) {
		for _, nick := range s.tracker.removePartedChannel(c) {
			s.queueUserDisappeared(nick)
		}
		return SelfPartEvent{Channel: c.Name}, nil
	}
	u, ok := s.tracker.userByNick(msg.Prefix.Name)
	if !ok {
		return nil, nil
	}
	nick := u.Nick
	if s.tracker.removeMember(c, u) {
		s.queueUserDisappeared(nick)
	}
	return UserPartEvent{User: nick, Channel: c.Name, Reason: reason, Time: msg.TimeOrNow()}, nil
}

// queueUserDisappeared records a User's removal from the tracker as a
// secondary event, surfaced via DrainEvents.
func (s *Session) queueUserDisappeared(nick string) {
	s.pending = append(s.pending, UserDisappearedEvent{User: nick})
}

func (s *Session) handleKick(msg Message) (Event, error) {
	var channel, nick, reason string
	if err := msg.ParseParams(&channel, &nick, &reason); err != nil {
		reason = ""
	}
	c, ok := s.tracker.channelByName(channel)
	if !ok {
		return nil, nil
	}
	kicker := ""
	if msg.Prefix != nil {
		kicker = msg.Prefix.Name
	}
	if s.tracker.isSelf(s.tracker.fold(nick)) {
		for _, n := range s.tracker.removePartedChannel(c) {
			s.queueUserDisappeared(n)
		}
		return SelfKickEvent{Kicker: kicker, Channel: c.Name, Reason: reason}, nil
	}
	u, ok := s.tracker.userByNick(nick)
	if !ok {
		return nil, nil
	}
	kickedNick := u.Nick
	if s.tracker.removeMember(c, u) {
		s.queueUserDisappeared(kickedNick)
	}
	return UserKickEvent{Kicker: kicker, User: kickedNick, Channel: c.Name, Reason: reason, Time: msg.TimeOrNow()}, nil
}

func (s *Session) handleQuit(msg Message) (Event, error) {
	var reason string
	msg.ParseParams(&reason)
	if msg.Prefix == nil {
		return nil, errMissingPrefix()
	}
	u, ok := s.tracker.userByNick(msg.Prefix.Name)
	if !ok {
		return nil, nil
	}
	nick := u.Nick
	channels, disappeared := s.tracker.removeUserEverywhere(u)
	var names []string
	for _, c := range channels {
		names = append(names, c.Name)
	}
	if disappeared {
		s.queueUserDisappeared(nick)
	}
	return UserQuitEvent{User: nick, Channels: names, Reason: reason, Time: msg.TimeOrNow()}, nil
}

func (s *Session) handleNick(msg Message) (Event, error) {
	var newNick string
	if err := msg.ParseParams(&newNick); err != nil {
		return nil, err
	}
	if msg.Prefix == nil {
		return nil, errMissingPrefix()
	}
	u, ok := s.tracker.userByNick(msg.Prefix.Name)
	if !ok {
		return nil, nil
	}
	former := u.Nick
	self := u.Self
	s.tracker.renameUser(u, newNick)
	if self {
		s.nick = newNick
		return SelfNickEvent{FormerNick: former}, nil
	}
	return UserNickEvent{User: newNick, FormerNick: former, Time: msg.TimeOrNow()}, nil
}

func (s *Session) handleMode(msg Message) (Event, error) {
	if len(msg.Params) < 2 {
		return nil, errNotEnoughParamsText(msg.Command, 2, len(msg.Params))
	}
	target := msg.Params[0]
	if !s.tracker.isChannel(target) {
		return nil, nil
	}
	c, ok := s.tracker.channelByName(target)
	if !ok {
		return nil, nil
	}
	changes, err := ParseChannelMode(msg.Params[1], msg.Params[2:], s.tracker.features.ChanModes, s.tracker.features.Prefix.Modes)
	if err != nil {
		return nil, err
	}
	for _, ch := range changes {
		switch ch.Kind {
		case ModeKindStatus:
			symbol, ok := s.tracker.features.Prefix.SymbolForMode(ch.Mode)
			if !ok {
				continue
			}
			u, ok := s.tracker.userByNick(ch.Param)
			if !ok {
				continue
			}
			cu, ok := c.Members[u.NickCf]
			if !ok {
				continue
			}
			if ch.Enable {
				cu.addStatus(symbol)
			} else {
				cu.removeStatus(symbol)
			}
		case ModeKindList:
			if ch.Enable {
				c.Lists[ch.Mode] = append(c.Lists[ch.Mode], ch.Param)
			} else {
				c.Lists[ch.Mode] = removeString(c.Lists[ch.Mode], ch.Param)
			}
		}
	}
	by := ""
	if msg.Prefix != nil {
		by = msg.Prefix.Name
	}
	return ModeChangeEvent{Channel: c.Name, By: by, Mode: strings.Join(msg.Params[1:], " "), Time: msg.TimeOrNow()}, nil
}

func removeString(ss []string, s string) []string {
	for i, v := range ss {
		if v == s {
			return append(ss[:i], ss[i+1:]...)
		}
	}
	return ss
}

func (s *Session) handleTopic(msg Message) (Event, error) {
	var channel, topic string
	if err := msg.ParseParams(&channel, &topic); err != nil {
		return nil, err
	}
	c, ok := s.tracker.channelByName(channel)
	if !ok {
		return nil, nil
	}
	c.Topic = topic
	c.TopicTime = msg.TimeOrNow()
	if msg.Prefix != nil {
		c.TopicSetter = msg.Prefix.String()
	}
	return TopicChangeEvent{Channel: c.Name, Topic: topic, Setter: c.TopicSetter, Time: c.TopicTime}, nil
}

func (s *Session) handleRplTopic(msg Message) (Event, error) {
	var channel, topic string
	if err := msg.ParseParams(nil, &channel, &topic); err != nil {
		return nil, err
	}
	c, ok := s.tracker.channelByName(channel)
	if !ok {
		return nil, nil
	}
	c.Topic = topic
	return nil, nil
}

func (s *Session) handleRplTopicWhoTime(msg Message) (Event, error) {
	var channel, who, when string
	if err := msg.ParseParams(nil, &channel, &who, &when); err != nil {
		return nil, err
	}
	c, ok := s.tracker.channelByName(channel)
	if !ok {
		return nil, nil
	}
	c.TopicSetter = who
	if sec, err := parseUnix(when); err == nil {
		c.TopicTime = sec
	}
	return nil, nil
}

func parseUnix(s string) (time.Time, error) {
	var sec int64
	_, err := fmt.Sscanf(s, "%d", &sec)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}

func (s *Session) handleNamReply(msg Message) (Event, error) {
	if len(msg.Params) < 4 {
		return nil, errNotEnoughParamsText(msg.Command, 4, len(msg.Params))
	}
	channel := msg.Params[2]
	c, ok := s.tracker.channelByName(channel)
	if !ok {
		c = s.tracker.joinLocal(channel)
	}
	for _, m := range ParseNameReply(msg.Params[3], s.tracker.features.Prefix.Symbols) {
		u, ok := s.tracker.userByNick(m.Name)
		if !ok {
			u = s.tracker.ensureUser(&Prefix{Name: m.Name})
		}
		s.tracker.addMember(c, u, m.Statuses)
	}
	return nil, nil
}

func (s *Session) handleEndOfNames(msg Message) (Event, error) {
	var channel string
	if err := msg.ParseParams(nil, &channel); err != nil {
		return nil, err
	}
	if c, ok := s.tracker.channelByName(channel); ok {
		c.Complete = true
	}
	return nil, nil
}

func (s *Session) handleAccount(msg Message) (Event, error) {
	var account string
	if err := msg.ParseParams(&account); err != nil {
		return nil, err
	}
	if msg.Prefix == nil {
		return nil, errMissingPrefix()
	}
	u, ok := s.tracker.userByNick(msg.Prefix.Name)
	if !ok {
		return nil, nil
	}
	if account == "*" {
		account = ""
	}
	u.Account = account
	return AccountChangeEvent{User: u.Nick, Account: account}, nil
}

func (s *Session) handleChghost(msg Message) (Event, error) {
	var newUser, newHost string
	if err := msg.ParseParams(&newUser, &newHost); err != nil {
		return nil, err
	}
	if msg.Prefix == nil {
		return nil, errMissingPrefix()
	}
	u, ok := s.tracker.userByNick(msg.Prefix.Name)
	if !ok {
		return nil, nil
	}
	u.Ident = newUser
	u.Host = newHost
	return nil, nil
}

func (s *Session) handleAway(msg Message) (Event, error) {
	if msg.Prefix == nil {
		return nil, errMissingPrefix()
	}
	u, ok := s.tracker.userByNick(msg.Prefix.Name)
	if !ok {
		return nil, nil
	}
	u.Away = len(msg.Params) > 0 && msg.Params[0] != ""
	return nil, nil
}

func (s *Session) handleInvite(msg Message) (Event, error) {
	var invitee, channel string
	if err := msg.ParseParams(&invitee, &channel); err != nil {
		return nil, err
	}
	inviter := ""
	if msg.Prefix != nil {
		inviter = msg.Prefix.Name
	}
	return InviteEvent{Inviter: inviter, Invitee: invitee, Channel: channel}, nil
}

func (s *Session) handleMonitorReply(msg Message) (Event, error) {
	online := msg.Command == rplMononline
	if len(msg.Params) < 2 {
		return nil, errNotEnoughParamsText(msg.Command, 2, len(msg.Params))
	}
	var out Event
	for _, entry := range strings.Split(msg.Params[1], ",") {
		nick := entry
		if bang := strings.IndexByte(entry, '!'); bang >= 0 {
			nick = entry[:bang]
		}
		if !s.monitor.Contains(nick) {
			continue
		}
		if online {
			out = UserOnlineEvent{User: nick}
		} else {
			out = UserOfflineEvent{User: nick}
		}
	}
	return out, nil
}

func (s *Session) handlePrivmsg(msg Message) (Event, error) {
	return s.newMessageOrCTCPEvent(msg, false)
}

func (s *Session) handleNotice(msg Message) (Event, error) {
	return s.newMessageOrCTCPEvent(msg, true)
}

func (s *Session) newMessageOrCTCPEvent(msg Message, notice bool) (Event, error) {
	var target, content string
	if err := msg.ParseParams(&target, &content); err != nil {
		return nil, err
	}
	who := ""
	if msg.Prefix != nil {
		who = msg.Prefix.Name
	}
	if cmd, params, ok := parseCTCP(content); ok {
		if notice {
			return CTCPReplyEvent{User: who, Target: target, Command: cmd, Params: params, Time: msg.TimeOrNow()}, nil
		}
		return CTCPEvent{User: who, Target: target, Command: cmd, Params: params, Time: msg.TimeOrNow()}, nil
	}
	status := ""
	if len(target) > 0 && strings.IndexByte(s.tracker.features.StatusMsg, target[0]) >= 0 {
		status, target = target[:1], target[1:]
	}
	isChan := s.tracker.isChannel(target)
	urls := extractURLs(content)
	if notice {
		return NoticeEvent{User: who, Target: target, TargetIsChannel: isChan, TargetStatus: status, Content: content, Time: msg.TimeOrNow(), URLs: urls}, nil
	}
	return MessageEvent{User: who, Target: target, TargetIsChannel: isChan, TargetStatus: status, Content: content, Time: msg.TimeOrNow(), URLs: urls}, nil
}

// parseCTCP recognizes single-level \x01-framed CTCP payloads, per
// SPEC_FULL.md's resolution of the CTCP Open Question. The closing \x01
// is optional.
func parseCTCP(content string) (command, params string, ok bool) {
	const delim = '\x01'
	if len(content) < 2 || content[0] != delim {
		return "", "", false
	}
	inner := strings.TrimSuffix(content[1:], string(delim))
	if sp := strings.IndexByte(inner, ' '); sp >= 0 {
		return inner[:sp], inner[sp+1:], true
	}
	return inner, "", true
}

// Outbound commands.

// SetPriorityOut redirects liveness replies (PONG) onto a writer queue
// distinct from ordinary traffic, so they jump ahead of flood-paced
// commands already queued on out. Without a call to this, priority
// traffic shares the regular queue.
func (s *Session) SetPriorityOut(priority chan<- Message) {
	s.priorityOut = priority
}

// registered reports whether the session has received enough server info
// to let the host mutate server-side state (spec.md §4.5: "commands that
// mutate server state are rejected with NotRegistered below
// ReceivingServerInfo").
func (s *Session) registered() bool {
	return s.state >= ReceivingServerInfo
}

func (s *Session) Join(channel, key string) error {
	if !s.registered() {
		return notRegistered("JOIN")
	}
	if key == "" {
		s.out <- NewMessage("JOIN", channel)
	} else {
		s.out <- NewMessage("JOIN", channel, key)
	}
	return nil
}

func (s *Session) Part(channel, reason string) error {
	if !s.registered() {
		return notRegistered("PART")
	}
	if reason == "" {
		s.out <- NewMessage("PART", channel)
	} else {
		s.out <- NewMessage("PART", channel, reason)
	}
	return nil
}

func (s *Session) ChangeTopic(channel, topic string) error {
	if !s.registered() {
		return notRegistered("TOPIC")
	}
	s.out <- NewMessage("TOPIC", channel, topic)
	return nil
}

// Quit is exempt from the registration gate: it must be usable to abandon
// a connection stuck mid-registration.
func (s *Session) Quit(reason string) {
	s.state = Disconnecting
	if reason == "" {
		s.out <- NewMessage("QUIT")
	} else {
		s.out <- NewMessage("QUIT", reason)
	}
}

func (s *Session) ChangeNick(nick string) error {
	if !s.registered() {
		return notRegistered("NICK")
	}
	s.out <- NewMessage("NICK", nick)
	return nil
}

func (s *Session) ChangeMode(channel, flags string, args []string) error {
	if !s.registered() {
		return notRegistered("MODE")
	}
	params := append([]string{channel, flags}, args...)
	s.out <- NewMessage("MODE", params...)
	return nil
}

func (s *Session) PrivMsg(target, content string) error {
	if !s.registered() {
		return notRegistered("PRIVMSG")
	}
	s.out <- NewMessage("PRIVMSG", target, content)
	return nil
}

func (s *Session) Notice(target, content string) error {
	if !s.registered() {
		return notRegistered("NOTICE")
	}
	s.out <- NewMessage("NOTICE", target, content)
	return nil
}

func (s *Session) Invite(nick, channel string) error {
	if !s.registered() {
		return notRegistered("INVITE")
	}
	s.out <- NewMessage("INVITE", nick, channel)
	return nil
}

func (s *Session) Kick(nick, channel, comment string) error {
	if !s.registered() {
		return notRegistered("KICK")
	}
	if comment == "" {
		s.out <- NewMessage("KICK", channel, nick)
	} else {
		s.out <- NewMessage("KICK", channel, nick, comment)
	}
	return nil
}

// MonitorAdd/MonitorRemove emit the wire commands built by MonitorList,
// updating the local set immediately rather than waiting for the server
// to confirm: the set is authoritative client-side.
func (s *Session) MonitorAdd(nicks ...string) error {
	if !s.registered() {
		return notRegistered("MONITOR")
	}
	for _, n := range nicks {
		if err := s.monitor.Add(n); err != nil {
			return err
		}
	}
	msgs, err := s.monitor.BuildAddCommands(nicks)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		s.out <- m
	}
	return nil
}

func (s *Session) MonitorRemove(nicks ...string) error {
	if !s.registered() {
		return notRegistered("MONITOR")
	}
	msgs, err := s.monitor.BuildRemoveCommands(nicks)
	if err != nil {
		return err
	}
	for _, n := range nicks {
		s.monitor.Remove(n)
	}
	for _, m := range msgs {
		s.out <- m
	}
	return nil
}

// WhoisAsync registers a pending WHOIS request and sends it.
func (s *Session) WhoisAsync(nick string) (*pendingRequest, error) {
	if !s.registered() {
		return nil, notRegistered("WHOIS")
	}
	p := s.matcher.register(RequestWhois, s.tracker.fold(nick))
	s.out <- NewMessage("WHOIS", nick)
	return p, nil
}

func (s *Session) WhoAsync(mask string) (*pendingRequest, error) {
	if !s.registered() {
		return nil, notRegistered("WHO")
	}
	p := s.matcher.register(RequestWho, "")
	s.out <- NewMessage("WHO", mask)
	return p, nil
}

func (s *Session) ListAsync() (*pendingRequest, error) {
	if !s.registered() {
		return nil, notRegistered("LIST")
	}
	p := s.matcher.register(RequestList, "")
	s.out <- NewMessage("LIST")
	return p, nil
}

func (s *Session) BanlistAsync(channel string) (*pendingRequest, error) {
	if !s.registered() {
		return nil, notRegistered("BANLIST")
	}
	p := s.matcher.register(RequestBanlist, s.tracker.fold(channel))
	s.out <- NewMessage("MODE", channel, "+b")
	return p, nil
}

// Disconnected resolves every pending request and marks the session
// terminally disconnected, per spec.md §4.6 rule 3.
func (s *Session) Disconnected() {
	s.state = Disconnected
	s.matcher.failAll(ErrKindDisconnected)
}
