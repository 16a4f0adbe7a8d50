package irc

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Client owns a transport, a reader goroutine, and a writer goroutine: the
// dispatcher/I/O core (C8). It does not open sockets itself — the caller
// supplies an already-connected io.ReadWriteCloser, per spec.md §1's
// transport non-goal.
type Client struct {
	conn        io.ReadWriteCloser
	sink        Sink
	evts        chan Event
	out         chan Message
	priorityOut chan Message
	flood       *floodLimiter

	session *Session

	running atomic.Bool
	closeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// ClientParams configures a Client.
type ClientParams struct {
	Session SessionParams
	// FloodLinesPerSecond and FloodBurst configure the outgoing token
	// bucket; both default (see newFloodLimiter) when left zero.
	FloodLinesPerSecond float64
	FloodBurst          int
	// Sink, if set, receives every event synchronously in place of
	// Events(): inbound events from the reader goroutine, outbound
	// RawLineEvents from the writer goroutine.
	Sink Sink
}

// NewClient wraps conn, starts registration, and launches the reader and
// writer goroutines. The returned Client is ready to use immediately;
// Events() (or the configured Sink) begins receiving as soon as the first
// inbound line is parsed.
func NewClient(conn io.ReadWriteCloser, params ClientParams) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:        conn,
		sink:        params.Sink,
		evts:        make(chan Event, 256),
		out:         make(chan Message, 256),
		priorityOut: make(chan Message, 16),
		flood:       newFloodLimiter(params.FloodLinesPerSecond, params.FloodBurst),
		ctx:         ctx,
		cancel:      cancel,
	}
	c.running.Store(true)
	c.session = NewSession(c.out, params.Session)
	c.session.SetPriorityOut(c.priorityOut)

	go c.readLoop()
	go c.writeLoop()
	return c
}

// Session exposes the underlying state machine for read access and for
// callers that want to send typed commands directly.
func (c *Client) Session() *Session { return c.session }

// Events returns the channel events are delivered on when no Sink is
// configured. Safe to range over until it closes at disconnect.
func (c *Client) Events() <-chan Event { return c.evts }

func (c *Client) emit(ev Event) {
	if ev == nil {
		return
	}
	if c.sink != nil {
		c.sink.Handle(ev)
		return
	}
	select {
	case c.evts <- ev:
	case <-c.ctx.Done():
	}
}

// readLoop parses inbound lines and feeds them to the session, one at a
// time, so tracker state mutation stays single-threaded (spec.md §5's
// concurrency model: the reader context owns all state).
func (c *Client) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 4096), 8192)
	scanner.Split(splitIRCLines)

	for scanner.Scan() {
		line := scanner.Text()
		c.emit(RawLineEvent{In: true, Line: line})

		msg, err := ParseMessage(line)
		if err != nil {
			c.emit(ErrorEvent{Severity: SeverityWarn, Message: err.Error()})
			continue
		}

		ev, err := c.session.HandleMessage(msg)
		if err != nil {
			c.emit(ErrorEvent{Severity: SeverityWarn, Code: msg.Command, Message: err.Error()})
		}
		c.emit(ev)
		for _, secondary := range c.session.DrainEvents() {
			c.emit(secondary)
		}
	}

	c.shutdown(scanner.Err())
}

// splitIRCLines is a bufio.SplitFunc that frames on CRLF, tolerating a
// bare LF the way real-world IRC servers occasionally send it.
func splitIRCLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := indexByte(data, '\n'); i >= 0 {
		line := data[:i]
		line = strings.TrimSuffix(string(line), "\r")
		return i + 1, []byte(line), nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func indexByte(b []byte, c byte) int {
	for i := range b {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// writeLoop drains the outgoing queue, pacing every non-exempt command
// through the flood limiter (spec.md §4.8). priorityOut is always checked
// first, including while a regular send is paused waiting for a flood
// token, so a PONG queued behind flood-paced traffic on out still reaches
// the wire immediately instead of waiting out the pacing delay.
func (c *Client) writeLoop() {
	for {
		select {
		case msg, ok := <-c.priorityOut:
			if !ok {
				return
			}
			if !c.send(msg) {
				return
			}
			continue
		default:
		}

		select {
		case msg, ok := <-c.priorityOut:
			if !ok {
				return
			}
			if !c.send(msg) {
				return
			}
		case msg, ok := <-c.out:
			if !ok {
				return
			}
			if exempt(msg.Command) {
				if !c.send(msg) {
					return
				}
				continue
			}
			if !c.sendThrottled(msg) {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// sendThrottled waits out msg's flood-pacing delay, yielding to any
// priority traffic that arrives in the meantime, then writes msg.
func (c *Client) sendThrottled(msg Message) bool {
	r := c.flood.reserve()
	delay := r.Delay()
	if delay <= 0 {
		return c.send(msg)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case pmsg, ok := <-c.priorityOut:
			if !ok {
				return false
			}
			if !c.send(pmsg) {
				return false
			}
		case <-timer.C:
			return c.send(msg)
		case <-c.ctx.Done():
			r.Cancel()
			return false
		}
	}
}

// send writes one line to the wire, reporting false if the connection
// failed and the caller should stop.
func (c *Client) send(msg Message) bool {
	line := msg.String()
	if _, err := io.WriteString(c.conn, line+"\r\n"); err != nil {
		c.shutdown(err)
		return false
	}
	c.emit(RawLineEvent{In: false, Line: line})
	return true
}

func (c *Client) shutdown(err error) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.session.Disconnected()
	c.cancel()
	c.conn.Close()
	c.emit(DisconnectedEvent{Err: err})
	close(c.evts)
}

// Disconnect queues QUIT behind any traffic already queued. It does not
// close the transport itself: the Client shuts down when the server
// closes the connection (the reader sees EOF) or when Close is called.
func (c *Client) Disconnect(reason string) {
	if !c.running.Load() {
		return
	}
	c.session.Quit(reason)
}

// Close forcibly tears down the connection without sending QUIT.
func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

// Typed command surface. Each delegates to the Session, which writes to
// the queue the writer goroutine drains.

func (c *Client) Join(channel, key string) error       { return c.session.Join(channel, key) }
func (c *Client) Part(channel, reason string) error    { return c.session.Part(channel, reason) }
func (c *Client) Message(target, content string) error { return c.session.PrivMsg(target, content) }
func (c *Client) Notice(target, content string) error  { return c.session.Notice(target, content) }
func (c *Client) ChangeNick(nick string) error          { return c.session.ChangeNick(nick) }
func (c *Client) ChangeTopic(channel, topic string) error {
	return c.session.ChangeTopic(channel, topic)
}
func (c *Client) Mode(channel, flags string, args ...string) error {
	return c.session.ChangeMode(channel, flags, args)
}
func (c *Client) Kick(nick, channel, reason string) error {
	return c.session.Kick(nick, channel, reason)
}
func (c *Client) Invite(nick, channel string) error { return c.session.Invite(nick, channel) }

func (c *Client) MonitorAdd(nicks ...string) error    { return c.session.MonitorAdd(nicks...) }
func (c *Client) MonitorRemove(nicks ...string) error { return c.session.MonitorRemove(nicks...) }

// WhoisAsync, WhoAsync, ListAsync, and BanlistAsync send the triggering
// command and block until the accumulated reply (C6) resolves or the
// Client shuts down, returning the result.
func (c *Client) WhoisAsync(nick string) (AsyncResult, error) {
	p, err := c.session.WhoisAsync(nick)
	if err != nil {
		return AsyncResult{}, err
	}
	return p.Await(c.ctx.Done())
}

func (c *Client) WhoAsync(mask string) (AsyncResult, error) {
	p, err := c.session.WhoAsync(mask)
	if err != nil {
		return AsyncResult{}, err
	}
	return p.Await(c.ctx.Done())
}

func (c *Client) ListAsync() (AsyncResult, error) {
	p, err := c.session.ListAsync()
	if err != nil {
		return AsyncResult{}, err
	}
	return p.Await(c.ctx.Done())
}

func (c *Client) BanlistAsync(channel string) (AsyncResult, error) {
	p, err := c.session.BanlistAsync(channel)
	if err != nil {
		return AsyncResult{}, err
	}
	return p.Await(c.ctx.Done())
}
