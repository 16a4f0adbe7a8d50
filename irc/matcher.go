package irc

// RequestKind names the family of async request a pending request
// belongs to — which in turn selects its accumulating/terminator/error
// numeric sets (spec.md §4.6).
type RequestKind int

const (
	RequestWhois RequestKind = iota
	RequestWho
	RequestNames
	RequestList
	RequestBanlist
	RequestMonitorStatus
)

type requestSpec struct {
	accumulate map[string]struct{}
	terminator map[string]struct{}
	errors     map[string]struct{}
}

func set(codes ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

var requestSpecs = map[RequestKind]requestSpec{
	RequestWhois: {
		accumulate: set(rplWhoisuser, rplWhoisserver, rplWhoisoperator, rplWhoisidle, rplWhoischannels, rplWhoisaccount, rplWhoissecure, rplAway),
		terminator: set(rplEndofwhois),
		errors:     set(errNosuchnick, errNosuchchannel),
	},
	RequestWho: {
		accumulate: set(rplWhoreply),
		terminator: set(rplEndofwho),
		errors:     set(errNosuchnick, errNosuchchannel),
	},
	RequestNames: {
		accumulate: set(rplNamreply),
		terminator: set(rplEndofnames),
		errors:     set(errNosuchchannel),
	},
	RequestList: {
		accumulate: set(rplList),
		terminator: set(rplListend),
		errors:     set(),
	},
	RequestBanlist: {
		accumulate: set(rplBanlist),
		terminator: set(rplEndofbanlist),
		errors:     set(errChanoprivsneeded, errNotonchannel),
	},
	RequestMonitorStatus: {
		accumulate: set(rplMonlist),
		terminator: set(rplEndofmonlist),
		errors:     set(),
	},
}

// pendingRequest accumulates reply lines for one in-flight async request
// and resolves exactly once: via its terminator, a matched error numeric,
// cancellation, or disconnect.
type pendingRequest struct {
	kind      RequestKind
	targetCf  string // "" matches any target (e.g. LIST).
	spec      requestSpec
	lines     []Message
	done      chan struct{}
	result    *AsyncResult
	cancelled bool
	matcher   *requestMatcher
}

// AsyncResult is what an async request resolves to: the accumulated
// reply lines, or the error that terminated it early.
type AsyncResult struct {
	Kind  RequestKind
	Lines []Message
	Err   error
}

func newPendingRequest(kind RequestKind, targetCf string) *pendingRequest {
	return &pendingRequest{
		kind:     kind,
		targetCf: targetCf,
		spec:     requestSpecs[kind],
		done:     make(chan struct{}),
	}
}

func (p *pendingRequest) resolve(result AsyncResult) {
	if p.result != nil {
		return // completion slot is written at most once.
	}
	p.result = &result
	close(p.done)
}

// Await blocks until the request resolves or cancel fires, per spec.md
// §5's "no operation may block indefinitely without a caller-supplied
// cancellation signal." A cancel firing first also deregisters the
// request (rule 4), so numerics matching it afterward are ignored.
func (p *pendingRequest) Await(cancel <-chan struct{}) (AsyncResult, error) {
	select {
	case <-p.done:
		return *p.result, p.result.Err
	case <-cancel:
		if p.matcher != nil {
			p.matcher.cancel(p)
		}
		return AsyncResult{}, &Error{Kind: ErrKindCancelled}
	}
}

// requestMatcher is the registry of in-flight pending requests, keyed by
// (kind, folded target), per spec.md §4.6.
type requestMatcher struct {
	byKind map[RequestKind][]*pendingRequest
}

func newRequestMatcher() *requestMatcher {
	return &requestMatcher{byKind: map[RequestKind][]*pendingRequest{}}
}

// register enqueues a new pending request. Rule 2 (oldest wins) falls
// out of always appending and always matching index 0 first.
func (m *requestMatcher) register(kind RequestKind, targetCf string) *pendingRequest {
	p := newPendingRequest(kind, targetCf)
	p.matcher = m
	m.byKind[kind] = append(m.byKind[kind], p)
	return p
}

// cancel removes p from the registry without resolving it (rule 4:
// cancellation is silent; later matching numerics are ignored because
// the request is no longer registered).
func (m *requestMatcher) cancel(p *pendingRequest) {
	p.cancelled = true
	list := m.byKind[p.kind]
	for i, q := range list {
		if q == p {
			m.byKind[p.kind] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// match dispatches one inbound numeric to the oldest matching pending
// request of each kind that declares interest in it, returning true if
// any request was affected.
func (m *requestMatcher) match(msg Message, foldTarget func(string) string) bool {
	handled := false
	for kind, list := range m.byKind {
		for i := 0; i < len(list); i++ {
			p := list[i]
			if !requestTargetMatches(p, msg, foldTarget) {
				continue
			}
			if _, isErr := p.spec.errors[msg.Command]; isErr {
				p.resolve(AsyncResult{Kind: kind, Lines: p.lines, Err: &Error{
					Kind: ErrKindAsyncRequestError, Line: msg.String(), Command: msg.Command,
				}})
				m.removeAt(kind, i)
				handled = true
				break
			}
			if _, isAcc := p.spec.accumulate[msg.Command]; isAcc {
				p.lines = append(p.lines, msg)
				handled = true
			}
			if _, isTerm := p.spec.terminator[msg.Command]; isTerm {
				p.resolve(AsyncResult{Kind: kind, Lines: p.lines})
				m.removeAt(kind, i)
				handled = true
			}
			break // oldest-wins: only the oldest target-matching request of a kind sees a message.
		}
	}
	return handled
}

// requestTargetMatches matches a numeric's target parameter against a
// pending request's folded target key — empty targetCf matches any
// target (used by kinds like LIST with no fixed target).
func requestTargetMatches(p *pendingRequest, msg Message, foldTarget func(string) string) bool {
	if p.targetCf == "" {
		return true
	}
	// The target parameter conventionally follows the client's own nick
	// in numeric replies: params[0] is "me", params[1] is the subject.
	if len(msg.Params) < 2 {
		return false
	}
	return foldTarget(msg.Params[1]) == p.targetCf
}

func (m *requestMatcher) removeAt(kind RequestKind, i int) {
	list := m.byKind[kind]
	m.byKind[kind] = append(list[:i], list[i+1:]...)
}

// failAll resolves every pending request with err — used on disconnect
// (spec.md §4.6 rule 3) and is idempotent since resolve() is one-shot.
func (m *requestMatcher) failAll(kind ErrKind) {
	for k, list := range m.byKind {
		for _, p := range list {
			p.resolve(AsyncResult{Kind: p.kind, Lines: p.lines, Err: &Error{Kind: kind}})
		}
		m.byKind[k] = nil
	}
}
