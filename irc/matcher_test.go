package irc

import (
	"errors"
	"testing"
)

func TestRequestMatcherAccumulateThenTerminate(t *testing.T) {
	m := newRequestMatcher()
	p := m.register(RequestWhois, "alice")

	who, _ := ParseMessage(":server 311 me alice user host * :Alice Smith")
	end, _ := ParseMessage(":server 318 me alice :End of WHOIS")

	if !m.match(who, CasemapASCII) {
		t.Fatal("expected the accumulate numeric to be handled")
	}
	select {
	case <-p.done:
		t.Fatal("should not resolve before the terminator")
	default:
	}

	if !m.match(end, CasemapASCII) {
		t.Fatal("expected the terminator numeric to be handled")
	}
	result, err := p.Await(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected 1 accumulated line, got %d", len(result.Lines))
	}
}

func TestRequestMatcherErrorResolvesEarly(t *testing.T) {
	m := newRequestMatcher()
	p := m.register(RequestWhois, "ghost")

	errMsg, _ := ParseMessage(":server 401 me ghost :No such nick")
	if !m.match(errMsg, CasemapASCII) {
		t.Fatal("expected the error numeric to be handled")
	}

	_, err := p.Await(nil)
	var ircErr *Error
	if !errors.As(err, &ircErr) || ircErr.Kind != ErrKindAsyncRequestError {
		t.Fatalf("expected an ErrKindAsyncRequestError, got %v", err)
	}
}

func TestRequestMatcherOldestWins(t *testing.T) {
	m := newRequestMatcher()
	first := m.register(RequestWho, "#chan")
	second := m.register(RequestWho, "#chan")

	end, _ := ParseMessage(":server 315 me #chan :End of WHO")
	m.match(end, CasemapASCII)

	select {
	case <-first.done:
	default:
		t.Fatal("expected the oldest pending request to resolve first")
	}
	select {
	case <-second.done:
		t.Fatal("expected the second pending request to still be waiting")
	default:
	}
}

func TestRequestMatcherCancelSilent(t *testing.T) {
	m := newRequestMatcher()
	p := m.register(RequestList, "")
	m.cancel(p)

	end, _ := ParseMessage(":server 323 me :End of LIST")
	m.match(end, CasemapASCII)

	select {
	case <-p.done:
		t.Fatal("a cancelled request should never resolve via a later numeric")
	default:
	}
}

func TestRequestMatcherFailAll(t *testing.T) {
	m := newRequestMatcher()
	p1 := m.register(RequestWhois, "alice")
	p2 := m.register(RequestWho, "#chan")

	m.failAll(ErrKindDisconnected)

	for _, p := range []*pendingRequest{p1, p2} {
		_, err := p.Await(nil)
		var ircErr *Error
		if !errors.As(err, &ircErr) || ircErr.Kind != ErrKindDisconnected {
			t.Fatalf("expected ErrKindDisconnected, got %v", err)
		}
	}
}

func TestRequestMatcherEmptyTargetMatchesAny(t *testing.T) {
	m := newRequestMatcher()
	p := m.register(RequestList, "")
	line, _ := ParseMessage(":server 322 me #chan 5 :topic")
	if !m.match(line, CasemapASCII) {
		t.Fatal("expected a target-less request to accumulate any LIST reply")
	}
	end, _ := ParseMessage(":server 323 me :End of LIST")
	m.match(end, CasemapASCII)
	result, _ := p.Await(nil)
	if len(result.Lines) != 1 {
		t.Fatalf("got %d lines", len(result.Lines))
	}
}

func TestPendingRequestAwaitCancel(t *testing.T) {
	p := newPendingRequest(RequestWhois, "alice")
	cancel := make(chan struct{})
	close(cancel)
	_, err := p.Await(cancel)
	var ircErr *Error
	if !errors.As(err, &ircErr) || ircErr.Kind != ErrKindCancelled {
		t.Fatalf("expected ErrKindCancelled, got %v", err)
	}
}

func TestPendingRequestAwaitCancelDeregisters(t *testing.T) {
	m := newRequestMatcher()
	p := m.register(RequestWhois, "alice")

	cancel := make(chan struct{})
	close(cancel)
	if _, err := p.Await(cancel); err == nil {
		t.Fatal("expected an error from a cancelled Await")
	}

	who, _ := ParseMessage(":server 311 me alice user host * :Alice Smith")
	end, _ := ParseMessage(":server 318 me alice :End of WHOIS")
	m.match(who, CasemapASCII)
	m.match(end, CasemapASCII)

	select {
	case <-p.done:
		t.Fatal("a cancelled request should never resolve via a later numeric")
	default:
	}
	if len(m.byKind[RequestWhois]) != 0 {
		t.Fatalf("expected the cancelled request to be removed from the registry, got %d entries", len(m.byKind[RequestWhois]))
	}
}
