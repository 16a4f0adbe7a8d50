package irc

import (
	"reflect"
	"testing"
)

func TestParseMessageRoundTrip(t *testing.T) {
	cases := []string{
		"PING :tungsten.libera.chat",
		":nick!user@host PRIVMSG #channel :hello world",
		"@time=2021-01-01T00:00:00.000Z;msgid=abc :nick!user@host PRIVMSG #chan :hi",
		"CAP LS 302",
	}
	for _, line := range cases {
		msg, err := ParseMessage(line)
		if err != nil {
			t.Fatalf("ParseMessage(%q): %v", line, err)
		}
		if msg.Command == "" {
			t.Fatalf("ParseMessage(%q): empty command", line)
		}
		again, err := ParseMessage(msg.String())
		if err != nil || !reflect.DeepEqual(again, msg) {
			t.Fatalf("round trip of %q: got %#v (err %v), want %#v", line, again, err, msg)
		}
	}
}

func TestParseMessageNoCommand(t *testing.T) {
	if _, err := ParseMessage(""); err == nil {
		t.Fatal("expected an error for an empty line")
	}
	if _, err := ParseMessage(":prefix-only"); err == nil {
		t.Fatal("expected an error for a line with no command")
	}
}

func TestParseMessageTrailingParam(t *testing.T) {
	msg, err := ParseMessage("PRIVMSG #chan :hello there friend")
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.Params) != 2 || msg.Params[1] != "hello there friend" {
		t.Fatalf("got params %#v", msg.Params)
	}
}

func TestParseMessagePrefixAndTags(t *testing.T) {
	msg, err := ParseMessage("@time=2021-01-01T00:00:00.000Z :nick!user@host NOTICE me :hi")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Prefix == nil || msg.Prefix.Name != "nick" || msg.Prefix.User != "user" || msg.Prefix.Host != "host" {
		t.Fatalf("got prefix %#v", msg.Prefix)
	}
	if msg.Tags.Get("time") != "2021-01-01T00:00:00.000Z" {
		t.Fatalf("got tags %#v", msg.Tags)
	}
}

func TestMessageStringTruncatesTrailingParam(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	msg := NewMessage("PRIVMSG", "#chan", string(long))
	line := msg.String()
	if len(line) > 510 {
		t.Fatalf("serialized line too long: %d bytes", len(line))
	}
}

func TestParsePrefixServer(t *testing.T) {
	p := ParsePrefix("irc.example.org")
	if !p.IsServer() {
		t.Fatalf("expected %q to be classified as a server prefix", p)
	}
	p2 := ParsePrefix("nick!user@host")
	if p2.IsServer() {
		t.Fatal("expected a nick!user@host prefix not to be a server")
	}
}

func TestTagEscaping(t *testing.T) {
	msg, err := ParseMessage(`@note=a\sb\:c\\d :nick PRIVMSG #c :hi`)
	if err != nil {
		t.Fatal(err)
	}
	if got := msg.Tags.Get("note"); got != `a b;c\d` {
		t.Fatalf("got %q", got)
	}
}

func TestPrefixCopyIsIndependent(t *testing.T) {
	p := ParsePrefix("nick!user@host")
	cp := p.Copy()
	cp.Name = "other"
	if p.Name == cp.Name {
		t.Fatal("expected Copy to return an independent value")
	}
}

func TestIsReply(t *testing.T) {
	m, _ := ParseMessage(":server 001 nick :welcome")
	if !m.IsReply() {
		t.Fatal("expected 001 to be a reply")
	}
	m2, _ := ParseMessage("PRIVMSG #chan :hi")
	if m2.IsReply() {
		t.Fatal("expected PRIVMSG not to be a reply")
	}
}
