package irc

import "testing"

var testChanModes = [4]string{"beI", "k", "l", "imnpst"}
var testPrefixModes = "ov"

func TestParseChannelModeStatus(t *testing.T) {
	changes, err := ParseChannelMode("+o", []string{"alice"}, testChanModes, testPrefixModes)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d changes", len(changes))
	}
	c := changes[0]
	if !c.Enable || c.Mode != 'o' || c.Kind != ModeKindStatus || c.Param != "alice" {
		t.Fatalf("got %#v", c)
	}
}

func TestParseChannelModeList(t *testing.T) {
	changes, err := ParseChannelMode("+b", []string{"*!*@bad.example"}, testChanModes, testPrefixModes)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Kind != ModeKindList || changes[0].Param != "*!*@bad.example" {
		t.Fatalf("got %#v", changes[0])
	}
}

func TestParseChannelModeOnSetOnlyWhenEnabling(t *testing.T) {
	changes, err := ParseChannelMode("+l", []string{"50"}, testChanModes, testPrefixModes)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Kind != ModeKindOnSet || changes[0].Param != "50" {
		t.Fatalf("expected +l to take a param, got %#v", changes[0])
	}

	changes, err = ParseChannelMode("-l", nil, testChanModes, testPrefixModes)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Kind != ModeKindOnSet || changes[0].Param != "" {
		t.Fatalf("expected -l to take no param, got %#v", changes[0])
	}
}

func TestParseChannelModeFlagNeverTakesParam(t *testing.T) {
	changes, err := ParseChannelMode("+mn", nil, testChanModes, testPrefixModes)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range changes {
		if c.Kind != ModeKindFlag || c.Param != "" {
			t.Fatalf("expected flag modes to take no param, got %#v", c)
		}
	}
}

func TestParseChannelModeMixedSigns(t *testing.T) {
	changes, err := ParseChannelMode("+o-v", []string{"alice", "bob"}, testChanModes, testPrefixModes)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes", len(changes))
	}
	if !changes[0].Enable || changes[0].Param != "alice" {
		t.Fatalf("got %#v", changes[0])
	}
	if changes[1].Enable || changes[1].Param != "bob" {
		t.Fatalf("got %#v", changes[1])
	}
}

func TestParseChannelModeUnknownCharIsTolerated(t *testing.T) {
	changes, err := ParseChannelMode("+Q", nil, testChanModes, testPrefixModes)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Kind != ModeKindUnknown || changes[0].Param != "" {
		t.Fatalf("got %#v", changes[0])
	}
}

func TestParseNameReply(t *testing.T) {
	members := ParseNameReply("@alice +bob carol", "@+")
	if len(members) != 3 {
		t.Fatalf("got %d members", len(members))
	}
	if members[0].Name != "alice" || members[0].Statuses != "@" {
		t.Fatalf("got %#v", members[0])
	}
	if members[1].Name != "bob" || members[1].Statuses != "+" {
		t.Fatalf("got %#v", members[1])
	}
	if members[2].Name != "carol" || members[2].Statuses != "" {
		t.Fatalf("got %#v", members[2])
	}
}

func TestParseNameReplyUnknownPrefixTolerated(t *testing.T) {
	m := ParseNameReplyToken("!dave", "@+")
	if m.Name != "!dave" || m.Statuses != "" {
		t.Fatalf("expected an unrecognized leading char to stay part of the nick, got %#v", m)
	}
}
