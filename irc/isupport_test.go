package irc

import "testing"

func TestFeaturesUpdateBasicTokens(t *testing.T) {
	f := DefaultFeatures()
	changed := f.Update([]string{"CHANTYPES=#&", "NETWORK=Libera.Chat", "CASEMAPPING=ascii"})
	if !changed {
		t.Fatal("expected a CASEMAPPING change from the default rfc1459")
	}
	if f.ChanTypes != "#&" {
		t.Fatalf("got ChanTypes %q", f.ChanTypes)
	}
	if f.Network != "Libera.Chat" {
		t.Fatalf("got Network %q", f.Network)
	}
	if f.CaseMapping != "ascii" {
		t.Fatalf("got CaseMapping %q", f.CaseMapping)
	}
}

func TestFeaturesUpdateNoCasemapChange(t *testing.T) {
	f := DefaultFeatures()
	if f.Update([]string{"NETWORK=Test"}) {
		t.Fatal("expected no CASEMAPPING change when the token isn't present")
	}
	if f.Update([]string{"CASEMAPPING=rfc1459"}) {
		t.Fatal("expected no change when CASEMAPPING is re-sent with the same value")
	}
}

func TestFeaturesUpdatePrefix(t *testing.T) {
	f := DefaultFeatures()
	f.Update([]string{"PREFIX=(qaohv)~&@%+"})
	if f.Prefix.Modes != "qaohv" || f.Prefix.Symbols != "~&@%+" {
		t.Fatalf("got prefix %#v", f.Prefix)
	}
	if sym, ok := f.Prefix.SymbolForMode('o'); !ok || sym != '@' {
		t.Fatalf("expected 'o' -> '@', got %q ok=%v", sym, ok)
	}
	if f.Prefix.Rank('~') != 0 {
		t.Fatalf("expected '~' to rank highest, got %d", f.Prefix.Rank('~'))
	}
}

func TestFeaturesUpdateChanModes(t *testing.T) {
	f := DefaultFeatures()
	f.Update([]string{"CHANMODES=eIb,k,l,imnpst"})
	want := [4]string{"eIb", "k", "l", "imnpst"}
	if f.ChanModes != want {
		t.Fatalf("got %#v", f.ChanModes)
	}
}

func TestFeaturesUpdateMonitorWatch(t *testing.T) {
	f := DefaultFeatures()
	f.Update([]string{"MONITOR=100"})
	if !f.HasMonitor() || f.Monitor != 100 {
		t.Fatalf("got Monitor=%d HasMonitor=%v", f.Monitor, f.HasMonitor())
	}
	f2 := DefaultFeatures()
	f2.Update([]string{"WATCH=128"})
	if !f2.HasWatch() || f2.Watch != 128 {
		t.Fatalf("got Watch=%d HasWatch=%v", f2.Watch, f2.HasWatch())
	}
}

func TestFeaturesUpdateHexEscape(t *testing.T) {
	f := DefaultFeatures()
	f.Update([]string{`STATUSMSG=\x40\x2b`})
	if f.StatusMsg != "@+" {
		t.Fatalf("got StatusMsg %q", f.StatusMsg)
	}
}

func TestFeaturesUpdateNegatedToken(t *testing.T) {
	f := DefaultFeatures()
	f.Update([]string{"NAMESX"})
	if _, ok := f.Raw["NAMESX"]; !ok {
		t.Fatal("expected NAMESX to be recorded in Raw")
	}
	f.Update([]string{"-NAMESX"})
	if _, ok := f.Raw["NAMESX"]; ok {
		t.Fatal("expected -NAMESX to remove the token from Raw")
	}
}

func TestFeaturesUpdateLineLen(t *testing.T) {
	f := DefaultFeatures()
	f.Update([]string{"LINELEN=1024"})
	if f.LineLen != 1024 {
		t.Fatalf("got LineLen %d", f.LineLen)
	}
	f.Update([]string{"LINELEN=bogus"})
	if f.LineLen != 1024 {
		t.Fatalf("expected an unparseable LINELEN to be ignored, got %d", f.LineLen)
	}
}
