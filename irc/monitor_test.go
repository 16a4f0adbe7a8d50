package irc

import "testing"

func TestMonitorListSelectsMonitorOverWatch(t *testing.T) {
	m := newMonitorList(CasemapASCII)
	f := DefaultFeatures()
	f.Update([]string{"MONITOR=100", "WATCH=128"})
	m.configure(f)
	if m.wireVerb() != "MONITOR" {
		t.Fatalf("expected MONITOR to be preferred when both are advertised, got %q", m.wireVerb())
	}
}

func TestMonitorListFallsBackToWatch(t *testing.T) {
	m := newMonitorList(CasemapASCII)
	f := DefaultFeatures()
	f.Update([]string{"WATCH=128"})
	m.configure(f)
	if !m.supported() || m.wireVerb() != "WATCH" {
		t.Fatalf("expected WATCH fallback, got supported=%v verb=%q", m.supported(), m.wireVerb())
	}
}

func TestMonitorListUnsupported(t *testing.T) {
	m := newMonitorList(CasemapASCII)
	m.configure(DefaultFeatures())
	if m.supported() {
		t.Fatal("expected neither MONITOR nor WATCH to be supported by default")
	}
	if _, err := m.BuildAddCommands([]string{"alice"}); err == nil {
		t.Fatal("expected BuildAddCommands to fail when unsupported")
	}
}

func TestMonitorListSetOperations(t *testing.T) {
	a := newMonitorList(CasemapASCII)
	a.Add("alice")
	a.Add("bob")

	b := newMonitorList(CasemapASCII)
	b.Add("Bob")
	b.Add("carol")

	if len(a.Union(b)) != 3 {
		t.Fatalf("got union %v", a.Union(b))
	}
	if inter := a.Intersect(b); len(inter) != 1 || CasemapASCII(inter[0]) != "bob" {
		t.Fatalf("got intersect %v", inter)
	}
	if except := a.Except(b); len(except) != 1 || CasemapASCII(except[0]) != "alice" {
		t.Fatalf("got except %v", except)
	}
	if sym := a.SymmetricExcept(b); len(sym) != 2 {
		t.Fatalf("got symmetric except %v", sym)
	}
	if a.Equals(b) {
		t.Fatal("sets should not be equal")
	}
}

func TestMonitorListSubsetAndEquals(t *testing.T) {
	a := newMonitorList(CasemapASCII)
	a.Add("alice")
	b := newMonitorList(CasemapASCII)
	b.Add("alice")
	b.Add("bob")

	if !a.Subset(b) {
		t.Fatal("expected a to be a subset of b")
	}
	if b.Subset(a) {
		t.Fatal("expected b not to be a subset of a")
	}
	b.Remove("bob")
	if !a.Equals(b) {
		t.Fatal("expected a and b to be equal after removing bob")
	}
}

func TestMonitorListContainsIsCaseFolded(t *testing.T) {
	m := newMonitorList(CasemapASCII)
	m.Add("Alice")
	if !m.Contains("ALICE") {
		t.Fatal("expected Contains to case-fold before lookup")
	}
}

func TestMonitorListClearAndList(t *testing.T) {
	m := newMonitorList(CasemapASCII)
	m.Add("alice")
	m.Add("bob")
	if len(m.List()) != 2 {
		t.Fatalf("got %v", m.List())
	}
	m.Clear()
	if len(m.List()) != 0 {
		t.Fatalf("expected Clear to empty the set, got %v", m.List())
	}
}

func TestValidateNickRejectsBadChars(t *testing.T) {
	if err := validateNick("bad nick"); err == nil {
		t.Fatal("expected a space in a nick to be rejected")
	}
	if err := validateNick(""); err == nil {
		t.Fatal("expected an empty nick to be rejected")
	}
	if err := validateNick("alice"); err != nil {
		t.Fatalf("unexpected error for a valid nick: %v", err)
	}
}

func TestBatchByLineLengthRespectsAdvisoryCap(t *testing.T) {
	nicks := []string{"a", "b", "c", "d", "e"}
	batches := batchByLineLength(nicks, 2, "MONITOR")
	for _, b := range batches {
		if len(b) > 2 {
			t.Fatalf("expected batches capped at 2, got %v", b)
		}
	}
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	if total != len(nicks) {
		t.Fatalf("expected every nick to appear exactly once across batches, got %d", total)
	}
}

func TestBatchByLineLengthRespectsWireBudget(t *testing.T) {
	long := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		long = append(long, "nickname-padded-to-be-long-enough-to-force-a-split")
	}
	batches := batchByLineLength(long, 0, "MONITOR")
	if len(batches) < 2 {
		t.Fatal("expected the 510-byte wire budget to force more than one batch")
	}
	for _, b := range batches {
		n := len("MONITOR") + len(" + ")
		for _, nick := range b {
			n += len(nick) + 1
		}
		if n > 510 {
			t.Fatalf("batch exceeds the wire budget: %d bytes", n)
		}
	}
}

func TestBuildAddAndRemoveCommandsUseMonitorSyntax(t *testing.T) {
	m := newMonitorList(CasemapASCII)
	f := DefaultFeatures()
	f.Update([]string{"MONITOR=100"})
	m.configure(f)

	add, err := m.BuildAddCommands([]string{"alice", "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if len(add) != 1 || add[0].Command != "MONITOR" || add[0].Params[0] != "+" {
		t.Fatalf("got %#v", add)
	}

	rem, err := m.BuildRemoveCommands([]string{"alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rem) != 1 || rem[0].Params[0] != "-" {
		t.Fatalf("got %#v", rem)
	}
}

func TestBuildAddCommandsUseWatchSyntax(t *testing.T) {
	m := newMonitorList(CasemapASCII)
	f := DefaultFeatures()
	f.Update([]string{"WATCH=128"})
	m.configure(f)

	add, err := m.BuildAddCommands([]string{"alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(add) != 1 || add[0].Command != "WATCH" || add[0].Params[0] != "+alice" {
		t.Fatalf("got %#v", add)
	}
}
