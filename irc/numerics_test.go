package irc

import "testing"

func TestNumericNameAndCategory(t *testing.T) {
	if NumericName("001") != "RPL_WELCOME" {
		t.Fatalf("got %q", NumericName("001"))
	}
	if cat, ok := NumericCategoryOf("401"); !ok || cat != CategoryError {
		t.Fatalf("got cat=%v ok=%v", cat, ok)
	}
	if NumericName("999") != "" {
		t.Fatalf("expected an unknown code to have no name, got %q", NumericName("999"))
	}
	if _, ok := NumericCategoryOf("999"); ok {
		t.Fatal("expected an unknown code to report ok=false")
	}
}
