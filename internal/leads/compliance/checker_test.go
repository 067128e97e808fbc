package compliance

import (
	"reflect"
	"testing"
)

func TestScanCleanTextHasNoViolations(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"Seller is motivated, wants to close next month.",
		"Discussed a likely range, no commitments made.",
	} {
		if got := Scan(text); len(got) != 0 {
			t.Errorf("Scan(%q) = %v, want none", text, got)
		}
	}
}

func TestScanFlagsProhibitedPhrases(t *testing.T) {
	got := Scan("I GUARANTEE we can close, it's totally risk-free.")

	phrases := Phrases(got)
	want := []string{"guarantee", "risk-free"}
	if !reflect.DeepEqual(phrases, want) {
		t.Fatalf("phrases = %v, want %v", phrases, want)
	}
}

func TestScanIsCaseInsensitive(t *testing.T) {
	if len(Scan("We PROMISE a smooth closing")) == 0 {
		t.Fatal("uppercase phrase must still be flagged")
	}
}

func TestScanMatchesSubstrings(t *testing.T) {
	// "guaranteed" contains "guarantee": both list entries match.
	got := Scan("payment is guaranteed")
	if len(got) != 2 {
		t.Fatalf("violations = %v, want both guarantee and guaranteed", got)
	}
}

func TestPhrasesEmptyForNoViolations(t *testing.T) {
	if Phrases(nil) != nil {
		t.Fatal("no violations must yield nil phrases")
	}
}
