package id_test

import (
	"testing"

	"github.com/orthanc-go/jobengine/id"
)

func TestNewIsUnique(t *testing.T) {
	a := id.New()
	b := id.New()

	if a.IsNil() || b.IsNil() {
		t.Fatal("expected non-nil ids")
	}
	if a.Equal(b) {
		t.Fatal("expected distinct ids from successive calls to New")
	}
}

func TestParseRoundTrip(t *testing.T) {
	original := id.New()

	parsed, err := id.Parse(original.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.Equal(original) {
		t.Fatalf("round trip mismatch: got %s, want %s", parsed, original)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-a-uuid", "job_01h2xcejqtf2nbrexx3vqjhp41"} {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", s)
		}
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.New()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var got id.JobID
	if err := got.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if !got.Equal(original) {
		t.Fatalf("round trip mismatch: got %s, want %s", got, original)
	}
}

func TestNilJobID(t *testing.T) {
	var nilID id.JobID
	if !nilID.IsNil() {
		t.Fatal("expected zero-value JobID to be nil")
	}
	if nilID.String() != "" {
		t.Fatalf("expected empty string, got %q", nilID.String())
	}
}
