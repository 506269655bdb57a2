package chat

import (
	"errors"
	"reflect"
	"testing"
)

func TestEncodeLogEmpty(t *testing.T) {
	raw, err := EncodeLog(nil)
	if err != nil {
		t.Fatalf("EncodeLog err: %v", err)
	}
	if raw != "[]" {
		t.Fatalf("expected [], got %s", raw)
	}
}

func TestLogRoundTrip(t *testing.T) {
	messages := []Message{
		{Question: "hi", Answer: "hello", Timestamp: 1000},
		{Question: "2+2?", Answer: "", Timestamp: 1000},
		{Question: "Привет \"quoted\"", Answer: "line1\nline2", Timestamp: 1700000000000},
	}

	raw, err := EncodeLog(messages)
	if err != nil {
		t.Fatalf("EncodeLog err: %v", err)
	}

	got, err := DecodeLog(raw)
	if err != nil {
		t.Fatalf("DecodeLog err: %v", err)
	}
	if !reflect.DeepEqual(got, messages) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, messages)
	}
}

func TestDecodeLogKnownLayout(t *testing.T) {
	got, err := DecodeLog(`[{"question":"hi","answer":"hello","timestamp":1000}]`)
	if err != nil {
		t.Fatalf("DecodeLog err: %v", err)
	}
	want := []Message{{Question: "hi", Answer: "hello", Timestamp: 1000}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestDecodeLogNull(t *testing.T) {
	got, err := DecodeLog("null")
	if err != nil {
		t.Fatalf("DecodeLog err: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil log, got %#v", got)
	}
}

func TestDecodeLogMalformed(t *testing.T) {
	for _, raw := range []string{"", "{", `{"question":"hi"}`, `[{"timestamp":"soon"}]`} {
		if _, err := DecodeLog(raw); !errors.Is(err, ErrMalformedLog) {
			t.Fatalf("DecodeLog(%q): expected ErrMalformedLog, got %v", raw, err)
		}
	}
}

func TestDarkModeEncoding(t *testing.T) {
	if EncodeDarkMode(true) != "true" || EncodeDarkMode(false) != "false" {
		t.Fatal("unexpected dark mode encoding")
	}
	cases := map[string]bool{"true": true, "false": false, "": false, "TRUE": false, "1": false}
	for raw, want := range cases {
		if got := DecodeDarkMode(raw); got != want {
			t.Fatalf("DecodeDarkMode(%q) = %v, want %v", raw, got, want)
		}
	}
}
