package state

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	cases := map[string]State{
		"empty": New(),
		"windows": {
			Windows: map[string][]float64{
				"KELP":      {1995, 1996, 1994, 1997, 1996, 1995.5},
				"SQUID_INK": {7000.5},
			},
			Books: map[string]Bookkeeping{},
		},
		"bookkeeping": {
			Windows: map[string][]float64{"VOLCANIC_ROCK": {10210.5, 10211}},
			Books: map[string]Bookkeeping{
				"VOLCANIC_ROCK": {EntryPrice: 10209, Open: true, PeakPnL: 12.5, LastEntryTs: 4200, Entered: true},
				"KELP":          {Entered: true, LastEntryTs: 100},
			},
		},
	}
	for name, want := range cases {
		blob, err := Encode(want)
		if err != nil {
			t.Fatalf("%s: encode: %v", name, err)
		}
		got, err := Decode(blob)
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: round trip mismatch\nwant %+v\ngot  %+v", name, want, got)
		}
	}
}

func TestEncodeNilMaps(t *testing.T) {
	blob, err := Encode(State{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, New()) {
		t.Fatalf("expected empty state, got %+v", got)
	}
}

func TestDecodeEmptyBlob(t *testing.T) {
	for _, blob := range []string{"", "   "} {
		s, err := Decode(blob)
		if err != nil {
			t.Fatalf("empty blob should not error: %v", err)
		}
		if len(s.Windows) != 0 || len(s.Books) != 0 {
			t.Fatalf("expected empty state")
		}
	}
}

func TestDecodeCorruptBlob(t *testing.T) {
	for _, blob := range []string{"{not json", "[1,2,3]", "null", `{"windows": 5}`, "\x00\x01"} {
		s, err := Decode(blob)
		if err == nil {
			t.Fatalf("%q: expected decode error", blob)
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("%q: expected *DecodeError, got %T", blob, err)
		}
		if s.Windows == nil || s.Books == nil || len(s.Windows) != 0 || len(s.Books) != 0 {
			t.Fatalf("%q: expected empty default state, got %+v", blob, s)
		}
	}
}

func TestRestoreFallsBack(t *testing.T) {
	s, err := Restore("garbage")
	if err == nil {
		t.Fatalf("expected error to be reported")
	}
	if !reflect.DeepEqual(s, New()) {
		t.Fatalf("expected default state, got %+v", s)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	blob, err := store.Load(ctx)
	if err != nil || blob != "" {
		t.Fatalf("expected empty blob, got %q err=%v", blob, err)
	}
	if err := store.Save(ctx, `{"windows":{}}`); err != nil {
		t.Fatalf("save: %v", err)
	}
	blob, _ = store.Load(ctx)
	if blob != `{"windows":{}}` {
		t.Fatalf("unexpected blob %q", blob)
	}
}

func TestRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := NewRedisStore(ctx, "127.0.0.1:1", "", time.Minute); err == nil {
		t.Fatalf("expected ping failure against a closed port")
	}
}
