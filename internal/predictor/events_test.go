package predictor

import (
	"testing"
)

func TestParseFeedbackKind(t *testing.T) {
	cases := []struct {
		note string
		want FeedbackKind
		ok   bool
	}{
		{`{"feedback_kind": "LESS"}`, FeedbackLess, true},
		{`{"kind": "exact"}`, FeedbackExact, true},
		{`{"feedback_kind": "nonsense"}`, "", false},
		{"thrown out, it expired", FeedbackWasted, true}, // WASTED outranks the "out" keyword
		{"wasted", FeedbackWasted, true},
		{"ran out yesterday", FeedbackEmpty, true},
		{"EMPTY", FeedbackEmpty, true},
		{"נגמר", FeedbackEmpty, true},
		{"נזרק", FeedbackWasted, true},
		{"בול", FeedbackExact, true},
		{"we need more", FeedbackMore, true},
		{"יותר", FeedbackMore, true},
		{"less please", FeedbackLess, true},
		{"פחות", FeedbackLess, true},
		{"just a note", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseFeedbackKind(tc.note)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseFeedbackKind(%q) = %q/%v, want %q/%v", tc.note, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMapLogEntry(t *testing.T) {
	ts := testTime(1)
	cases := []struct {
		name         string
		row          LogEntry
		wantPurchase bool
		wantKind     FeedbackKind
	}{
		{"purchase action", LogEntry{Action: ActionPurchase, OccurredAt: ts}, true, ""},
		{"repurchase action", LogEntry{Action: ActionRepurchase, OccurredAt: ts}, true, ""},
		{"reset action", LogEntry{Action: ActionReset, OccurredAt: ts}, true, ""},
		{"empty action", LogEntry{Action: ActionEmpty, OccurredAt: ts}, false, FeedbackEmpty},
		{"trash action", LogEntry{Action: ActionTrash, OccurredAt: ts}, false, FeedbackWasted},
		{"adjust with note", LogEntry{Action: ActionAdjust, Note: `{"feedback_kind":"MORE"}`, OccurredAt: ts}, false, FeedbackMore},
		{"adjust to empty", LogEntry{Action: ActionAdjust, DeltaState: StateEmpty, OccurredAt: ts}, false, FeedbackEmpty},
		{"adjust to full", LogEntry{Action: ActionAdjust, DeltaState: StateFull, OccurredAt: ts}, true, ""},
		{"adjust without signal", LogEntry{Action: ActionAdjust, DeltaState: StateMedium, OccurredAt: ts}, false, ""},
	}
	for _, tc := range cases {
		purchase, feedback := MapLogEntry(tc.row)
		if tc.wantPurchase {
			if purchase == nil || feedback != nil {
				t.Fatalf("%s: want purchase event, got %v/%v", tc.name, purchase, feedback)
			}
			if !purchase.TS.Equal(ts) {
				t.Fatalf("%s: purchase ts = %v, want %v", tc.name, purchase.TS, ts)
			}
			continue
		}
		if tc.wantKind == "" {
			if purchase != nil || feedback != nil {
				t.Fatalf("%s: want no event, got %v/%v", tc.name, purchase, feedback)
			}
			continue
		}
		if feedback == nil || purchase != nil {
			t.Fatalf("%s: want feedback event, got %v/%v", tc.name, purchase, feedback)
		}
		if feedback.Kind != tc.wantKind {
			t.Fatalf("%s: kind = %s, want %s", tc.name, feedback.Kind, tc.wantKind)
		}
	}
}

func TestMapLogEntry_TrashNoteDrivesWasteReason(t *testing.T) {
	row := LogEntry{Action: ActionTrash, Note: "expired", OccurredAt: testTime(2)}
	_, feedback := MapLogEntry(row)
	if feedback == nil || feedback.Kind != FeedbackWasted {
		t.Fatalf("got %v, want WASTED feedback", feedback)
	}
	if feedback.Note != "expired" {
		t.Fatalf("note = %q, want raw note preserved", feedback.Note)
	}
}
