package predictor

import (
	"encoding/json"
	"strings"
	"time"
)

// PurchaseEvent opens a new consumption cycle.
type PurchaseEvent struct {
	TS     time.Time
	Source InventorySource
}

// FeedbackEvent carries a user signal about the current cycle.
type FeedbackEvent struct {
	TS     time.Time
	Kind   FeedbackKind
	Source InventorySource
	// Note keeps the raw text for WASTED reason analysis.
	Note string
}

// LogEntry is the dispatcher's view of one inventory_log row.
type LogEntry struct {
	LogID              string
	UserID             string
	ProductID          string
	Action             InventoryAction
	DeltaState         InventoryState
	ActionConfidence   float64
	OccurredAt         time.Time
	Source             InventorySource
	Note               string
	ReceiptItemID      string
	ShoppingListItemID string
}

// ParseFeedbackKind extracts a feedback kind from a free-text note. Supports
// a JSON payload ({"feedback_kind": "..."} or {"kind": "..."}) and plain text
// containing English or Hebrew keywords. Matching is case-insensitive;
// WASTED outranks EMPTY so "thrown out" is not read as ran-out.
func ParseFeedbackKind(note string) (FeedbackKind, bool) {
	s := strings.TrimSpace(note)
	if s == "" {
		return "", false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		for _, key := range []string{"feedback_kind", "kind"} {
			if raw, ok := obj[key]; ok {
				var v string
				if err := json.Unmarshal(raw, &v); err == nil {
					if k, ok := feedbackKindFromString(v); ok {
						return k, true
					}
				}
			}
		}
	}

	low := strings.ToLower(s)
	switch {
	case strings.Contains(low, "wasted"), strings.Contains(low, "thrown"), strings.Contains(low, "נזרק"):
		return FeedbackWasted, true
	case strings.Contains(low, "empty"), strings.Contains(low, "out"), strings.Contains(low, "נגמר"):
		return FeedbackEmpty, true
	case strings.Contains(low, "exact"), strings.Contains(low, "בול"):
		return FeedbackExact, true
	case strings.Contains(low, "more"), strings.Contains(low, "יותר"):
		return FeedbackMore, true
	case strings.Contains(low, "less"), strings.Contains(low, "פחות"):
		return FeedbackLess, true
	}
	return "", false
}

// MapLogEntry classifies a log row into at most one internal event.
//
//   - PURCHASE / REPURCHASE / RESET  -> purchase
//   - EMPTY action                   -> feedback(EMPTY)
//   - TRASH action                   -> feedback(WASTED)
//   - note parsing to a kind         -> feedback of that kind
//   - delta_state EMPTY              -> feedback(EMPTY)
//   - delta_state FULL               -> purchase
//   - otherwise                      -> no event
func MapLogEntry(row LogEntry) (*PurchaseEvent, *FeedbackEvent) {
	ts := row.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	ts = ts.UTC()

	switch row.Action {
	case ActionPurchase, ActionRepurchase, ActionReset:
		return &PurchaseEvent{TS: ts, Source: row.Source}, nil
	case ActionEmpty:
		return nil, &FeedbackEvent{TS: ts, Kind: FeedbackEmpty, Source: row.Source, Note: row.Note}
	case ActionTrash:
		return nil, &FeedbackEvent{TS: ts, Kind: FeedbackWasted, Source: row.Source, Note: row.Note}
	}

	if kind, ok := ParseFeedbackKind(row.Note); ok {
		return nil, &FeedbackEvent{TS: ts, Kind: kind, Source: row.Source, Note: row.Note}
	}

	switch row.DeltaState {
	case StateEmpty:
		return nil, &FeedbackEvent{TS: ts, Kind: FeedbackEmpty, Source: row.Source}
	case StateFull:
		return &PurchaseEvent{TS: ts, Source: row.Source}, nil
	}

	return nil, nil
}
