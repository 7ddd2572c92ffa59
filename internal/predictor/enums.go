package predictor

import "strings"

// InventoryState is the coarse stock level shown to the user.
type InventoryState string

const (
	StateEmpty   InventoryState = "EMPTY"
	StateLow     InventoryState = "LOW"
	StateMedium  InventoryState = "MEDIUM"
	StateFull    InventoryState = "FULL"
	StateUnknown InventoryState = "UNKNOWN"
)

// rank orders coarse states for monotonicity checks. UNKNOWN ranks below EMPTY.
func (s InventoryState) rank() int {
	switch s {
	case StateEmpty:
		return 1
	case StateLow:
		return 2
	case StateMedium:
		return 3
	case StateFull:
		return 4
	}
	return 0
}

// Less reports whether s orders strictly below other (EMPTY < LOW < MEDIUM < FULL).
func (s InventoryState) Less(other InventoryState) bool {
	return s.rank() < other.rank()
}

// ParseInventoryState normalizes a stored state string. Unrecognized
// values map to UNKNOWN.
func ParseInventoryState(s string) InventoryState {
	switch InventoryState(strings.ToUpper(strings.TrimSpace(s))) {
	case StateEmpty:
		return StateEmpty
	case StateLow:
		return StateLow
	case StateMedium:
		return StateMedium
	case StateFull:
		return StateFull
	}
	return StateUnknown
}

// InventorySource records which surface produced an event.
type InventorySource string

const (
	SourceReceipt      InventorySource = "RECEIPT"
	SourceShoppingList InventorySource = "SHOPPING_LIST"
	SourceManual       InventorySource = "MANUAL"
	SourceSystem       InventorySource = "SYSTEM"
)

// ParseInventorySource falls back to SYSTEM for unknown values.
func ParseInventorySource(s string) InventorySource {
	switch InventorySource(strings.ToUpper(strings.TrimSpace(s))) {
	case SourceReceipt:
		return SourceReceipt
	case SourceShoppingList:
		return SourceShoppingList
	case SourceManual:
		return SourceManual
	}
	return SourceSystem
}

// InventoryAction is the action column of an inventory log entry.
type InventoryAction string

const (
	ActionPurchase   InventoryAction = "PURCHASE"
	ActionRepurchase InventoryAction = "REPURCHASE"
	ActionAdjust     InventoryAction = "ADJUST"
	ActionTrash      InventoryAction = "TRASH"
	ActionEmpty      InventoryAction = "EMPTY"
	ActionReset      InventoryAction = "RESET"
)

// FeedbackKind is the closed set of user feedback signals.
type FeedbackKind string

const (
	FeedbackMore   FeedbackKind = "MORE"
	FeedbackLess   FeedbackKind = "LESS"
	FeedbackExact  FeedbackKind = "EXACT"
	FeedbackEmpty  FeedbackKind = "EMPTY" // "נגמר"
	FeedbackWasted FeedbackKind = "WASTED" // "נזרק"
)

func feedbackKindFromString(s string) (FeedbackKind, bool) {
	switch FeedbackKind(strings.ToUpper(strings.TrimSpace(s))) {
	case FeedbackMore:
		return FeedbackMore, true
	case FeedbackLess:
		return FeedbackLess, true
	case FeedbackExact:
		return FeedbackExact, true
	case FeedbackEmpty:
		return FeedbackEmpty, true
	case FeedbackWasted:
		return FeedbackWasted, true
	}
	return "", false
}
