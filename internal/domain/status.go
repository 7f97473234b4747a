package domain

import "strings"

// Record kinds discriminate the per-day rows persisted for a run.
const (
	RecordKindHistory   = "history"
	RecordKindBacktest  = "backtest"
	RecordKindForecast  = "forecast"
	RecordKindInventory = "inventory"
)

// Run sources, stored as integer codes.
const (
	RunSourceSynthetic = 0
	RunSourceImported  = 1
)

var runSourceLabels = map[int]string{
	RunSourceSynthetic: "Synthetic",
	RunSourceImported:  "Imported",
}

var runSourceCodes = map[string]int{
	"synthetic": RunSourceSynthetic,
	"imported":  RunSourceImported,
}

// RunSourceLabel returns a human-readable label for a run source code.
func RunSourceLabel(source int) string {
	if label, ok := runSourceLabels[source]; ok {
		return label
	}

	return "Synthetic"
}

// ParseRunSource returns the source code for a given label (case-insensitive).
func ParseRunSource(label string) (int, bool) {
	code, ok := runSourceCodes[strings.ToLower(label)]

	return code, ok
}

// ValidRecordKind reports whether kind names one of the persisted record kinds.
func ValidRecordKind(kind string) bool {
	switch kind {
	case RecordKindHistory, RecordKindBacktest, RecordKindForecast, RecordKindInventory:
		return true
	}
	return false
}
