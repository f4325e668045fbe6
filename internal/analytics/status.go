package analytics

// WordStatus is the mastery classification of one word. It is never
// stored: it is always recomputed from the word's attempt history, so
// classifying the same attempts twice always yields the same label.
type WordStatus string

const (
	// StatusNew means the word has no recorded attempts yet.
	StatusNew WordStatus = "new"
	// StatusPromising means there is too little history to judge, or
	// nothing notable either way.
	StatusPromising WordStatus = "promising"
	// StatusStruggling means accuracy is below 60%.
	StatusStruggling WordStatus = "struggling"
	// StatusImproving means accuracy is healthy and the recent run is
	// all correct.
	StatusImproving WordStatus = "improving"
	// StatusInconsistent means recent results alternate with no clear
	// direction.
	StatusInconsistent WordStatus = "inconsistent"
	// StatusConsolidated means high accuracy with fast responses.
	StatusConsolidated WordStatus = "consolidated"
	// StatusCritical means very low accuracy or a run of recent misses.
	StatusCritical WordStatus = "critical"
)

// AllStatuses lists every classification, in display order.
var AllStatuses = []WordStatus{
	StatusNew,
	StatusPromising,
	StatusStruggling,
	StatusImproving,
	StatusInconsistent,
	StatusConsolidated,
	StatusCritical,
}

// TrendDirection describes how a metric moved between the older and
// the more recent half of a word's history.
//
// One convention is used everywhere: "improving" always means the
// learner got better. For accuracy that is a higher value, for
// response time a LOWER one (faster answers).
type TrendDirection string

const (
	// TrendImproving means the recent half is meaningfully better.
	TrendImproving TrendDirection = "improving"
	// TrendDeclining means the recent half is meaningfully worse.
	TrendDeclining TrendDirection = "declining"
	// TrendStable means no meaningful change either way.
	TrendStable TrendDirection = "stable"
)
