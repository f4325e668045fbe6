// Package export packages the application state into one
// self-describing document and applies such documents back, either
// replacing or merging with local data.
package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/itabot/pkg/models"
)

// FormatVersion tags every export document. Importers treat it as a
// hint for which merge semantics apply; unknown fields in any version
// are tolerated and ignored.
const FormatVersion = "2"

// Metadata describes an export document.
type Metadata struct {
	ExportedAt time.Time `json:"exportedAt"`
	TotalWords int       `json:"totalWords"`
	Version    string    `json:"version"`
	ExportID   string    `json:"exportId,omitempty"`
}

// Document is the interchange format: everything needed to rebuild the
// application state elsewhere.
type Document struct {
	Metadata        Metadata                          `json:"metadata"`
	Words           []models.Word                     `json:"words"`
	Statistics      *models.Statistics                `json:"statistics"`
	TestHistory     []models.TestHistoryItem          `json:"testHistory"`
	WordPerformance map[string]models.WordPerformance `json:"wordPerformance"`
}

// State is the in-memory application state the assembler works from.
type State struct {
	Words           []models.Word
	Statistics      *models.Statistics
	TestHistory     []models.TestHistoryItem
	WordPerformance map[string]models.WordPerformance
}

// Mode selects how an import treats existing local data.
type Mode string

const (
	// ModeOverwrite replaces all local data with the document.
	ModeOverwrite Mode = "overwrite"
	// ModeMerge unions the document into local data, keeping existing
	// entries on conflict.
	ModeMerge Mode = "merge"
)

// ImportResult accounts for what an import did. Per-record failures
// are skipped and counted here, never fatal to the batch.
type ImportResult struct {
	Mode           Mode `json:"mode"`
	WordsAdded     int  `json:"words_added"`
	TestsAdded     int  `json:"tests_added"`
	AttemptsAdded  int  `json:"attempts_added"`
	SkippedRecords int  `json:"skipped_records"`
}

// ValidationError means the document failed top-level shape checks.
// It is fatal to the whole import: nothing is mutated when it is
// returned.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid export document: " + strings.Join(e.Problems, "; ")
}

// Assemble builds an export document from the current state.
func Assemble(state State, now time.Time) Document {
	doc := Document{
		Metadata: Metadata{
			ExportedAt: now,
			TotalWords: len(state.Words),
			Version:    FormatVersion,
			ExportID:   uuid.NewString(),
		},
		Words:           state.Words,
		Statistics:      state.Statistics,
		TestHistory:     state.TestHistory,
		WordPerformance: state.WordPerformance,
	}
	if doc.Words == nil {
		doc.Words = []models.Word{}
	}
	if doc.TestHistory == nil {
		doc.TestHistory = []models.TestHistoryItem{}
	}
	if doc.WordPerformance == nil {
		doc.WordPerformance = map[string]models.WordPerformance{}
	}
	return doc
}

// Marshal renders a document as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export document: %v", err)
	}
	return data, nil
}

// Parse decodes and validates an export document. The returned error
// is a *ValidationError when the payload fails shape checks.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("not a JSON document: %v", err)}}
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate runs the top-level shape checks. Validation is
// all-or-nothing: a document that fails here must not be applied at
// all. Missing optional collections are tolerated and treated as
// empty.
func (d *Document) Validate() error {
	var problems []string
	if d.Metadata.Version == "" {
		problems = append(problems, "metadata.version is missing")
	}
	if d.Metadata.TotalWords < 0 {
		problems = append(problems, "metadata.totalWords is negative")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	if d.Words == nil {
		d.Words = []models.Word{}
	}
	if d.TestHistory == nil {
		d.TestHistory = []models.TestHistoryItem{}
	}
	if d.WordPerformance == nil {
		d.WordPerformance = map[string]models.WordPerformance{}
	}
	return nil
}

// Apply imports a document into the existing state. The document must
// already be validated (Parse does this); per-record problems inside
// it are skipped and counted.
func Apply(existing State, doc Document, mode Mode) (State, ImportResult, error) {
	switch mode {
	case ModeOverwrite:
		return applyOverwrite(doc)
	case ModeMerge:
		return applyMerge(existing, doc)
	default:
		return existing, ImportResult{}, fmt.Errorf("unknown import mode %q", mode)
	}
}

func applyOverwrite(doc Document) (State, ImportResult, error) {
	result := ImportResult{Mode: ModeOverwrite}

	state := State{
		Statistics:      doc.Statistics,
		WordPerformance: map[string]models.WordPerformance{},
	}
	if state.Statistics == nil {
		state.Statistics = models.NewStatistics()
	}

	for _, w := range doc.Words {
		if w.ID == "" || w.English == "" {
			result.SkippedRecords++
			continue
		}
		state.Words = append(state.Words, w)
		result.WordsAdded++
	}
	for _, item := range doc.TestHistory {
		if item.ID == "" || item.TotalWords <= 0 {
			result.SkippedRecords++
			continue
		}
		state.TestHistory = append(state.TestHistory, item)
		result.TestsAdded++
	}
	wordIDs := make(map[string]bool, len(state.Words))
	for _, w := range state.Words {
		wordIDs[w.ID] = true
	}

	for id, perf := range doc.WordPerformance {
		if id == "" || perf.WordID == "" || !wordIDs[id] {
			result.SkippedRecords++
			continue
		}
		perf.Attempts, _ = normalizeAttempts(perf.Attempts)
		perf.Recompute()
		state.WordPerformance[id] = perf
		result.AttemptsAdded += len(perf.Attempts)
	}
	return state, result, nil
}

func applyMerge(existing State, doc Document) (State, ImportResult, error) {
	result := ImportResult{Mode: ModeMerge}

	state := State{
		Words:           append([]models.Word(nil), existing.Words...),
		Statistics:      existing.Statistics,
		TestHistory:     append([]models.TestHistoryItem(nil), existing.TestHistory...),
		WordPerformance: map[string]models.WordPerformance{},
	}
	if state.Statistics == nil {
		state.Statistics = models.NewStatistics()
	}
	for id, perf := range existing.WordPerformance {
		state.WordPerformance[id] = perf
	}

	// Words union by case-insensitive english; the existing entry wins
	// on conflict.
	seen := make(map[string]bool, len(state.Words))
	for _, w := range state.Words {
		seen[strings.ToLower(w.English)] = true
	}
	for _, w := range doc.Words {
		if w.ID == "" || w.English == "" {
			result.SkippedRecords++
			continue
		}
		key := strings.ToLower(w.English)
		if seen[key] {
			continue
		}
		seen[key] = true
		state.Words = append(state.Words, w)
		result.WordsAdded++
	}

	// Test history union by id.
	haveTest := make(map[string]bool, len(state.TestHistory))
	for _, item := range state.TestHistory {
		haveTest[item.ID] = true
	}
	for _, item := range doc.TestHistory {
		if item.ID == "" || item.TotalWords <= 0 {
			result.SkippedRecords++
			continue
		}
		if haveTest[item.ID] {
			continue
		}
		haveTest[item.ID] = true
		state.TestHistory = append(state.TestHistory, item)
		result.TestsAdded++
	}
	sort.SliceStable(state.TestHistory, func(i, j int) bool {
		return state.TestHistory[i].Timestamp.Before(state.TestHistory[j].Timestamp)
	})

	// Performance union: attempt lists are merged chronologically and
	// de-duplicated on identical timestamp and content. When the word
	// behind an incoming entry lost the union to an existing word with a
	// different id, its attempts re-attach to the surviving word; an
	// entry with no surviving word at all is skipped.
	wordIDs := make(map[string]bool, len(state.Words))
	englishToID := make(map[string]string, len(state.Words))
	for _, w := range state.Words {
		wordIDs[w.ID] = true
		englishToID[strings.ToLower(w.English)] = w.ID
	}
	docEnglish := make(map[string]string, len(doc.Words))
	for _, w := range doc.Words {
		docEnglish[w.ID] = strings.ToLower(w.English)
	}

	for id, incoming := range doc.WordPerformance {
		if id == "" || incoming.WordID == "" {
			result.SkippedRecords++
			continue
		}
		targetID := id
		if !wordIDs[targetID] {
			survivor, ok := englishToID[docEnglish[id]]
			if docEnglish[id] == "" || !ok {
				result.SkippedRecords++
				continue
			}
			targetID = survivor
		}
		incoming.WordID = targetID
		current, ok := state.WordPerformance[targetID]
		if !ok {
			incoming.Attempts, _ = normalizeAttempts(incoming.Attempts)
			incoming.Recompute()
			state.WordPerformance[targetID] = incoming
			result.AttemptsAdded += len(incoming.Attempts)
			continue
		}
		merged, added := mergeAttempts(current.Attempts, incoming.Attempts)
		current.Attempts = merged
		current.Recompute()
		state.WordPerformance[targetID] = current
		result.AttemptsAdded += added
	}

	return state, result, nil
}

// mergeAttempts unions two attempt lists, dropping duplicates with the
// same timestamp and content, and returns how many new attempts the
// incoming list contributed.
func mergeAttempts(current, incoming []models.Attempt) ([]models.Attempt, int) {
	keys := make(map[string]bool, len(current))
	for _, a := range current {
		keys[attemptKey(a)] = true
	}
	merged := append([]models.Attempt(nil), current...)
	added := 0
	for _, a := range incoming {
		key := attemptKey(a)
		if keys[key] {
			continue
		}
		keys[key] = true
		merged = append(merged, a)
		added++
	}
	merged, _ = normalizeAttempts(merged)
	return merged, added
}

// normalizeAttempts sorts attempts chronologically and drops exact
// duplicates.
func normalizeAttempts(attempts []models.Attempt) ([]models.Attempt, int) {
	seen := make(map[string]bool, len(attempts))
	clean := make([]models.Attempt, 0, len(attempts))
	dropped := 0
	for _, a := range attempts {
		key := attemptKey(a)
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		clean = append(clean, a)
	}
	sort.SliceStable(clean, func(i, j int) bool {
		return clean[i].Timestamp.Before(clean[j].Timestamp)
	})
	return clean, dropped
}

// attemptKey identifies an attempt by timestamp plus full content.
func attemptKey(a models.Attempt) string {
	return fmt.Sprintf("%d|%t|%d|%t|%d",
		a.Timestamp.UTC().UnixNano(), a.Correct, a.TimeSpentMs, a.UsedHint, a.HintsCount)
}
