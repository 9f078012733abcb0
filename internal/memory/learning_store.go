// Package memory implements the Memory Subsystem: an
// append-only Learning Store (learnings + dead ends), the single-file
// overwritten Briefing with its compression algorithm and canonical prompt
// rendering, and a best-effort Prefetch Dispatcher. One package, two
// orthogonal persistence disciplines: append-only JSONL records and a
// single atomically replaced briefing file.
package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sunwell/internal/events"
	"sunwell/internal/types"
)

// LearningStore holds the append-only Learning and DeadEnd records for one
// project, backed by three JSONL files under <project>/.sunwell/memory/:
// decisions.jsonl, learnings.jsonl (every other category) and
// dead_ends.jsonl.
type LearningStore struct {
	Dir     string
	Emitter events.Emitter

	mu           sync.Mutex
	learnings    []types.Learning
	deadEnds     []types.DeadEnd
	seenLearning map[string]bool
	seenDeadEnd  map[string]bool
}

// New returns a LearningStore rooted at dir (the project's memory
// directory). Call LoadFromDisk to populate it from existing JSONL files.
func New(dir string, emitter events.Emitter) *LearningStore {
	return &LearningStore{
		Dir:          dir,
		Emitter:      emitter,
		seenLearning: make(map[string]bool),
		seenDeadEnd:  make(map[string]bool),
	}
}

func (s *LearningStore) learningsPath() string { return filepath.Join(s.Dir, "learnings.jsonl") }
func (s *LearningStore) decisionsPath() string { return filepath.Join(s.Dir, "decisions.jsonl") }
func (s *LearningStore) deadEndsPath() string  { return filepath.Join(s.Dir, "dead_ends.jsonl") }

// pathFor routes a learning to its category file: decisions get their own
// JSONL; everything else shares learnings.jsonl.
func (s *LearningStore) pathFor(l types.Learning) string {
	switch l.Category {
	case "decision", "decisions":
		return s.decisionsPath()
	default:
		return s.learningsPath()
	}
}

// LoadFromDisk implements load_from_disk(): reads both JSONL files into
// memory, rebuilding the dedup index from each record's content hash.
func (s *LearningStore) LoadFromDisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.learnings = nil
	s.deadEnds = nil
	s.seenLearning = make(map[string]bool)
	s.seenDeadEnd = make(map[string]bool)

	for _, path := range []string{s.learningsPath(), s.decisionsPath()} {
		if err := loadJSONL(path, func(line []byte) error {
			var l types.Learning
			if err := json.Unmarshal(line, &l); err != nil {
				return err
			}
			s.learnings = append(s.learnings, l)
			s.seenLearning[l.FactHash()] = true
			return nil
		}); err != nil {
			return fmt.Errorf("memory: load %s: %w", filepath.Base(path), err)
		}
	}

	if err := loadJSONL(s.deadEndsPath(), func(line []byte) error {
		var d types.DeadEnd
		if err := json.Unmarshal(line, &d); err != nil {
			return err
		}
		s.deadEnds = append(s.deadEnds, d)
		s.seenDeadEnd[d.ApproachHash()] = true
		return nil
	}); err != nil {
		return fmt.Errorf("memory: load dead ends: %w", err)
	}
	return nil
}

func loadJSONL(path string, onLine func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := onLine(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Add implements add(Learning): deduplicates by FactHash within category
// and, when novel,
// appends one line to its category's file (see pathFor). Returns false when the learning was
// suppressed as a duplicate.
func (s *LearningStore) Add(l types.Learning) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := l.FactHash()
	if s.seenLearning[hash] {
		return false, nil
	}
	if err := appendJSONL(s.pathFor(l), l); err != nil {
		return false, fmt.Errorf("memory: append learning: %w", err)
	}
	s.seenLearning[hash] = true
	s.learnings = append(s.learnings, l)
	s.emit(types.EventMemoryLearning, map[string]any{"category": l.Category})
	return true, nil
}

// AddDeadEnd appends a DeadEnd, deduplicated by ApproachHash.
func (s *LearningStore) AddDeadEnd(d types.DeadEnd) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := d.ApproachHash()
	if s.seenDeadEnd[hash] {
		return false, nil
	}
	if err := appendJSONL(s.deadEndsPath(), d); err != nil {
		return false, fmt.Errorf("memory: append dead end: %w", err)
	}
	s.seenDeadEnd[hash] = true
	s.deadEnds = append(s.deadEnds, d)
	s.emit(types.EventMemoryDeadEnd, map[string]any{"approach": d.Approach})
	return true, nil
}

func appendJSONL(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// SaveToDisk implements save_to_disk(). Add already persists each record
// immediately, so this is a defensive no-op retained for callers that want
// an explicit flush point before exiting.
func (s *LearningStore) SaveToDisk() error { return nil }

// GetByIDs implements get_by_ids([id]).
func (s *LearningStore) GetByIDs(ids []string) []types.Learning {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []types.Learning
	for _, l := range s.learnings {
		if want[l.ID] {
			out = append(out, l)
		}
	}
	return out
}

// DeadEnds returns every recorded DeadEnd, most recent first.
func (s *LearningStore) DeadEnds() []types.DeadEnd {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.DeadEnd, len(s.deadEnds))
	copy(out, s.deadEnds)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Query implements query(text, limit) -> [Learning]: token-overlap ranking
// with TF-IDF-style weighting over the in-memory corpus, since no embedder
// is wired.
func (s *LearningStore) Query(text string, limit int) []types.Learning {
	s.mu.Lock()
	corpus := make([]types.Learning, len(s.learnings))
	copy(corpus, s.learnings)
	s.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	queryTerms := tokenize(text)
	if len(queryTerms) == 0 || len(corpus) == 0 {
		return nil
	}

	docTerms := make([][]string, len(corpus))
	df := make(map[string]int)
	for i, l := range corpus {
		terms := tokenize(l.Fact)
		docTerms[i] = terms
		seen := make(map[string]bool)
		for _, t := range terms {
			if !seen[t] {
				df[t]++
				seen[t] = true
			}
		}
	}
	n := float64(len(corpus))

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, 0, len(corpus))
	for i, terms := range docTerms {
		tf := make(map[string]int)
		for _, t := range terms {
			tf[t]++
		}
		var score float64
		for _, qt := range queryTerms {
			count := tf[qt]
			if count == 0 {
				continue
			}
			idf := math.Log(1 + n/float64(1+df[qt]))
			score += float64(count) * idf
		}
		if score > 0 {
			score *= corpus[i].Confidence + 0.01 // confidence-weighted
			scores = append(scores, scored{idx: i, score: score})
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if len(scores) > limit {
		scores = scores[:limit]
	}
	out := make([]types.Learning, len(scores))
	for i, sc := range scores {
		out[i] = corpus[sc.idx]
	}
	return out
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

func (s *LearningStore) emit(t types.EventType, data map[string]any) {
	if s.Emitter == nil {
		return
	}
	_ = s.Emitter.Emit(t, data)
}
