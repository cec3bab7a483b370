// Package index provides the corpus-wide rare-token index: an inverted index
// from token to the cases containing it, with a rarity weight per token.
//
// The index has an explicit build → publish → discard lifecycle scoped to one
// run.  A Builder accumulates the full corpus snapshot and produces an
// immutable Snapshot in one shot; the Store publishes snapshots by pointer
// swap so that concurrent readers never observe a partially built index.
// There is no incremental update path: a new run always rebuilds from
// scratch.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/filamentproject/filament/internal/domain/record"
	"github.com/filamentproject/filament/pkg/errors"
)

// Handle is an integer reference into the token arena.  Handles are only
// meaningful against the Snapshot that issued them.
type Handle int32

// Ref locates one case in one posting list.
type Ref struct {
	CaseID string
	Side   record.Side
}

// TokenInfo is the resolved view of one arena entry.
type TokenInfo struct {
	Token  string
	Handle Handle
	DF     int
	Weight float64
}

// Builder accumulates the corpus for one run and produces an immutable
// Snapshot.  Builders are single-use and not safe for concurrent use; build
// is the one exclusive phase of a run.
type Builder struct {
	weightName WeightFuncName
	weightFn   WeightFunc

	postings map[string][]Ref
	caseIDs  []string // "<side>/<id>" in insertion order, for the fingerprint
	built    bool
}

// NewBuilder constructs a Builder using the named rarity weight function.
func NewBuilder(weight WeightFuncName) (*Builder, error) {
	fn, err := NewWeightFunc(weight)
	if err != nil {
		return nil, err
	}
	return &Builder{
		weightName: weight,
		weightFn:   fn,
		postings:   make(map[string][]Ref),
	}, nil
}

// Add indexes one case record's token set.  Records must be added exactly
// once; df counts distinct cases across both sides.
func (b *Builder) Add(rec *record.CaseRecord) error {
	if b.built {
		return errors.New(errors.ErrCodeIndexStale, "builder already produced its snapshot")
	}
	if rec == nil {
		return errors.InvalidParam("record must not be nil")
	}
	b.caseIDs = append(b.caseIDs, string(rec.Side)+"/"+rec.ID)
	ref := Ref{CaseID: rec.ID, Side: rec.Side}
	for _, tok := range rec.Tokens {
		b.postings[tok] = append(b.postings[tok], ref)
	}
	return nil
}

// Build produces the immutable Snapshot and invalidates the Builder.
// The token arena is laid out as parallel arrays indexed by Handle, with a
// single flat posting array addressed by per-token offsets, keeping rebuild
// and lookup cost predictable at corpus scale.
func (b *Builder) Build() (*Snapshot, error) {
	if b.built {
		return nil, errors.New(errors.ErrCodeIndexStale, "builder already produced its snapshot")
	}
	b.built = true

	tokens := make([]string, 0, len(b.postings))
	for tok := range b.postings {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	corpusSize := len(b.caseIDs)
	snap := &Snapshot{
		weightName: b.weightName,
		handles:    make(map[string]Handle, len(tokens)),
		tokens:     tokens,
		df:         make([]int32, len(tokens)),
		weights:    make([]float64, len(tokens)),
		offsets:    make([]int32, len(tokens)+1),
		corpusSize: corpusSize,
	}

	total := 0
	for _, refs := range b.postings {
		total += len(refs)
	}
	snap.refs = make([]Ref, 0, total)

	for i, tok := range tokens {
		refs := b.postings[tok]
		sort.Slice(refs, func(a, c int) bool {
			if refs[a].Side != refs[c].Side {
				return refs[a].Side < refs[c].Side
			}
			return refs[a].CaseID < refs[c].CaseID
		})
		snap.handles[tok] = Handle(i)
		snap.df[i] = int32(len(refs))
		snap.weights[i] = b.weightFn(len(refs), corpusSize)
		snap.offsets[i] = int32(len(snap.refs))
		snap.refs = append(snap.refs, refs...)
	}
	snap.offsets[len(tokens)] = int32(len(snap.refs))

	snap.fingerprint = fingerprintCases(b.caseIDs)
	return snap, nil
}

// fingerprintCases derives a stable fingerprint of the corpus snapshot from
// the sorted set of case keys.  Scoring validates the run's corpus against
// this value to detect a stale index.
func fingerprintCases(keys []string) string {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)
	h := sha256.New()
	for _, k := range sorted {
		h.Write([]byte(k))
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "n=%d", len(sorted))
	return hex.EncodeToString(h.Sum(nil))
}

// Snapshot is the immutable, published form of the rare-token index.  All
// methods are safe for concurrent use; nothing mutates a Snapshot after
// Build returns it.
type Snapshot struct {
	weightName WeightFuncName

	handles map[string]Handle
	tokens  []string
	df      []int32
	weights []float64

	// Flat posting storage: postings for handle h are
	// refs[offsets[h]:offsets[h+1]].
	offsets []int32
	refs    []Ref

	corpusSize  int
	fingerprint string
}

// Lookup resolves a token to its arena entry.  O(1) amortized.
func (s *Snapshot) Lookup(token string) (TokenInfo, bool) {
	h, ok := s.handles[token]
	if !ok {
		return TokenInfo{}, false
	}
	return TokenInfo{
		Token:  token,
		Handle: h,
		DF:     int(s.df[h]),
		Weight: s.weights[h],
	}, true
}

// Postings returns the posting list for a handle.  The returned slice
// aliases the snapshot's storage and must not be modified.
func (s *Snapshot) Postings(h Handle) []Ref {
	if h < 0 || int(h) >= len(s.tokens) {
		return nil
	}
	return s.refs[s.offsets[h]:s.offsets[h+1]]
}

// TokenCount returns the number of distinct tokens in the arena.
func (s *Snapshot) TokenCount() int { return len(s.tokens) }

// CorpusSize returns the number of cases indexed, across both sides.
func (s *Snapshot) CorpusSize() int { return s.corpusSize }

// Fingerprint returns the corpus fingerprint the snapshot was built from.
func (s *Snapshot) Fingerprint() string { return s.fingerprint }

// WeightFuncName returns the rarity function the snapshot was built with.
func (s *Snapshot) WeightFuncName() WeightFuncName { return s.weightName }

// VerifyFingerprint returns ErrCodeIndexStale when the snapshot does not
// match the given corpus fingerprint.  A stale index is fatal to the run.
func (s *Snapshot) VerifyFingerprint(corpusFingerprint string) error {
	if s.fingerprint != corpusFingerprint {
		return errors.New(errors.ErrCodeIndexStale, "index does not match corpus snapshot").
			WithDetail(fmt.Sprintf("index=%.12s corpus=%.12s", s.fingerprint, corpusFingerprint))
	}
	return nil
}

// FingerprintRecords computes the corpus fingerprint for a record set, using
// the same derivation as Build.  The order of records does not matter.
func FingerprintRecords(recs []*record.CaseRecord) string {
	keys := make([]string, 0, len(recs))
	for _, r := range recs {
		keys = append(keys, string(r.Side)+"/"+r.ID)
	}
	return fingerprintCases(keys)
}
