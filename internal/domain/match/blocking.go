package match

import (
	"fmt"
	"sort"

	"github.com/filamentproject/filament/internal/domain/index"
	"github.com/filamentproject/filament/internal/domain/record"
	"github.com/filamentproject/filament/internal/infrastructure/monitoring/logging"
	"github.com/filamentproject/filament/pkg/errors"
)

// Candidate is one missing-person case surviving blocking for a remains
// case, carrying the token evidence that produced it.
type Candidate struct {
	Missing *record.CaseRecord

	// SharedTokens are the distinctive tokens present on both sides, ordered
	// by descending rarity weight.
	SharedTokens []string

	// RarityWeightSum is Σ w(token) over SharedTokens.
	RarityWeightSum float64
}

// BlockStats describes one remains case's trip through blocking.
type BlockStats struct {
	DistinctiveTokens int
	PoolBeforeGates   int
	GatedOut          int
	Truncated         int
	UsedFallback      bool
}

// demographicBucketDegrees is the side length of the coarse geo grid used by
// the fallback index.  The grid only prefilters; the radius gate still runs.
const demographicBucketDegrees = 5.0

// noLocationBucket keys missing cases without coordinates; they are
// considered for every remains case the fallback serves.
const noLocationBucket = "nogeo"

// Generator produces bounded candidate pools from the published index.  It
// is built once per run against the immutable corpus snapshot and is safe
// for concurrent use by scoring workers.
type Generator struct {
	snap    *index.Snapshot
	params  Params
	logger  logging.Logger
	missing map[string]*record.CaseRecord

	// buckets is the sex × geo-bucket demographic index backing the
	// no-distinctive-tokens fallback.
	buckets map[string][]*record.CaseRecord
}

// NewGenerator builds a Generator over the run's index snapshot and the
// missing-side population.
func NewGenerator(snap *index.Snapshot, missing []*record.CaseRecord, params Params, logger logging.Logger) *Generator {
	g := &Generator{
		snap:    snap,
		params:  params,
		logger:  logger.Named("blocking"),
		missing: make(map[string]*record.CaseRecord, len(missing)),
		buckets: make(map[string][]*record.CaseRecord),
	}
	for _, m := range missing {
		g.missing[m.ID] = m
		key := bucketKey(m.Sex, m.Location)
		g.buckets[key] = append(g.buckets[key], m)
	}
	for _, list := range g.buckets {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	return g
}

func bucketKey(sex record.Sex, loc record.Location) string {
	if !loc.Known {
		return string(sex) + "|" + noLocationBucket
	}
	latB := int(loc.Lat / demographicBucketDegrees)
	lonB := int(loc.Lon / demographicBucketDegrees)
	return fmt.Sprintf("%s|%d:%d", sex, latB, lonB)
}

// Generate produces the gated, bounded candidate pool for one remains case.
func (g *Generator) Generate(u *record.CaseRecord) ([]Candidate, BlockStats) {
	var stats BlockStats

	distinctive := g.distinctiveTokens(u)
	stats.DistinctiveTokens = len(distinctive)

	var pool []Candidate
	if len(distinctive) > 0 {
		pool = g.poolFromPostings(u, distinctive, &stats)
	} else {
		stats.UsedFallback = true
		pool = g.poolFromDemographics(u, &stats)
	}

	pool, stats.Truncated = g.truncate(pool)
	if stats.Truncated > 0 {
		g.logger.Warn("candidate pool truncated",
			logging.String("remains_id", u.ID),
			logging.Int("kept", len(pool)),
			logging.Int("truncated", stats.Truncated),
			logging.Err(errors.New(errors.ErrCodePoolOverflow, "candidate pool exceeded cap").
				WithDetail("remains_id="+u.ID)),
		)
	}
	return pool, stats
}

// distinctiveTokens returns u's tokens with df below the rarity threshold,
// by ascending df, capped to the configured maximum.
func (g *Generator) distinctiveTokens(u *record.CaseRecord) []index.TokenInfo {
	infos := make([]index.TokenInfo, 0, len(u.Tokens))
	for _, tok := range u.Tokens {
		info, ok := g.snap.Lookup(tok)
		if !ok || info.DF >= g.params.RarityThreshold {
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].DF != infos[j].DF {
			return infos[i].DF < infos[j].DF
		}
		return infos[i].Token < infos[j].Token
	})
	if len(infos) > g.params.MaxDistinctiveTokens {
		infos = infos[:g.params.MaxDistinctiveTokens]
	}
	return infos
}

func (g *Generator) poolFromPostings(u *record.CaseRecord, distinctive []index.TokenInfo, stats *BlockStats) []Candidate {
	opposite := u.Side.Opposite()
	byID := make(map[string]*Candidate)
	for _, info := range distinctive {
		for _, ref := range g.snap.Postings(info.Handle) {
			if ref.Side != opposite {
				continue
			}
			m, ok := g.missing[ref.CaseID]
			if !ok {
				continue
			}
			c, ok := byID[ref.CaseID]
			if !ok {
				c = &Candidate{Missing: m}
				byID[ref.CaseID] = c
			}
			// Distinctive tokens arrive in ascending-df order, so shared
			// tokens accumulate by descending rarity weight.
			c.SharedTokens = append(c.SharedTokens, info.Token)
			c.RarityWeightSum += info.Weight
		}
	}
	stats.PoolBeforeGates = len(byID)

	pool := make([]Candidate, 0, len(byID))
	for _, c := range byID {
		if g.passesGates(u, c.Missing) {
			pool = append(pool, *c)
		}
	}
	stats.GatedOut = len(byID) - len(pool)
	return pool
}

// poolFromDemographics serves remains cases without distinctive tokens from
// the coarse sex × geo-bucket index instead of a full opposite-side scan.
func (g *Generator) poolFromDemographics(u *record.CaseRecord, stats *BlockStats) []Candidate {
	seen := make(map[string]bool)
	var pool []Candidate
	for _, key := range g.fallbackBucketKeys(u) {
		for _, m := range g.buckets[key] {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			stats.PoolBeforeGates++
			if g.passesGates(u, m) {
				pool = append(pool, Candidate{Missing: m})
			} else {
				stats.GatedOut++
			}
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].Missing.ID < pool[j].Missing.ID })
	return pool
}

// fallbackBucketKeys enumerates the buckets compatible with u: every
// compatible sex, crossed with u's geo bucket and its neighbors plus the
// no-location bucket.  A remains case without coordinates considers all geo
// buckets of the compatible sexes.
func (g *Generator) fallbackBucketKeys(u *record.CaseRecord) []string {
	sexes := []record.Sex{u.Sex, record.SexUnknown}
	if u.Sex == record.SexUnknown {
		sexes = []record.Sex{record.SexMale, record.SexFemale, record.SexUnknown}
	}

	var keys []string
	for _, sex := range sexes {
		if !u.Location.Known {
			prefix := string(sex) + "|"
			for key := range g.buckets {
				if len(key) > len(prefix) && key[:len(prefix)] == prefix {
					keys = append(keys, key)
				}
			}
			continue
		}
		latB := int(u.Location.Lat / demographicBucketDegrees)
		lonB := int(u.Location.Lon / demographicBucketDegrees)
		for dLat := -1; dLat <= 1; dLat++ {
			for dLon := -1; dLon <= 1; dLon++ {
				keys = append(keys, fmt.Sprintf("%s|%d:%d", sex, latB+dLat, lonB+dLon))
			}
		}
		keys = append(keys, string(sex)+"|"+noLocationBucket)
	}
	sort.Strings(keys)
	return keys
}

// passesGates applies the coarse compatibility gates.  Unknown values pass:
// gates only reject on positive evidence of incompatibility.
func (g *Generator) passesGates(u, m *record.CaseRecord) bool {
	if !u.Sex.Compatible(m.Sex) {
		return false
	}
	if !u.Age.Overlaps(m.Age, g.params.AgeSlackBelowYears, g.params.AgeSlackAboveYears) {
		return false
	}
	if !u.Height.OverlapsWithin(m.Height, g.params.HeightToleranceCM) {
		return false
	}
	// A person cannot go missing after their remains were found.
	if u.Date.Known && m.Date.Known && m.Date.Time.After(u.Date.Time) {
		return false
	}
	// The radius gate needs both locations and both dates: without dates the
	// timeline is unbounded, and a long-missing person may surface far from
	// where they disappeared.  Distance still costs in the geographic score.
	if u.Location.Known && m.Location.Known && u.Date.Known && m.Date.Known {
		d := HaversineKM(u.Location.Lat, u.Location.Lon, m.Location.Lat, m.Location.Lon)
		if d > g.params.MaxRadiusKM {
			return false
		}
	}
	return true
}

// truncate caps the pool to the configured maximum, keeping the entries with
// the strongest token evidence.  Ordering is fully deterministic.
func (g *Generator) truncate(pool []Candidate) ([]Candidate, int) {
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].RarityWeightSum != pool[j].RarityWeightSum {
			return pool[i].RarityWeightSum > pool[j].RarityWeightSum
		}
		if len(pool[i].SharedTokens) != len(pool[j].SharedTokens) {
			return len(pool[i].SharedTokens) > len(pool[j].SharedTokens)
		}
		return pool[i].Missing.ID < pool[j].Missing.ID
	})
	if len(pool) <= g.params.MaxPoolSize {
		return pool, 0
	}
	truncated := len(pool) - g.params.MaxPoolSize
	return pool[:g.params.MaxPoolSize], truncated
}
