// internal/pipeline/dedupe.go
package pipeline

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/valpere/MinwonScrapexter/pkg/types"
)

const (
	sequenceSeparator = ", "
	relatedSeparator  = " | "
)

// DefaultSimilarityThreshold is the name-similarity cutoff for the duplicate report
const DefaultSimilarityThreshold = 0.85

// RecordDeduplicator merges records sharing an identity key
type RecordDeduplicator struct {
	// Strict adds the detail link to the identity key so that distinct
	// services sharing a generic name and department are kept apart.
	Strict bool `yaml:"strict" json:"strict"`
}

// DedupeStats summarizes a deduplication pass
type DedupeStats struct {
	Input      int `json:"input"`
	Duplicates int `json:"duplicates"`
	Output     int `json:"output"`
}

func (rd *RecordDeduplicator) key(rec *types.ServiceRecord) string {
	if rd.Strict {
		return rec.IdentityKey() + "_" + rec.Link
	}
	return rec.IdentityKey()
}

// Deduplicate groups records by identity key and merges each duplicate into
// the first record seen for that key. Output order is first-seen key order.
func (rd *RecordDeduplicator) Deduplicate(records []*types.ServiceRecord) ([]*types.ServiceRecord, DedupeStats) {
	stats := DedupeStats{Input: len(records)}
	holders := make(map[string]*types.ServiceRecord, len(records))
	out := make([]*types.ServiceRecord, 0, len(records))

	for _, rec := range records {
		if rec == nil {
			continue
		}
		k := rd.key(rec)
		holder, ok := holders[k]
		if !ok {
			holders[k] = rec
			out = append(out, rec)
			continue
		}
		stats.Duplicates++
		mergeInto(holder, rec)
	}

	stats.Output = len(out)
	return out, stats
}

func mergeInto(holder, dup *types.ServiceRecord) {
	holder.SequenceID = unionList(holder.SequenceID, dup.SequenceID)

	if dup.Link != "" && dup.Link != holder.Link {
		if holder.Related == "" && holder.Link != "" {
			holder.Related = holder.Link
		}
		if holder.Related == "" {
			holder.Related = dup.Link
		} else {
			holder.Related += relatedSeparator + dup.Link
		}
	}

	if len([]rune(dup.Description)) > len([]rune(holder.Description)) {
		holder.Description = dup.Description
	}

	for _, f := range []types.Field{types.FieldProcedure, types.FieldApplyMethod, types.FieldDocuments, types.FieldFee} {
		if !holder.Filled(f) && dup.Filled(f) {
			holder.Set(f, dup.Get(f))
		}
	}
}

func unionList(a, b string) string {
	seen := make(map[string]bool)
	var items []string
	for _, part := range append(strings.Split(a, ","), strings.Split(b, ",")...) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		items = append(items, part)
	}
	return strings.Join(items, sequenceSeparator)
}

// SimilarPair reports two distinct names whose similarity exceeds the threshold
type SimilarPair struct {
	Index1     int     `json:"idx1"`
	Index2     int     `json:"idx2"`
	Name1      string  `json:"name1"`
	Name2      string  `json:"name2"`
	Similarity float64 `json:"similarity"`
	Dept1      string  `json:"dept1"`
	Dept2      string  `json:"dept2"`
}

// SimilarNames finds pairs of records with near-identical but not equal names
func SimilarNames(records []*types.ServiceRecord, threshold float64) []SimilarPair {
	groups := make(map[string][]int)
	var names []string
	for i, rec := range records {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			continue
		}
		if _, ok := groups[name]; !ok {
			names = append(names, name)
		}
		groups[name] = append(groups[name], i)
	}

	var pairs []SimilarPair
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			sim := matchr.JaroWinkler(names[i], names[j], false)
			if sim <= threshold {
				continue
			}
			for _, a := range groups[names[i]] {
				for _, b := range groups[names[j]] {
					pairs = append(pairs, SimilarPair{
						Index1:     a,
						Index2:     b,
						Name1:      names[i],
						Name2:      names[j],
						Similarity: sim,
						Dept1:      records[a].Department,
						Dept2:      records[b].Department,
					})
				}
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return pairs
}
