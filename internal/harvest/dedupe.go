package harvest

// Merge combines record batches into the canonical set. Records are
// visited in the given order; the first record observed for each
// normalized (name, address) key wins and later duplicates are dropped,
// regardless of source. Records with an empty name are dropped before
// key computation. Output preserves first-seen order.
func Merge(batches ...[]Record) []Record {
	seen := make(map[string]struct{})
	merged := make([]Record, 0)
	for _, batch := range batches {
		for _, rec := range batch {
			key := rec.Key()
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, rec)
		}
	}
	return merged
}
