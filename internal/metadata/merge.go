package metadata

import "mediatrack/pkg/models"

// Merge concatenates candidate lists in argument order and drops every
// candidate whose (source, external id) pair was already seen.
func Merge(lists ...[]models.Candidate) []models.Candidate {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	seen := make(map[string]struct{}, total)
	out := make([]models.Candidate, 0, total)
	for _, l := range lists {
		for _, c := range l {
			key := c.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
