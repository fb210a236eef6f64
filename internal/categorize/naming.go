package categorize

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// FallbackName labels every transaction when clusters cannot be named.
	FallbackName = "categoria"

	topTerms  = 5
	nameTerms = 2
)

// NamingIssue reports that category names could not be derived. It is
// recovered from by the categorizer and never reaches callers as a failure.
type NamingIssue struct {
	Reason string
}

func (e *NamingIssue) Error() string {
	return "category naming failed: " + e.Reason
}

// attemptNaming names each centroid after its two heaviest terms among the
// top five. Ties are broken by vocabulary order; terms with zero weight are
// ignored. Centroids left without terms are called cat_<id>.
func attemptNaming(centroids [][]float64, vocab []string) ([]string, error) {
	if len(vocab) == 0 {
		return nil, &NamingIssue{Reason: "empty vocabulary"}
	}
	names := make([]string, len(centroids))
	for id, centroid := range centroids {
		if len(centroid) != len(vocab) {
			return nil, &NamingIssue{Reason: fmt.Sprintf("centroid %d has %d weights for %d terms", id, len(centroid), len(vocab))}
		}
		order := make([]int, len(vocab))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return centroid[order[a]] > centroid[order[b]]
		})
		if len(order) > topTerms {
			order = order[:topTerms]
		}

		terms := make([]string, 0, nameTerms)
		for _, i := range order {
			if centroid[i] <= 0 || vocab[i] == "" {
				continue
			}
			terms = append(terms, vocab[i])
			if len(terms) == nameTerms {
				break
			}
		}
		if len(terms) == 0 {
			names[id] = fmt.Sprintf("cat_%d", id)
			continue
		}
		names[id] = strings.Join(terms, ", ")
	}
	return names, nil
}
