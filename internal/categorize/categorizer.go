// Package categorize discovers spending categories from free text concepts
// with TF-IDF features and k-means clustering.
package categorize

import (
	"encoding/json"
	"errors"
	"math/rand/v2"

	"smartbudget/internal/core"
	"smartbudget/internal/ledger"
)

// Config controls category discovery.
type Config struct {
	// RequestedK is the preferred number of clusters before clamping.
	RequestedK int    `yaml:"requested_k"`
	Seed       uint64 `yaml:"seed"`

	// MinDF is the minimum number of documents a term must appear in.
	MinDF   int `yaml:"min_df"`
	MaxIter int `yaml:"max_iter"`

	// StopWords replaces the built in Spanish list when non nil.
	StopWords []string `yaml:"stop_words"`
}

func DefaultConfig() Config {
	return Config{
		RequestedK: 8,
		Seed:       42,
		MinDF:      2,
		MaxIter:    300,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestedK <= 0 {
		c.RequestedK = d.RequestedK
	}
	if c.MinDF <= 0 {
		c.MinDF = d.MinDF
	}
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	return c
}

// ClampK bounds the cluster count to max(2, min(requested, max(2, n/20))).
// Ledgers with fewer rows than that get one cluster per row.
func ClampK(requested, n int) int {
	k := max(2, min(requested, max(2, n/20)))
	if n > 0 && k > n {
		k = n
	}
	return k
}

// Artifact is the fitted categorizer. It is immutable and safe for
// concurrent use.
type Artifact struct {
	vec       *vectorizer
	centroids [][]float64
	names     []string
	issue     error
}

// K returns the number of categories.
func (a *Artifact) K() int { return len(a.names) }

// Names returns category names indexed by category id.
func (a *Artifact) Names() []string {
	return append([]string(nil), a.names...)
}

// Name returns the name of category id, or "" when id is out of range.
func (a *Artifact) Name(id int) string {
	if id < 0 || id >= len(a.names) {
		return ""
	}
	return a.names[id]
}

// Vocabulary returns the TF-IDF terms in column order.
func (a *Artifact) Vocabulary() []string {
	if a.vec == nil {
		return nil
	}
	return append([]string(nil), a.vec.vocab...)
}

// IDF returns the inverse document frequency of each vocabulary term.
func (a *Artifact) IDF() []float64 {
	if a.vec == nil {
		return nil
	}
	return append([]float64(nil), a.vec.idf...)
}

// Centroid returns a copy of the centroid of category id.
func (a *Artifact) Centroid(id int) []float64 {
	if id < 0 || id >= len(a.centroids) {
		return nil
	}
	return clone(a.centroids[id])
}

// Fallback reports whether every transaction was assigned FallbackName.
func (a *Artifact) Fallback() bool { return a.issue != nil }

// Issue returns the *NamingIssue that caused the fallback, if any.
func (a *Artifact) Issue() error { return a.issue }

// Classify assigns new text to the nearest fitted category.
func (a *Artifact) Classify(concept, description string) (int, string) {
	if a.Fallback() || len(a.centroids) == 0 {
		return 0, FallbackName
	}
	doc := ledger.NormalizeText(concept + " " + description)
	id := nearest(a.vec.transform(doc), a.centroids)
	return id, a.names[id]
}

func (a *Artifact) MarshalJSON() ([]byte, error) {
	out := struct {
		K          int      `json:"k"`
		Names      []string `json:"names"`
		Vocabulary int      `json:"vocabulary_size"`
		Fallback   bool     `json:"fallback"`
	}{a.K(), a.names, len(a.Vocabulary()), a.Fallback()}
	return json.Marshal(out)
}

// Categorize clusters the transactions by concept and description and
// returns a copy of txns with CategoryID and CategoryName set. The input is
// not modified. When no category names can be derived every transaction is
// labelled FallbackName and the artifact reports Fallback.
func Categorize(txns []core.Transaction, cfg Config) ([]core.Transaction, *Artifact) {
	cfg = cfg.withDefaults()
	out := core.CloneTransactions(txns)
	if len(out) == 0 {
		return out, fallback(nil, &NamingIssue{Reason: "no transactions"})
	}

	stop := spanishStopWords
	if cfg.StopWords != nil {
		stop = cfg.StopWords
	}
	docs := make([]string, len(out))
	for i, tx := range out {
		docs[i] = tx.Text()
	}
	vec := fitVectorizer(docs, cfg.MinDF, stopSet(stop))
	if len(vec.vocab) == 0 {
		return labelAll(out), fallback(vec, &NamingIssue{Reason: "empty vocabulary"})
	}

	rows := vec.transformAll(docs)
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	centroids, labels, _ := kmeans(rows, ClampK(cfg.RequestedK, len(rows)), cfg.MaxIter, rng)

	names, err := attemptNaming(centroids, vec.vocab)
	var issue *NamingIssue
	if errors.As(err, &issue) {
		return labelAll(out), fallback(vec, issue)
	}

	for i := range out {
		out[i].CategoryID = labels[i]
		out[i].CategoryName = names[labels[i]]
	}
	return out, &Artifact{vec: vec, centroids: centroids, names: names}
}

func fallback(vec *vectorizer, issue *NamingIssue) *Artifact {
	return &Artifact{vec: vec, names: []string{FallbackName}, issue: issue}
}

func labelAll(txns []core.Transaction) []core.Transaction {
	for i := range txns {
		txns[i].CategoryID = 0
		txns[i].CategoryName = FallbackName
	}
	return txns
}
