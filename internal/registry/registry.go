// Package registry holds the curated vendor list and the case-insensitive
// alias index used to resolve free-text vendor names to registry ids.
// A Registry is built once and never mutated, so it is shared across
// requests without locking.
package registry

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
)

//go:embed registry.yaml
var embedded []byte

// minContainedRunes is the shortest candidate allowed to match by "alias contains candidate",
// and the shortest key allowed to match by "candidate contains key".
const minContainedRunes = 3

// Entry is one known vendor.
type Entry struct {
	ID       string             `yaml:"id" json:"id"`
	Name     string             `yaml:"name" json:"name"`
	Aliases  []string           `yaml:"aliases" json:"aliases"`
	Category constants.Category `yaml:"category" json:"category"`
	Domains  []string           `yaml:"domains,omitempty" json:"domains,omitempty"`
}

// MatchKind says which rule produced a match.
type MatchKind string

const (
	MatchNone      MatchKind = "none"
	MatchExactName MatchKind = "exact_name"
	MatchAlias     MatchKind = "alias"
	MatchSubstring MatchKind = "substring"
)

// Scores are the confidences assigned per match rule. Higher is more certain; nothing more.
type Scores struct {
	Exact     float64
	Alias     float64
	Substring float64
}

// DefaultScores returns 1.0 / 0.9 / 0.6.
func DefaultScores() Scores {
	return Scores{Exact: 1.0, Alias: 0.9, Substring: 0.6}
}

// Match is the outcome of resolving one candidate name.
type Match struct {
	Entry Entry
	Kind  MatchKind
	Score float64
	Key   string // folded name/alias that matched
}

type matchKey struct {
	key string
	idx int
}

// Registry is the immutable vendor list plus its derived lookup tables.
type Registry struct {
	entries []Entry
	byID    map[string]int
	names   map[string]int
	aliases map[string]int
	keys    []matchKey // names and aliases, longest first, registry order on ties
	scores  Scores
}

type document struct {
	Version  int     `yaml:"version"`
	Services []Entry `yaml:"services"`
}

// LoadDefault builds the registry from the embedded vendor list.
func LoadDefault(scores Scores) (*Registry, error) {
	return Load(strings.NewReader(string(embedded)), scores)
}

// LoadFile builds the registry from a YAML file on disk.
func LoadFile(path string, scores Scores) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer f.Close()
	return Load(f, scores)
}

// Load decodes a YAML vendor list and builds the registry.
func Load(r io.Reader, scores Scores) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return New(doc.Services, scores)
}

// New builds a registry from entries. Ids must be unique and every entry needs a name.
func New(entries []Entry, scores Scores) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
		names:   make(map[string]int, len(entries)),
		aliases: make(map[string]int, len(entries)*3),
		scores:  scores,
	}
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		name := strings.TrimSpace(e.Name)
		if id == "" || name == "" {
			return nil, fmt.Errorf("registry entry %q: id and name are required", e.ID)
		}
		if _, dup := r.byID[Fold(id)]; dup {
			return nil, fmt.Errorf("registry entry %q: duplicate id", id)
		}
		cat, _ := constants.Canonicalize(string(e.Category))
		clean := Entry{ID: id, Name: name, Category: cat}
		for _, a := range e.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				clean.Aliases = append(clean.Aliases, a)
			}
		}
		for _, d := range e.Domains {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				clean.Domains = append(clean.Domains, d)
			}
		}

		idx := len(r.entries)
		r.entries = append(r.entries, clean)
		r.byID[Fold(id)] = idx
		if _, taken := r.names[Fold(name)]; !taken {
			r.names[Fold(name)] = idx
		}
		r.keys = append(r.keys, matchKey{key: Fold(name), idx: idx})
		for _, a := range clean.Aliases {
			k := Fold(a)
			if _, taken := r.aliases[k]; !taken {
				r.aliases[k] = idx
			}
			r.keys = append(r.keys, matchKey{key: k, idx: idx})
		}
	}
	sort.SliceStable(r.keys, func(i, j int) bool {
		return utf8.RuneCountInString(r.keys[i].key) > utf8.RuneCountInString(r.keys[j].key)
	})
	return r, nil
}

// Fold is the case-insensitive comparison key. Upper-then-lower makes
// Fold(s) == Fold(strings.ToUpper(s)) for every s.
func Fold(s string) string {
	return strings.ToLower(strings.ToUpper(strings.TrimSpace(s)))
}

// Match resolves candidate using exact name, exact alias, then substring containment.
func (r *Registry) Match(candidate string) (Match, bool) {
	c := Fold(candidate)
	if c == "" {
		return Match{Kind: MatchNone}, false
	}
	if idx, ok := r.names[c]; ok {
		return Match{Entry: r.entries[idx], Kind: MatchExactName, Score: r.scores.Exact, Key: c}, true
	}
	if idx, ok := r.aliases[c]; ok {
		return Match{Entry: r.entries[idx], Kind: MatchAlias, Score: r.scores.Alias, Key: c}, true
	}
	candidateLong := utf8.RuneCountInString(c) >= minContainedRunes
	for _, k := range r.keys {
		keyLong := utf8.RuneCountInString(k.key) >= minContainedRunes
		if (keyLong && strings.Contains(c, k.key)) || (candidateLong && strings.Contains(k.key, c)) {
			return Match{Entry: r.entries[k.idx], Kind: MatchSubstring, Score: r.scores.Substring, Key: k.key}, true
		}
	}
	return Match{Kind: MatchNone}, false
}

// Resolve returns the registry id for candidate and its match score, or (nil, 0).
func (r *Registry) Resolve(candidate string) (*string, float64) {
	m, ok := r.Match(candidate)
	if !ok {
		return nil, 0
	}
	id := m.Entry.ID
	return &id, m.Score
}

// Lookup finds an entry by id, case-insensitively.
func (r *Registry) Lookup(id string) (Entry, bool) {
	idx, ok := r.byID[Fold(id)]
	if !ok {
		return Entry{}, false
	}
	return cloneEntry(r.entries[idx]), true
}

// Entries returns a copy of every entry in registry order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

// Len is the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// Scores returns the configured match scores.
func (r *Registry) Scores() Scores { return r.scores }

// SenderKeys returns folded names, aliases and domains usable for sender-address matching.
// Names lose their spaces ("Google Cloud" -> "googlecloud") since addresses have none.
func (r *Registry) SenderKeys() []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(k string) {
		k = strings.ReplaceAll(Fold(k), " ", "")
		if utf8.RuneCountInString(k) < minContainedRunes {
			return
		}
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, e := range r.entries {
		add(e.Name)
		for _, a := range e.Aliases {
			add(a)
		}
		for _, d := range e.Domains {
			add(d)
		}
	}
	return out
}

func cloneEntry(e Entry) Entry {
	e.Aliases = append([]string(nil), e.Aliases...)
	e.Domains = append([]string(nil), e.Domains...)
	return e
}
