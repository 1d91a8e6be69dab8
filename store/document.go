package store

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nathoo/wayfarer/types"
)

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// protectedFields cannot be written through a mutation.
var protectedFields = map[string]bool{
	"id":   true,
	"name": true,
}

// Mutation is a partial update of a player document. Set replaces values,
// Inc adds integer deltas, Push appends to arrays. Paths are dotted, e.g.
// "inventory.potion_health". Backends apply Set, then Inc, then Push.
type Mutation struct {
	Set  map[string]any
	Inc  map[string]int
	Push map[string][]any
}

// SetField records a replacement.
func (m *Mutation) SetField(path string, v any) *Mutation {
	if m.Set == nil {
		m.Set = map[string]any{}
	}
	m.Set[path] = v
	return m
}

// IncField records an integer delta. Deltas on the same path accumulate.
func (m *Mutation) IncField(path string, delta int) *Mutation {
	if m.Inc == nil {
		m.Inc = map[string]int{}
	}
	m.Inc[path] += delta
	return m
}

// PushField records an append.
func (m *Mutation) PushField(path string, v any) *Mutation {
	if m.Push == nil {
		m.Push = map[string][]any{}
	}
	m.Push[path] = append(m.Push[path], v)
	return m
}

// Empty reports whether the mutation changes nothing.
func (m Mutation) Empty() bool {
	return len(m.Set) == 0 && len(m.Inc) == 0 && len(m.Push) == 0
}

// SetPaths returns the Set paths in sorted order.
func (m Mutation) SetPaths() []string { return sortedKeys(m.Set) }

// IncPaths returns the Inc paths in sorted order.
func (m Mutation) IncPaths() []string { return sortedKeys(m.Inc) }

// PushPaths returns the Push paths in sorted order.
func (m Mutation) PushPaths() []string { return sortedKeys(m.Push) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SplitPath validates a dotted path and returns its segments.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidField)
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if !segmentPattern.MatchString(s) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidField, path)
		}
	}
	if protectedFields[segs[0]] {
		return nil, fmt.Errorf("%w: %q is read-only", ErrInvalidField, path)
	}
	return segs, nil
}

// Validate checks every path and rejects overlapping paths across the
// three operations.
func (m Mutation) Validate() error {
	var all []string
	for _, group := range [][]string{m.SetPaths(), m.IncPaths(), m.PushPaths()} {
		for _, p := range group {
			if _, err := SplitPath(p); err != nil {
				return err
			}
			all = append(all, p)
		}
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if overlaps(all[i], all[j]) {
				return fmt.Errorf("%w: %q conflicts with %q", ErrInvalidField, all[i], all[j])
			}
		}
	}
	return nil
}

func overlaps(a, b string) bool {
	return a == b || strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}

// Encode converts a value to its generic JSON document form.
func Encode(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// DecodePlayer parses a stored player document and validates it.
func DecodePlayer(data []byte) (*types.Player, error) {
	var p types.Player
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	p.EnsureMaps()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &p, nil
}

// MarshalPlayer encodes a player with all maps present.
func MarshalPlayer(p *types.Player) ([]byte, error) {
	c := p.Clone()
	c.EnsureMaps()
	return json.Marshal(c)
}

// NameKey is the normalized form used for name lookups.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ApplyDocument applies m to a generic document in place. Missing
// intermediate objects are created.
func ApplyDocument(doc map[string]any, m Mutation) error {
	if err := m.Validate(); err != nil {
		return err
	}
	for _, path := range m.SetPaths() {
		v, err := normalize(m.Set[path])
		if err != nil {
			return err
		}
		segs, _ := SplitPath(path)
		parent, err := walk(doc, segs)
		if err != nil {
			return err
		}
		parent[segs[len(segs)-1]] = v
	}
	for _, path := range m.IncPaths() {
		segs, _ := SplitPath(path)
		parent, err := walk(doc, segs)
		if err != nil {
			return err
		}
		key := segs[len(segs)-1]
		var cur float64
		switch v := parent[key].(type) {
		case nil:
		case float64:
			cur = v
		default:
			return fmt.Errorf("%w: %q is not numeric", ErrInvalidField, path)
		}
		parent[key] = cur + float64(m.Inc[path])
	}
	for _, path := range m.PushPaths() {
		segs, _ := SplitPath(path)
		parent, err := walk(doc, segs)
		if err != nil {
			return err
		}
		key := segs[len(segs)-1]
		var arr []any
		switch v := parent[key].(type) {
		case nil:
		case []any:
			arr = v
		default:
			return fmt.Errorf("%w: %q is not an array", ErrInvalidField, path)
		}
		for _, item := range m.Push[path] {
			n, err := normalize(item)
			if err != nil {
				return err
			}
			arr = append(arr, n)
		}
		parent[key] = arr
	}
	return nil
}

// walk returns the object holding the last segment, creating parents.
func walk(doc map[string]any, segs []string) (map[string]any, error) {
	cur := doc
	for _, s := range segs[:len(segs)-1] {
		switch next := cur[s].(type) {
		case map[string]any:
			cur = next
		case nil:
			m := map[string]any{}
			cur[s] = m
			cur = m
		default:
			return nil, fmt.Errorf("%w: %q is not an object", ErrInvalidField, s)
		}
	}
	return cur, nil
}

// normalize round-trips v through JSON so stored values match what a
// database backend would hold.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return out, nil
}
