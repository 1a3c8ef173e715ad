// Package diff computes structural differences between two JSON documents.
//
// Arrays are compared as multisets: elements that are deeply equal (up to the
// order of any nested arrays) match regardless of position, so a reordered
// array is never reported as changed.
package diff

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies a single change.
type Kind string

const (
	Added       Kind = "added"
	Removed     Kind = "removed"
	Changed     Kind = "changed"
	TypeChanged Kind = "type_changed"
)

// maxPairings bounds the leftover element pairs scored by similarity in a
// single array, roughly 256 removed against 256 added.
const maxPairings = 1 << 16

// Change is one difference at Path. Old is nil for Added, New is nil for Removed.
type Change struct {
	Path string `json:"path" yaml:"path"`
	Kind Kind   `json:"kind" yaml:"kind"`
	Old  any    `json:"old" yaml:"old"`
	New  any    `json:"new" yaml:"new"`
}

// Result is the ordered list of changes turning a into b.
type Result struct {
	Changes []Change `json:"changes" yaml:"changes"`
}

// Empty reports whether the two documents were equal.
func (r *Result) Empty() bool { return len(r.Changes) == 0 }

// Counts returns the number of changes per kind.
func (r *Result) Counts() map[Kind]int {
	out := make(map[Kind]int, 4)
	for _, c := range r.Changes {
		out[c.Kind]++
	}
	return out
}

// Compare returns the differences between a and b.
func Compare(a, b any) *Result {
	r := &Result{Changes: []Change{}}
	r.walk("$", a, b)
	return r
}

// Equal reports whether a and b are deeply equal up to array order.
func Equal(a, b any) bool {
	return canonical(a) == canonical(b)
}

func (r *Result) add(kind Kind, path string, from, to any) {
	r.Changes = append(r.Changes, Change{Path: path, Kind: kind, Old: from, New: to})
}

func (r *Result) walk(path string, a, b any) {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		r.add(TypeChanged, path, a, b)
		return
	}
	switch ka {
	case "object":
		r.object(path, a.(map[string]any), b.(map[string]any))
	case "array":
		r.array(path, a.([]any), b.([]any))
	default:
		if !scalarEqual(ka, a, b) {
			r.add(Changed, path, a, b)
		}
	}
}

func (r *Result) object(path string, a, b map[string]any) {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		av, inA := a[k]
		bv, inB := b[k]
		p := fieldPath(path, k)
		switch {
		case !inB:
			r.add(Removed, p, av, nil)
		case !inA:
			r.add(Added, p, nil, bv)
		default:
			r.walk(p, av, bv)
		}
	}
}

func (r *Result) array(path string, a, b []any) {
	cb := make(map[string][]int, len(b))
	for j, v := range b {
		c := canonical(v)
		cb[c] = append(cb[c], j)
	}
	matched := make([]bool, len(b))
	var restA []int
	for i, v := range a {
		c := canonical(v)
		if q := cb[c]; len(q) > 0 {
			matched[q[0]] = true
			cb[c] = q[1:]
			continue
		}
		restA = append(restA, i)
	}

	// Pair leftover containers with their most similar counterpart so that
	// a single edited field inside an array element is reported in place.
	// Past maxPairings candidate pairs the leftovers are reported as
	// removed and added without pairing.
	var restB []int
	for j, ok := range matched {
		if !ok {
			restB = append(restB, j)
		}
	}
	if len(restA)*len(restB) > maxPairings {
		for _, i := range restA {
			r.add(Removed, indexPath(path, i), a[i], nil)
		}
		for _, j := range restB {
			r.add(Added, indexPath(path, j), nil, b[j])
		}
		return
	}

	prints := make(map[int]*fingerprint, len(restB))
	for _, j := range restB {
		if isContainer(b[j]) {
			prints[j] = fingerprintOf(b[j])
		}
	}
	for _, i := range restA {
		p := indexPath(path, i)
		if !isContainer(a[i]) {
			r.add(Removed, p, a[i], nil)
			continue
		}
		fa := fingerprintOf(a[i])
		best, bestScore := -1, 0
		for _, j := range restB {
			fb, ok := prints[j]
			if matched[j] || !ok {
				continue
			}
			if s := fa.similarity(fb); s > bestScore {
				best, bestScore = j, s
			}
		}
		if best < 0 {
			r.add(Removed, p, a[i], nil)
			continue
		}
		matched[best] = true
		r.walk(p, a[i], b[best])
	}
	for j, ok := range matched {
		if !ok {
			r.add(Added, indexPath(path, j), nil, b[j])
		}
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64, int32, uint, uint64, uint32:
		return "number"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func isContainer(v any) bool {
	k := kindOf(v)
	return k == "object" || k == "array"
}

func scalarEqual(kind string, a, b any) bool {
	switch kind {
	case "null":
		return true
	case "number":
		na, okA := numberKey(a)
		nb, okB := numberKey(b)
		if okA && okB {
			return na == nb
		}
		return fmt.Sprint(a) == fmt.Sprint(b)
	case "boolean", "string":
		return a == b
	default:
		return reflect.DeepEqual(a, b)
	}
}

// numberKey returns a normalised decimal spelling of v, so that 1, 1.0,
// 10e-1 and 0.1e1 share one key. It works on the text alone and never
// expands the exponent.
func numberKey(v any) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		return normalizeDecimal(string(n))
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", false
		}
		return normalizeDecimal(strconv.FormatFloat(n, 'g', -1, 64))
	case float32:
		return numberKey(float64(n))
	case int:
		return normalizeDecimal(strconv.FormatInt(int64(n), 10))
	case int32:
		return normalizeDecimal(strconv.FormatInt(int64(n), 10))
	case int64:
		return normalizeDecimal(strconv.FormatInt(n, 10))
	case uint:
		return normalizeDecimal(strconv.FormatUint(uint64(n), 10))
	case uint32:
		return normalizeDecimal(strconv.FormatUint(uint64(n), 10))
	case uint64:
		return normalizeDecimal(strconv.FormatUint(n, 10))
	}
	return "", false
}

// normalizeDecimal rewrites a JSON number as [-]<digits>e<exp> with no
// leading or trailing zeros in digits. Zero is always "0".
func normalizeDecimal(s string) (string, bool) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	mant, expText := s, ""
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mant, expText = s[:i], s[i+1:]
	}
	intPart, frac := mant, ""
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		intPart, frac = mant[:i], mant[i+1:]
	}
	digits := intPart + frac
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return "", false
	}

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return "0", true
	}
	trimmed := strings.TrimRight(digits, "0")
	shift := int64(len(digits) - len(trimmed) - len(frac))

	expKey := strconv.FormatInt(shift, 10)
	if expText != "" {
		exp, err := strconv.ParseInt(expText, 10, 64)
		switch {
		case err == nil && exp > math.MinInt64/2 && exp < math.MaxInt64/2:
			expKey = strconv.FormatInt(exp+shift, 10)
		case err == nil || errors.Is(err, strconv.ErrRange):
			// too large to add in int64: keep the exponent text and the shift apart
			sign := ""
			if strings.HasPrefix(expText, "-") {
				sign = "-"
			}
			expKey = sign + strings.TrimLeft(strings.TrimLeft(expText, "+-"), "0") + "+" + expKey
		default:
			return "", false
		}
	}

	out := trimmed + "e" + expKey
	if neg {
		out = "-" + out
	}
	return out, true
}

// canonical renders v so that two values have the same canonical form iff
// they are equal up to array order and number spelling.
func canonical(v any) string {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ":" + canonical(t[k])
		}
		return "{" + strings.Join(parts, ",") + "}"
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = canonical(e)
		}
		sort.Strings(parts)
		return "[" + strings.Join(parts, ",") + "]"
	case string:
		return strconv.Quote(t)
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	}
	if n, ok := numberKey(v); ok {
		return "n:" + n
	}
	return fmt.Sprintf("%T:%v", v, v)
}

// fingerprint holds the canonical forms of a container's direct children,
// computed once so that scoring a pair does not re-walk either subtree.
type fingerprint struct {
	fields map[string]string // object: key -> canonical value
	elems  map[string]int    // array: canonical element -> count
}

func fingerprintOf(v any) *fingerprint {
	switch t := v.(type) {
	case map[string]any:
		f := &fingerprint{fields: make(map[string]string, len(t))}
		for k, e := range t {
			f.fields[k] = canonical(e)
		}
		return f
	case []any:
		f := &fingerprint{elems: make(map[string]int, len(t))}
		for _, e := range t {
			f.elems[canonical(e)]++
		}
		return f
	}
	return &fingerprint{}
}

// similarity counts identical entries shared by two containers of the same kind.
func (f *fingerprint) similarity(g *fingerprint) int {
	n := 0
	switch {
	case f.fields != nil && g.fields != nil:
		for k, c := range f.fields {
			if d, ok := g.fields[k]; ok && c == d {
				n++
			}
		}
	case f.elems != nil && g.elems != nil:
		for c, x := range f.elems {
			n += min(x, g.elems[c])
		}
	}
	return n
}

func fieldPath(base, key string) string {
	if isIdent(key) {
		return base + "." + key
	}
	return base + "[" + strconv.Quote(key) + "]"
}

func indexPath(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
