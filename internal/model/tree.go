package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies which variant a Tree holds.
type Kind int

// Tree variants.
const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindList
	KindMap
)

// Tree is a JSON-shaped value whose numbers are exact decimals. Policy
// snapshots use it for their nested allowance, deduction, tax and social
// security maps, and for the verbatim source row kept for audit.
//
// The zero value is null. Trees are treated as immutable; every mutating
// helper returns a copy.
type Tree struct {
	obj  map[string]Tree
	str  string
	list []Tree
	num  decimal.Decimal
	kind Kind
	flag bool
}

// Null returns the null tree.
func Null() Tree { return Tree{} }

// Number wraps an exact decimal.
func Number(d decimal.Decimal) Tree { return Tree{kind: KindNumber, num: d} }

// String wraps a string scalar.
func String(s string) Tree { return Tree{kind: KindString, str: s} }

// Bool wraps a boolean scalar.
func Bool(b bool) Tree { return Tree{kind: KindBool, flag: b} }

// List builds a list tree.
func List(items ...Tree) Tree {
	cp := make([]Tree, len(items))
	copy(cp, items)
	return Tree{kind: KindList, list: cp}
}

// Map builds a map tree from entries. A nil map yields an empty map tree.
func Map(entries map[string]Tree) Tree {
	cp := make(map[string]Tree, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return Tree{kind: KindMap, obj: cp}
}

// Kind reports the variant.
func (t Tree) Kind() Kind { return t.kind }

// IsNull reports whether t is the null tree.
func (t Tree) IsNull() bool { return t.kind == KindNull }

// IsMap reports whether t is a map.
func (t Tree) IsMap() bool { return t.kind == KindMap }

// IsEmpty reports whether t carries no information: null, an empty map, an
// empty list or an empty string.
func (t Tree) IsEmpty() bool {
	switch t.kind {
	case KindNull:
		return true
	case KindMap:
		return len(t.obj) == 0
	case KindList:
		return len(t.list) == 0
	case KindString:
		return t.str == ""
	default:
		return false
	}
}

// Len returns the number of entries of a map or list, zero otherwise.
func (t Tree) Len() int {
	switch t.kind {
	case KindMap:
		return len(t.obj)
	case KindList:
		return len(t.list)
	default:
		return 0
	}
}

// Get returns the child stored under key when t is a map.
func (t Tree) Get(key string) (Tree, bool) {
	if t.kind != KindMap {
		return Tree{}, false
	}
	v, ok := t.obj[key]
	return v, ok
}

// Keys returns the sorted keys of a map tree.
func (t Tree) Keys() []string {
	if t.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(t.obj))
	for k := range t.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the map entries, or nil for non-map trees.
func (t Tree) Entries() map[string]Tree {
	if t.kind != KindMap {
		return nil
	}
	cp := make(map[string]Tree, len(t.obj))
	for k, v := range t.obj {
		cp[k] = v
	}
	return cp
}

// Items returns a copy of the list items, or nil for non-list trees.
func (t Tree) Items() []Tree {
	if t.kind != KindList {
		return nil
	}
	cp := make([]Tree, len(t.list))
	copy(cp, t.list)
	return cp
}

// With returns a copy of the map with key set to v. A non-map receiver is
// replaced by a fresh map.
func (t Tree) With(key string, v Tree) Tree {
	entries := t.Entries()
	if entries == nil {
		entries = make(map[string]Tree, 1)
	}
	entries[key] = v
	return Tree{kind: KindMap, obj: entries}
}

// Decimal returns the numeric value of a number tree, or of a string tree
// holding a decimal literal.
func (t Tree) Decimal() (decimal.Decimal, bool) {
	switch t.kind {
	case KindNumber:
		return t.num, true
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(t.str))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// Text renders a scalar as text. Maps and lists render as JSON.
func (t Tree) Text() string {
	switch t.kind {
	case KindNull:
		return ""
	case KindString:
		return t.str
	case KindNumber:
		return t.num.String()
	case KindBool:
		return strconv.FormatBool(t.flag)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Equal reports deep equality. Numbers compare by value, so 0.10 equals 0.1.
func (t Tree) Equal(o Tree) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindNull:
		return true
	case KindNumber:
		return t.num.Equal(o.num)
	case KindString:
		return t.str == o.str
	case KindBool:
		return t.flag == o.flag
	case KindList:
		if len(t.list) != len(o.list) {
			return false
		}
		for i := range t.list {
			if !t.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(t.obj) != len(o.obj) {
			return false
		}
		for k, v := range t.obj {
			ov, ok := o.obj[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes the tree. Map keys are emitted in sorted order so the
// encoding is canonical and usable for hashing.
func (t Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t Tree) encode(buf *bytes.Buffer) error {
	switch t.kind {
	case KindNull:
		buf.WriteString("null")
	case KindNumber:
		buf.WriteString(t.num.String())
	case KindBool:
		buf.WriteString(strconv.FormatBool(t.flag))
	case KindString:
		data, err := json.Marshal(t.str)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindList:
		buf.WriteByte('[')
		for i, item := range t.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, key := range t.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(data)
			buf.WriteByte(':')
			if err := t.obj[key].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown tree kind %d", t.kind)
	}
	return nil
}

// UnmarshalJSON decodes JSON, keeping numbers as exact decimals.
func (t *Tree) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTree decodes a JSON document into a Tree. Blank input yields null.
func ParseTree(text string) (Tree, error) {
	if strings.TrimSpace(text) == "" {
		return Tree{}, nil
	}
	var t Tree
	if err := t.UnmarshalJSON([]byte(text)); err != nil {
		return Tree{}, fmt.Errorf("failed to parse tree: %w", err)
	}
	return t, nil
}

// FromAny converts values produced by encoding/json (with UseNumber) or plain
// Go scalars into a Tree.
func FromAny(v any) (Tree, error) {
	switch val := v.(type) {
	case nil:
		return Tree{}, nil
	case Tree:
		return val, nil
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return Tree{}, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(d), nil
	case decimal.Decimal:
		return Number(val), nil
	case float64:
		return Number(decimal.NewFromFloat(val)), nil
	case int:
		return Number(decimal.NewFromInt(int64(val))), nil
	case int64:
		return Number(decimal.NewFromInt(val)), nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case []any:
		items := make([]Tree, 0, len(val))
		for _, item := range val {
			child, err := FromAny(item)
			if err != nil {
				return Tree{}, err
			}
			items = append(items, child)
		}
		return Tree{kind: KindList, list: items}, nil
	case map[string]any:
		entries := make(map[string]Tree, len(val))
		for k, item := range val {
			child, err := FromAny(item)
			if err != nil {
				return Tree{}, err
			}
			entries[k] = child
		}
		return Tree{kind: KindMap, obj: entries}, nil
	default:
		return Tree{}, fmt.Errorf("unsupported tree value %T", v)
	}
}
