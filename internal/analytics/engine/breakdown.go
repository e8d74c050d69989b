package engine

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Breakdown is an ordered mapping of key to amount. Keys keep the order in
// which they were first added, and JSON output preserves that order.
type Breakdown struct {
	keys   []string
	values map[string]decimal.Decimal
	labels map[string]string
}

type BreakdownEntry struct {
	Key   string          `json:"key"`
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

func NewBreakdown() *Breakdown {
	return &Breakdown{
		values: make(map[string]decimal.Decimal),
		labels: make(map[string]string),
	}
}

// Add accumulates amount under key. label is kept from the first occurrence.
func (b *Breakdown) Add(key, label string, amount decimal.Decimal) {
	current, ok := b.values[key]
	if !ok {
		b.keys = append(b.keys, key)
		b.labels[key] = label
		current = decimal.Zero
	}
	b.values[key] = current.Add(amount)
}

func (b *Breakdown) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

func (b *Breakdown) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.keys...)
}

func (b *Breakdown) Get(key string) (decimal.Decimal, bool) {
	if b == nil {
		return decimal.Zero, false
	}
	v, ok := b.values[key]
	return v, ok
}

func (b *Breakdown) Entries() []BreakdownEntry {
	if b == nil {
		return nil
	}
	out := make([]BreakdownEntry, 0, len(b.keys))
	for _, key := range b.keys {
		label := b.labels[key]
		if label == "" {
			label = key
		}
		out = append(out, BreakdownEntry{Key: key, Label: label, Value: b.values[key]})
	}
	return out
}

// Map rescales every value with fn, keeping order and labels.
func (b *Breakdown) Map(fn func(decimal.Decimal) decimal.Decimal) *Breakdown {
	if b == nil {
		return nil
	}
	out := NewBreakdown()
	for _, key := range b.keys {
		out.Add(key, b.labels[key], fn(b.values[key]))
	}
	return out
}

func (b *Breakdown) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range b.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(b.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
