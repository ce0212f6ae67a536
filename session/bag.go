package session

import (
	"sort"
	"strings"
)

// Bag is a case-insensitive container of scalar properties and named child
// bags. Property and child names live in separate namespaces; every name is
// lowercased before it is stored or looked up.
//
// A child Bag is owned by its parent alone. Bag is not safe for concurrent
// use.
type Bag struct {
	props map[string]Value
	bags  map[string]*Bag
}

// NewBag returns an empty Bag.
func NewBag() *Bag {
	return &Bag{}
}

func normalizeKey(name string) string {
	return strings.ToLower(name)
}

// Bag returns the child bag called name, creating and attaching an empty one
// on first access.
func (b *Bag) Bag(name string) *Bag {
	key := normalizeKey(name)
	if child, ok := b.bags[key]; ok {
		return child
	}
	if b.bags == nil {
		b.bags = make(map[string]*Bag)
	}
	child := NewBag()
	b.bags[key] = child
	return child
}

// HasBag reports whether a child bag called name exists.
func (b *Bag) HasBag(name string) bool {
	_, ok := b.bags[normalizeKey(name)]
	return ok
}

// Has reports whether every name exists as a property. It returns true when
// called without names.
func (b *Bag) Has(names ...string) bool {
	for _, name := range names {
		if _, ok := b.props[normalizeKey(name)]; !ok {
			return false
		}
	}
	return true
}

// Set stores value under name, replacing any previous property.
func (b *Bag) Set(name string, value Value) *Bag {
	if b.props == nil {
		b.props = make(map[string]Value)
	}
	b.props[normalizeKey(name)] = value
	return b
}

// SetAny converts v with [ValueOf] and stores it. The bag is left unchanged
// when v is not a scalar.
func (b *Bag) SetAny(name string, v any) error {
	value, err := ValueOf(v)
	if err != nil {
		return err
	}
	b.Set(name, value)
	return nil
}

// Get returns the property called name, or the null Value when absent.
func (b *Bag) Get(name string) Value {
	return b.props[normalizeKey(name)]
}

// Lookup returns the property called name and whether it exists. A stored
// null is reported as present.
func (b *Bag) Lookup(name string) (Value, bool) {
	v, ok := b.props[normalizeKey(name)]
	return v, ok
}

// Delete removes the property called name together with any child bag of
// the same name. Deleting a missing name is a no-op.
func (b *Bag) Delete(name string) *Bag {
	key := normalizeKey(name)
	delete(b.props, key)
	delete(b.bags, key)
	return b
}

// Keys returns the property names in ascending order.
func (b *Bag) Keys() []string {
	return sortedKeys(b.props)
}

// BagNames returns the child bag names in ascending order.
func (b *Bag) BagNames() []string {
	return sortedKeys(b.bags)
}

// Len returns the number of properties, ignoring child bags.
func (b *Bag) Len() int {
	return len(b.props)
}

// Empty reports whether the bag holds no properties and no child bags.
func (b *Bag) Empty() bool {
	return len(b.props) == 0 && len(b.bags) == 0
}

// Equal reports whether both trees hold the same properties and child bags.
func (b *Bag) Equal(o *Bag) bool {
	if b == nil || o == nil {
		return b.nilOrEmpty() && o.nilOrEmpty()
	}
	if len(b.props) != len(o.props) || len(b.bags) != len(o.bags) {
		return false
	}
	for k, v := range b.props {
		ov, ok := o.props[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	for k, child := range b.bags {
		oc, ok := o.bags[k]
		if !ok || !child.Equal(oc) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the tree.
func (b *Bag) Clone() *Bag {
	out := NewBag()
	if b == nil {
		return out
	}
	if len(b.props) > 0 {
		out.props = make(map[string]Value, len(b.props))
		for k, v := range b.props {
			out.props[k] = v
		}
	}
	if len(b.bags) > 0 {
		out.bags = make(map[string]*Bag, len(b.bags))
		for k, child := range b.bags {
			out.bags[k] = child.Clone()
		}
	}
	return out
}

func (b *Bag) nilOrEmpty() bool {
	return b == nil || b.Empty()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
