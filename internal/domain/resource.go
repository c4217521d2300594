package domain

import (
	"fmt"
	"strings"
)

// Resource is one of the five producible resource types.
type Resource int

const (
	Brick Resource = iota
	Lumber
	Wool
	Grain
	Ore
)

// ResourceCount is the number of distinct resource types.
const ResourceCount = 5

var resourceNames = [ResourceCount]string{"brick", "lumber", "wool", "grain", "ore"}

// AllResources lists every resource type in canonical order.
func AllResources() []Resource {
	return []Resource{Brick, Lumber, Wool, Grain, Ore}
}

func (r Resource) String() string {
	if !r.Valid() {
		return fmt.Sprintf("resource(%d)", int(r))
	}
	return resourceNames[r]
}

// Valid reports whether r names a real resource type.
func (r Resource) Valid() bool {
	return r >= Brick && r <= Ore
}

// ParseResource resolves a resource by its lower-case name.
func ParseResource(s string) (Resource, error) {
	for i, name := range resourceNames {
		if strings.EqualFold(name, s) {
			return Resource(i), nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q: %w", s, ErrInvalidAction)
}

// Bundle counts units per resource type, indexed by Resource.
type Bundle [ResourceCount]int

// Units returns a bundle holding n units of r.
func Units(r Resource, n int) Bundle {
	var b Bundle
	if r.Valid() {
		b[r] = n
	}
	return b
}

// Total sums every resource count.
func (b Bundle) Total() int {
	n := 0
	for _, v := range b {
		n += v
	}
	return n
}

// Add returns the element-wise sum.
func (b Bundle) Add(o Bundle) Bundle {
	for i := range b {
		b[i] += o[i]
	}
	return b
}

// Sub returns the element-wise difference. The result may be negative.
func (b Bundle) Sub(o Bundle) Bundle {
	for i := range b {
		b[i] -= o[i]
	}
	return b
}

// Covers reports whether b holds at least o of every resource.
func (b Bundle) Covers(o Bundle) bool {
	for i := range b {
		if b[i] < o[i] {
			return false
		}
	}
	return true
}

// HasNegative reports whether any count is below zero.
func (b Bundle) HasNegative() bool {
	for _, v := range b {
		if v < 0 {
			return true
		}
	}
	return false
}

// IsZero reports whether the bundle is empty.
func (b Bundle) IsZero() bool {
	return b == Bundle{}
}

// Flatten expands the bundle into one entry per unit, in resource order.
func (b Bundle) Flatten() []Resource {
	out := make([]Resource, 0, b.Total())
	for i, v := range b {
		for j := 0; j < v; j++ {
			out = append(out, Resource(i))
		}
	}
	return out
}

// Map renders non-zero counts keyed by resource name.
func (b Bundle) Map() map[string]int {
	out := make(map[string]int, ResourceCount)
	for i, v := range b {
		if v != 0 {
			out[resourceNames[i]] = v
		}
	}
	return out
}

// BundleFromMap parses a name-keyed count map. Negative counts are rejected.
func BundleFromMap(m map[string]int) (Bundle, error) {
	var b Bundle
	for name, v := range m {
		r, err := ParseResource(name)
		if err != nil {
			return Bundle{}, err
		}
		if v < 0 {
			return Bundle{}, fmt.Errorf("negative amount for %s: %w", name, ErrInvalidAction)
		}
		b[r] += v
	}
	return b, nil
}

func (b Bundle) String() string {
	parts := make([]string, 0, ResourceCount)
	for i, v := range b {
		if v != 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", resourceNames[i], v))
		}
	}
	return "{" + strings.Join(parts, " ") + "}"
}
