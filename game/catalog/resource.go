package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Resource identifies one of the five stockpiled resource kinds.
type Resource int

const (
	NightmareShards Resource = iota
	FrozenWishes
	OblivionEssence
	PureFear
	MoonDust
)

// NumResources is the size of every per-resource table.
const NumResources = 5

var resourceNames = [NumResources]string{
	NightmareShards: "nightmareShards",
	FrozenWishes:    "frozenWishes",
	OblivionEssence: "oblivionEssence",
	PureFear:        "pureFear",
	MoonDust:        "moonDust",
}

// Older building tables used a different vocabulary for three resources.
var legacyResourceNames = map[string]Resource{
	"nightmareFragments":  NightmareShards,
	"crystallizedDesires": FrozenWishes,
	"essenceOblivion":     OblivionEssence,
}

// Resources lists every resource in table order.
func Resources() []Resource {
	return []Resource{NightmareShards, FrozenWishes, OblivionEssence, PureFear, MoonDust}
}

func (r Resource) Valid() bool { return r >= 0 && r < NumResources }

func (r Resource) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Resource(%d)", int(r))
	}
	return resourceNames[r]
}

// ParseResource resolves a canonical or legacy resource name.
func ParseResource(name string) (Resource, bool) {
	name = strings.TrimSpace(name)
	for i, n := range resourceNames {
		if n == name {
			return Resource(i), true
		}
	}
	r, ok := legacyResourceNames[name]
	return r, ok
}

// Amounts holds one count per resource. Indexing by Resource is total, so a
// lookup can never miss.
type Amounts [NumResources]int64

func (a Amounts) Get(r Resource) int64 { return a[r] }

func (a *Amounts) Set(r Resource, v int64) { a[r] = v }

func (a Amounts) Add(b Amounts) Amounts {
	for i := range a {
		a[i] += b[i]
	}
	return a
}

func (a Amounts) Sub(b Amounts) Amounts {
	for i := range a {
		a[i] -= b[i]
	}
	return a
}

func (a Amounts) Total() int64 {
	var n int64
	for _, v := range a {
		n += v
	}
	return n
}

func (a Amounts) IsZero() bool { return a == Amounts{} }

// Covers reports whether a holds at least need of every resource.
func (a Amounts) Covers(need Amounts) bool {
	for i := range a {
		if a[i] < need[i] {
			return false
		}
	}
	return true
}

// Missing returns the names of resources where a falls short of need.
func (a Amounts) Missing(need Amounts) []string {
	var out []string
	for _, r := range Resources() {
		if a[r] < need[r] {
			out = append(out, r.String())
		}
	}
	return out
}

// Map renders the amounts keyed by canonical resource name.
func (a Amounts) Map() map[string]int64 {
	m := make(map[string]int64, NumResources)
	for _, r := range Resources() {
		m[r.String()] = a[r]
	}
	return m
}

func (a Amounts) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Map())
}

func (a *Amounts) UnmarshalJSON(b []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	out, err := AmountsFromMap(m)
	if err != nil {
		return err
	}
	*a = out
	return nil
}

// AmountsFromMap converts a name-keyed table, rejecting unknown names.
func AmountsFromMap(m map[string]int64) (Amounts, error) {
	var a Amounts
	for name, v := range m {
		r, ok := ParseResource(name)
		if !ok {
			return Amounts{}, fmt.Errorf("unknown resource %q", name)
		}
		a[r] += v
	}
	return a, nil
}
