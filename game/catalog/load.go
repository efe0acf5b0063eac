package catalog

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML override layout. Every section is optional; entries
// present in the file replace or extend the built-in ones by key.
type File struct {
	RespawnDelay time.Duration           `yaml:"respawn_delay"`
	Nodes        map[string]nodeFile     `yaml:"nodes"`
	Buildings    map[string]buildingFile `yaml:"buildings"`
	Crystals     map[string]crystalFile  `yaml:"crystals"`
	Zones        []zoneFile              `yaml:"zones"`
	CrystalDraws []drawFile              `yaml:"crystal_draws"`
}

type nodeFile struct {
	Resource string        `yaml:"resource"`
	Yield    int64         `yaml:"yield"`
	Duration time.Duration `yaml:"duration"`
}

type buildingFile struct {
	Name       string           `yaml:"name"`
	Cost       map[string]int64 `yaml:"cost"`
	Production map[string]int64 `yaml:"production"`
	BuildTime  time.Duration    `yaml:"build_time"`
}

type crystalFile struct {
	Name     string `yaml:"name"`
	Resource string `yaml:"resource"`
}

type zoneFile struct {
	Name      string   `yaml:"name"`
	NodeTypes []string `yaml:"node_types"`
	MinNodes  int      `yaml:"min_nodes"`
	MaxNodes  int      `yaml:"max_nodes"`
	GridSize  int      `yaml:"grid_size"`
}

type drawFile struct {
	Amount int64   `yaml:"amount"`
	Weight float64 `yaml:"weight"`
}

// Load returns the built-in catalog with the overrides in path applied.
// An empty path returns Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse applies a YAML override document to the built-in catalog.
func Parse(raw []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}
	c := Default()
	if err := c.apply(f); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.index()
	return c, nil
}

func (c *Catalog) apply(f File) error {
	if f.RespawnDelay != 0 {
		c.respawnDelay = f.RespawnDelay
	}
	for typ, n := range f.Nodes {
		r, ok := ParseResource(n.Resource)
		if !ok {
			return fmt.Errorf("catalog: node %q: unknown resource %q", typ, n.Resource)
		}
		c.nodes[typ] = NodeDef{Type: typ, Resource: r, Yield: n.Yield, Duration: n.Duration}
	}
	for typ, b := range f.Buildings {
		cost, err := AmountsFromMap(b.Cost)
		if err != nil {
			return fmt.Errorf("catalog: building %q cost: %w", typ, err)
		}
		prod, err := AmountsFromMap(b.Production)
		if err != nil {
			return fmt.Errorf("catalog: building %q production: %w", typ, err)
		}
		name := b.Name
		if name == "" {
			name = typ
		}
		c.buildings[typ] = BuildingDef{Type: typ, Name: name, Cost: cost, Production: prod, BuildTime: b.BuildTime}
	}
	for typ, cr := range f.Crystals {
		r, ok := ParseResource(cr.Resource)
		if !ok {
			return fmt.Errorf("catalog: crystal %q: unknown resource %q", typ, cr.Resource)
		}
		name := cr.Name
		if name == "" {
			name = typ
		}
		c.crystals[typ] = CrystalDef{Type: typ, Name: name, Resource: r}
	}
	if len(f.Zones) > 0 {
		c.zones = c.zones[:0]
		for _, z := range f.Zones {
			c.zones = append(c.zones, ZoneDef(z))
		}
	}
	if len(f.CrystalDraws) > 0 {
		c.draws = c.draws[:0]
		for _, d := range f.CrystalDraws {
			c.draws = append(c.draws, DrawWeight(d))
		}
	}
	return nil
}

// Validate checks the internal consistency of the tables.
func (c *Catalog) Validate() error {
	var problems []error
	if c.respawnDelay < 0 {
		problems = append(problems, errors.New("respawn_delay must not be negative"))
	}
	for typ, n := range c.nodes {
		if n.Yield <= 0 {
			problems = append(problems, fmt.Errorf("node %q: yield must be positive", typ))
		}
		if n.Duration < 0 {
			problems = append(problems, fmt.Errorf("node %q: duration must not be negative", typ))
		}
	}
	for typ, b := range c.buildings {
		for _, r := range Resources() {
			if b.Cost[r] < 0 || b.Production[r] < 0 {
				problems = append(problems, fmt.Errorf("building %q: negative %s", typ, r))
			}
		}
		if b.BuildTime < 0 {
			problems = append(problems, fmt.Errorf("building %q: build_time must not be negative", typ))
		}
	}
	if len(c.crystals) == 0 {
		problems = append(problems, errors.New("at least one crystal type is required"))
	}
	if len(c.zones) == 0 {
		problems = append(problems, errors.New("at least one zone is required"))
	}
	for _, z := range c.zones {
		if z.Name == "" {
			problems = append(problems, errors.New("zone with empty name"))
		}
		if len(z.NodeTypes) == 0 {
			problems = append(problems, fmt.Errorf("zone %q: no node types", z.Name))
		}
		for _, nt := range z.NodeTypes {
			if _, ok := c.nodes[nt]; !ok {
				problems = append(problems, fmt.Errorf("zone %q: unknown node type %q", z.Name, nt))
			}
		}
		if z.MinNodes < 0 || z.MaxNodes < z.MinNodes {
			problems = append(problems, fmt.Errorf("zone %q: bad node range [%d,%d]", z.Name, z.MinNodes, z.MaxNodes))
		}
		if z.GridSize <= 0 {
			problems = append(problems, fmt.Errorf("zone %q: grid_size must be positive", z.Name))
		}
	}
	if len(c.draws) == 0 {
		problems = append(problems, errors.New("crystal_draws must not be empty"))
	}
	for _, d := range c.draws {
		if d.Amount <= 0 || d.Weight <= 0 {
			problems = append(problems, fmt.Errorf("crystal draw {%d, %g}: amount and weight must be positive", d.Amount, d.Weight))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("catalog: %w", errors.Join(problems...))
	}
	return nil
}
