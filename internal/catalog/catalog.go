// Package catalog holds the static area and unit hierarchy that is seeded into
// the units table at startup.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"ticketCountManagement/models"
)

const (
	// RuralUnitID is the virtual aggregate editor scope covering area RuralAreaID.
	RuralUnitID int64 = 4000
	// RuralAreaID is the area whose units the rural editor reports for.
	RuralAreaID int64 = 4
)

// Catalog is the area/unit hierarchy.
type Catalog struct {
	Areas []models.Area
	// Units holds the units of each area in display order.
	Units map[int64][]models.Unit
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{
		Areas: []models.Area{
			{ID: 1, Name: "AREA 1 - CENTRO"},
			{ID: 2, Name: "AREA 2 - NORTE"},
			{ID: 3, Name: "AREA 3 - SUR"},
			{ID: 4, Name: "AREA 4 - POLICIA RURAL"},
		},
		Units: map[int64][]models.Unit{
			1: {
				{ID: 1001, Name: "COMISARIA PRIMERA"},
				{ID: 1002, Name: "COMISARIA SEGUNDA"},
				{ID: 1003, Name: "COMISARIA TERCERA"},
			},
			2: {
				{ID: 2001, Name: "COMISARIA CUARTA"},
				{ID: 2002, Name: "COMISARIA QUINTA"},
			},
			3: {
				{ID: 3001, Name: "COMISARIA SEXTA"},
				{ID: 3002, Name: "COMISARIA SEPTIMA"},
			},
			4: {
				{ID: RuralUnitID, Name: "POLICIA RURAL"},
				{ID: 4001, Name: "DESTACAMENTO RURAL NORTE"},
				{ID: 4002, Name: "DESTACAMENTO RURAL SUR"},
				{ID: 4003, Name: "DESTACAMENTO RURAL OESTE"},
			},
		},
	}
	c.fillAreaIDs()
	return c
}

type fileArea struct {
	ID    int64         `yaml:"id"`
	Name  string        `yaml:"name"`
	Units []models.Unit `yaml:"units"`
}

type fileCatalog struct {
	Areas []fileArea `yaml:"areas"`
}

// Load reads a catalog from a YAML file of the form
//
//	areas:
//	  - id: 1
//	    name: AREA 1
//	    units:
//	      - {id: 1001, name: COMISARIA PRIMERA}
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(fc.Areas) == 0 {
		return nil, fmt.Errorf("parse catalog: no areas defined")
	}
	c := &Catalog{Units: map[int64][]models.Unit{}}
	seen := map[int64]bool{}
	for _, a := range fc.Areas {
		c.Areas = append(c.Areas, models.Area{ID: a.ID, Name: a.Name})
		for _, u := range a.Units {
			if seen[u.ID] {
				return nil, fmt.Errorf("parse catalog: duplicate unit id %d", u.ID)
			}
			seen[u.ID] = true
		}
		c.Units[a.ID] = append([]models.Unit(nil), a.Units...)
	}
	c.fillAreaIDs()
	return c, nil
}

// LoadOrDefault loads path when set, otherwise returns Default.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c *Catalog) fillAreaIDs() {
	for areaID, units := range c.Units {
		for i := range units {
			units[i].AreaID = areaID
		}
	}
}

// Unit looks up a unit by id.
func (c *Catalog) Unit(id int64) (models.Unit, bool) {
	for _, units := range c.Units {
		for _, u := range units {
			if u.ID == id {
				return u, true
			}
		}
	}
	return models.Unit{}, false
}

// AllUnits returns every unit ordered by area then catalog order.
func (c *Catalog) AllUnits() []models.Unit {
	var out []models.Unit
	for _, a := range c.Areas {
		out = append(out, c.Units[a.ID]...)
	}
	return out
}

// RuralMembers returns the units the rural editor reports for: every unit in
// the rural area except the rural unit itself.
func (c *Catalog) RuralMembers() []models.Unit {
	var out []models.Unit
	for _, u := range c.Units[RuralAreaID] {
		if u.ID != RuralUnitID {
			out = append(out, u)
		}
	}
	return out
}

// IsRural reports whether unitID is the rural aggregate scope.
func IsRural(unitID int64) bool {
	return unitID == RuralUnitID
}

// UnitIDs returns the sorted ids of units.
func UnitIDs(units []models.Unit) []int64 {
	ids := make([]int64, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
