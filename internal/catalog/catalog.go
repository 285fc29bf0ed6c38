package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/agnivade/levenshtein"

	"aging/internal"
)

// Catalog is the fixed outlet list, enumerated once at startup.
type Catalog struct {
	dataDir string
	outlets []internal.Outlet
	byCode  map[string]internal.Outlet
}

type catalogFile struct {
	Outlet []struct {
		Code string `toml:"code"`
		File string `toml:"file"`
	} `toml:"outlet"`
}

var defaultOutlets = []internal.Outlet{
	{Code: "AML", File: "AML.xlsx"},
	{Code: "ATT", File: "AZT.xlsx"},
	{Code: "AZR", File: "AZR.xlsx"},
	{Code: "BPS", File: "BPS.xlsx"},
	{Code: "FAH", File: "FAH.xlsx"},
	{Code: "HAD", File: "HAD.xlsx"},
	{Code: "HAM", File: "HAM.xlsx"},
	{Code: "JZS", File: "JZS.xlsx"},
	{Code: "LWN", File: "LWN.xlsx"},
	{Code: "MSS", File: "MSS.xlsx"},
	{Code: "SAD", File: "SAD.xlsx"},
	{Code: "SAM", File: "SAM.xlsx"},
	{Code: "SAO", File: "SAO.xlsx"},
	{Code: "SBM", File: "SBM.xlsx"},
	{Code: "SML", File: "SML.xlsx"},
	{Code: "SPS", File: "SPS.xlsx"},
	{Code: "TTD", File: "TTD.xlsx"},
}

func Default(dataDir string) *Catalog {
	c, _ := New(dataDir, defaultOutlets)
	return c
}

func New(dataDir string, outlets []internal.Outlet) (*Catalog, error) {
	c := &Catalog{dataDir: dataDir, byCode: map[string]internal.Outlet{}}
	for _, o := range outlets {
		code := strings.TrimSpace(o.Code)
		file := strings.TrimSpace(o.File)
		if code == "" || file == "" {
			return nil, fmt.Errorf("catalog entry needs code and file: %+v", o)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate outlet code: %s", code)
		}
		outlet := internal.Outlet{Code: code, File: file}
		c.outlets = append(c.outlets, outlet)
		c.byCode[code] = outlet
	}
	return c, nil
}

// Open returns the TOML catalog at path, or the built-in one when path is empty.
func Open(path, dataDir string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(dataDir), nil
	}
	return LoadFile(path, dataDir)
}

// LoadFile reads a TOML catalog:
//
//	[[outlet]]
//	code = "AML"
//	file = "AML.xlsx"
func LoadFile(path, dataDir string) (*Catalog, error) {
	var raw catalogFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("read outlet catalog %s: %w", path, err)
	}
	if len(raw.Outlet) == 0 {
		return nil, fmt.Errorf("outlet catalog %s has no [[outlet]] entries", path)
	}
	outlets := make([]internal.Outlet, 0, len(raw.Outlet))
	for _, o := range raw.Outlet {
		outlets = append(outlets, internal.Outlet{Code: o.Code, File: o.File})
	}
	return New(dataDir, outlets)
}

func (c *Catalog) Outlets() []internal.Outlet {
	return append([]internal.Outlet(nil), c.outlets...)
}

func (c *Catalog) Codes() []string {
	out := make([]string, 0, len(c.outlets))
	for _, o := range c.outlets {
		out = append(out, o.Code)
	}
	return out
}

func (c *Catalog) Lookup(code string) (internal.Outlet, bool) {
	o, ok := c.byCode[strings.TrimSpace(code)]
	return o, ok
}

// Path resolves the outlet's source file against the data directory.
func (c *Catalog) Path(o internal.Outlet) string {
	if filepath.IsAbs(o.File) {
		return o.File
	}
	return filepath.Join(c.dataDir, o.File)
}

// Suggest returns catalog codes close to an unknown code, closest first.
func (c *Catalog) Suggest(code string) []string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	type scored struct {
		code string
		dist int
	}
	var hits []scored
	for _, o := range c.outlets {
		d := levenshtein.ComputeDistance(code, strings.ToUpper(o.Code))
		if d <= 1 || (len(code) > 3 && d <= 2) {
			hits = append(hits, scored{code: o.Code, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.code)
	}
	return out
}
