// Command validate runs the WaterML normalizers over recorded fixture files
// and checks the properties every table must satisfy: the site table never
// carries the placeholder site, derived columns agree with their sources,
// filters are inclusive, and observation tables hold no missing-data rows.
//
// Usage:
//
//	go run ./cmd/validate -fixtures internal/domain/testdata
package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/norlandrhagen/snowintel/internal/domain"
)

// snotelNoData is the sentinel SNOTEL uses for a missing reading.
const snotelNoData = -9999.0

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.StringP("fixtures", "d", "", "directory holding sites.xml, siteinfo.xml and values.xml")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	os.Exit(run(*dir, os.Stdout))
}

func run(dir string, out io.Writer) int {
	fmt.Fprintln(out, "=== SNOTEL Fixture Validation ===")
	fmt.Fprintln(out)

	sitesRaw, err := os.ReadFile(filepath.Join(dir, "sites.xml"))
	if err != nil {
		fmt.Fprintf(out, "FATAL: load sites fixture: %v\n", err)
		return 1
	}
	siteInfoRaw, err := os.ReadFile(filepath.Join(dir, "siteinfo.xml"))
	if err != nil {
		fmt.Fprintf(out, "FATAL: load site info fixture: %v\n", err)
		return 1
	}
	valuesRaw, err := os.ReadFile(filepath.Join(dir, "values.xml"))
	if err != nil {
		fmt.Fprintf(out, "FATAL: load values fixture: %v\n", err)
		return 1
	}

	sites, sitesPhase := validateSiteTable(sitesRaw)
	obsPhase, kept, dropped := validateObservations(valuesRaw)
	phases := []*phase{
		sitesPhase,
		validateFilters(sites),
		validateVariables(siteInfoRaw),
		obsPhase,
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Sites: %d, observations: %d kept, %d dropped\n", len(sites), kept, dropped)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Site table ──

func validateSiteTable(raw []byte) (domain.Sites, *phase) {
	p := &phase{name: "Phase 1: Site table (GetSites)"}

	sites, err := domain.ParseSites(raw)
	if err != nil {
		p.errorf("parse: %v", err)
		return nil, p
	}
	if len(sites) == 0 {
		p.errorf("site table is empty")
	}
	if sites.Contains(domain.InvalidSiteCode) {
		p.errorf("site table contains %s", domain.InvalidSiteCode)
	}

	seen := make(map[string]bool, len(sites))
	for _, s := range sites {
		if seen[s.SiteCode] {
			p.errorf("%s: duplicate site code", s.SiteCode)
		}
		seen[s.SiteCode] = true

		if want := domain.StateFromSiteCode(s.SiteCode); s.State != want || len(s.State) != 2 {
			p.errorf("%s: state %q, expected %q", s.SiteCode, s.State, want)
		}
		if want := domain.RoundTo(s.ElevationM*3.28084, 1); !floatEq(s.ElevationFt, want) {
			p.errorf("%s: elevation_ft %g, expected %g", s.SiteCode, s.ElevationFt, want)
		}
		if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
			p.errorf("%s: coordinates out of range (%g, %g)", s.SiteCode, s.Latitude, s.Longitude)
		}
	}
	return sites, p
}

// ── Phase 2: Filters ──

func validateFilters(sites domain.Sites) *phase {
	p := &phase{name: "Phase 2: Filters (state, elevation)"}
	if len(sites) == 0 {
		p.errorf("no sites to filter")
		return p
	}

	counts := map[string]int{}
	for _, s := range sites {
		counts[s.State]++
	}
	states := make([]string, 0, len(counts))
	for st := range counts {
		states = append(states, st)
	}
	sort.Strings(states)

	for _, st := range states {
		got := sites.Filter(domain.SiteFilter{States: []string{st}})
		if len(got) != counts[st] {
			p.errorf("state %s: filter returned %d sites, expected %d", st, len(got), counts[st])
		}
		for _, s := range got {
			if s.State != st {
				p.errorf("state %s: filter returned %s", st, s.SiteCode)
			}
		}
	}

	// Bounds taken from an existing site must keep that site.
	for _, s := range sites {
		elev := s.ElevationM
		got := sites.Filter(domain.SiteFilter{MinElevationM: &elev, MaxElevationM: &elev})
		if !got.Contains(s.SiteCode) {
			p.errorf("%s: elevation bounds [%g, %g] are not inclusive", s.SiteCode, elev, elev)
		}
		for _, g := range got {
			if g.ElevationM != elev {
				p.errorf("elevation %g: filter returned %s at %g", elev, g.SiteCode, g.ElevationM)
			}
		}
	}
	return p
}

// ── Phase 3: Variable catalog ──

func validateVariables(raw []byte) *phase {
	p := &phase{name: "Phase 3: Variable catalog (GetSiteInfo)"}

	vars, err := domain.ParseVariables(raw)
	if err != nil {
		p.errorf("parse: %v", err)
		return p
	}
	if len(vars) == 0 {
		p.errorf("variable table is empty")
	}
	seen := map[string]bool{}
	for i, v := range vars {
		if v.VariableCode == "" {
			p.errorf("variable %d: empty code", i)
		}
		if seen[v.VariableCode] {
			p.errorf("%s: duplicate variable code", v.VariableCode)
		}
		seen[v.VariableCode] = true
	}
	return p
}

// ── Phase 4: Observations ──

func validateObservations(raw []byte) (p *phase, kept, dropped int) {
	p = &phase{name: "Phase 4: Observations (GetValues)"}

	obs, dropped, err := domain.ParseObservations(raw)
	if err != nil {
		p.errorf("parse: %v", err)
		return p, 0, 0
	}
	if cols := obs.Columns(); len(cols) != 2 || cols[0] != "time" || cols[1] != "value" {
		p.errorf("columns %v, expected [time value]", cols)
	}
	for i, o := range obs {
		if o.Time.IsZero() {
			p.errorf("row %d: missing time", i)
		}
		if math.IsNaN(o.Value) {
			p.errorf("row %d (%s): NaN value", i, o.Time.Format(time.RFC3339))
		}
		if o.Value == snotelNoData {
			p.errorf("row %d (%s): missing-data sentinel kept", i, o.Time.Format(time.RFC3339))
		}
	}
	return p, len(obs), dropped
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
