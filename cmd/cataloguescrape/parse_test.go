package main

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const programmePage = `<html><body>
<div class="programme">
  <span class="code">cs</span>
  <span class="name">Computer  Science</span>
  <span class="faculty">Faculty of Engineering</span>
  <ul class="modules"><li>CS1101</li><li> cs2100 </li></ul>
</div>
<div class="programme">
  <span class="code"></span>
  <span class="name">Broken entry, no code</span>
</div>
<div class="programme">
  <span class="code">MA</span>
  <span class="name">Mathematics</span>
  <span class="faculty">Faculty of Science</span>
</div>
</body></html>`

const modulePage = `<html><body>
<table class="module-list">
<thead><tr><th>Code</th><th>Name</th><th>Programmes</th><th>Year</th><th>Flags</th></tr></thead>
<tbody>
<tr><td>CS1101</td><td>Programming Methodology</td><td>CS, is</td><td>1</td><td>core, required</td></tr>
<tr><td>MA1521</td><td>Calculus</td><td>MA</td><td>1</td><td>core</td></tr>
<tr><td></td><td>row without a code</td></tr>
<tr><td>GE1000</td><td>Electives Sampler</td></tr>
</tbody>
</table>
</body></html>`

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestParseProgrammes(t *testing.T) {
	majors := parseProgrammes(mustDoc(t, programmePage))

	if len(majors) != 2 {
		t.Fatalf("expected 2 programmes (entry without code skipped), got %d", len(majors))
	}

	cs := majors[0]
	if cs.Code != "CS" {
		t.Errorf("expected code uppercased to CS, got %q", cs.Code)
	}
	if cs.Name != "Computer Science" {
		t.Errorf("expected whitespace-normalized name, got %q", cs.Name)
	}
	if cs.Faculty != "Faculty of Engineering" {
		t.Errorf("unexpected faculty %q", cs.Faculty)
	}
	if len(cs.Modules) != 2 || cs.Modules[0] != "CS1101" || cs.Modules[1] != "CS2100" {
		t.Errorf("unexpected module codes %v", cs.Modules)
	}

	if majors[1].Code != "MA" || len(majors[1].Modules) != 0 {
		t.Errorf("unexpected second programme %+v", majors[1])
	}
}

func TestParseModules(t *testing.T) {
	modules := parseModules(mustDoc(t, modulePage))

	if len(modules) != 3 {
		t.Fatalf("expected 3 modules (row without code skipped), got %d", len(modules))
	}

	cs := modules[0]
	if cs.Code != "CS1101" || cs.Name != "Programming Methodology" {
		t.Errorf("unexpected first module %+v", cs)
	}
	if len(cs.Programs) != 2 || cs.Programs[0] != "CS" || cs.Programs[1] != "IS" {
		t.Errorf("unexpected programs %v", cs.Programs)
	}
	if cs.Year != 1 || !cs.Core || !cs.Required {
		t.Errorf("unexpected year/flags on %+v", cs)
	}

	ma := modules[1]
	if !ma.Core || ma.Required {
		t.Errorf("expected core-only flags on %+v", ma)
	}

	ge := modules[2]
	if ge.Year != 0 || ge.Core || ge.Required || len(ge.Programs) != 0 {
		t.Errorf("expected zero-valued optional columns on %+v", ge)
	}
}

func TestMergeMajorsKeepsFirstOccurrence(t *testing.T) {
	page1 := parseProgrammes(mustDoc(t, programmePage))
	page2 := parseProgrammes(mustDoc(t, programmePage))
	page2[0].Name = "Computer Science (duplicate)"

	merged := mergeMajors(page1, page2)
	if len(merged) != 2 {
		t.Fatalf("expected duplicates collapsed to 2, got %d", len(merged))
	}
	if merged[0].Name != "Computer Science" {
		t.Errorf("expected first occurrence kept, got %q", merged[0].Name)
	}
}
