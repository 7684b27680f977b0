package main

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/studycircle/studycircle/internal/domain/models"
)

// parseProgrammes extracts degree programmes from a catalogue listing
// page. Each programme is rendered as:
//
//	<div class="programme">
//	  <span class="code">CS</span>
//	  <span class="name">Computer Science</span>
//	  <span class="faculty">Faculty of Engineering</span>
//	  <ul class="modules"><li>CS1101</li>...</ul>
//	</div>
func parseProgrammes(doc *goquery.Document) []models.Major {
	var majors []models.Major
	doc.Find("div.programme").Each(func(_ int, sel *goquery.Selection) {
		code := cleanCode(sel.Find(".code").First().Text())
		if code == "" {
			return
		}
		m := models.Major{
			Code:    code,
			Name:    clean(sel.Find(".name").First().Text()),
			Faculty: clean(sel.Find(".faculty").First().Text()),
		}
		sel.Find("ul.modules li").Each(func(_ int, li *goquery.Selection) {
			if mc := cleanCode(li.Text()); mc != "" {
				m.Modules = append(m.Modules, mc)
			}
		})
		majors = append(majors, m)
	})
	return majors
}

// parseModules extracts modules from the module listing page, one table
// row per module: code | name | programmes (comma-separated) | year |
// flags ("core", "required", or both).
func parseModules(doc *goquery.Document) []models.Module {
	var modules []models.Module
	doc.Find("table.module-list tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		code := cleanCode(cells.Eq(0).Text())
		if code == "" {
			return
		}
		mod := models.Module{
			Code: code,
			Name: clean(cells.Eq(1).Text()),
		}
		if cells.Length() > 2 {
			for _, p := range strings.Split(cells.Eq(2).Text(), ",") {
				if pc := cleanCode(p); pc != "" {
					mod.Programs = append(mod.Programs, pc)
				}
			}
		}
		if cells.Length() > 3 {
			if year, err := strconv.Atoi(clean(cells.Eq(3).Text())); err == nil {
				mod.Year = year
			}
		}
		if cells.Length() > 4 {
			flags := strings.ToLower(cells.Eq(4).Text())
			mod.Core = strings.Contains(flags, "core")
			mod.Required = strings.Contains(flags, "required")
		}
		modules = append(modules, mod)
	})
	return modules
}

// mergeMajors combines programmes scraped from multiple listing pages,
// keeping the first occurrence of each code.
func mergeMajors(pages ...[]models.Major) []models.Major {
	seen := make(map[string]bool)
	var out []models.Major
	for _, page := range pages {
		for _, m := range page {
			if seen[m.Code] {
				continue
			}
			seen[m.Code] = true
			out = append(out, m)
		}
	}
	return out
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
