// internal/scraper/departments.go
package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sahilm/fuzzy"
)

// DepartmentsURL is the search page carrying the department selector
const DepartmentsURL = "https://www.gov.kr/search/svcmidMw?SVC_DIV=mid"

// Department is a selectable issuing organization
type Department struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
}

// Departments is a department list searchable with fuzzy matching
type Departments []Department

// String implements fuzzy.Source
func (d Departments) String(i int) string { return d[i].Name }

// Len implements fuzzy.Source
func (d Departments) Len() int { return len(d) }

// DefaultDepartments is used when the selector cannot be read
func DefaultDepartments() Departments {
	return Departments{
		{Code: "1352000", Name: "보건복지부", Group: "부"},
		{Code: "1492000", Name: "고용노동부", Group: "부"},
		{Code: "1721000", Name: "과학기술정보통신부", Group: "부"},
		{Code: "1342000", Name: "교육부", Group: "부"},
		{Code: "1290000", Name: "국방부", Group: "부"},
		{Code: "1613000", Name: "국토교통부", Group: "부"},
		{Code: "1051000", Name: "기획재정부", Group: "부"},
		{Code: "1371000", Name: "문화체육관광부", Group: "부"},
		{Code: "1270000", Name: "법무부", Group: "부"},
		{Code: "1450000", Name: "산업통상자원부", Group: "부"},
		{Code: "1383000", Name: "여성가족부", Group: "부"},
		{Code: "1262000", Name: "외교부", Group: "부"},
		{Code: "1741000", Name: "행정안전부", Group: "부"},
		{Code: "1480000", Name: "환경부", Group: "부"},
		{Code: "1320000", Name: "경찰청", Group: "청"},
		{Code: "1210000", Name: "국세청", Group: "청"},
		{Code: "1360000", Name: "기상청", Group: "청"},
		{Code: "1300000", Name: "병무청", Group: "청"},
		{Code: "1790387", Name: "질병관리청", Group: "청"},
	}
}

// ParseDepartments reads the deptIncCd selector options. Options inside an
// optgroup carry the group label.
func ParseDepartments(doc *goquery.Document) Departments {
	var out Departments
	seen := make(map[string]bool)
	doc.Find(`select[name="deptIncCd"] option`).Each(func(_ int, opt *goquery.Selection) {
		code := strings.TrimSpace(opt.AttrOr("value", ""))
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, Department{
			Code:  code,
			Name:  cleanText(opt.Text()),
			Group: opt.ParentsFiltered("optgroup").First().AttrOr("label", ""),
		})
	})
	return out
}

// FetchDepartments loads the department list from the portal, falling
// back to DefaultDepartments when the page fails or lists none.
func FetchDepartments(ctx context.Context, fetcher *Fetcher) (Departments, error) {
	doc, err := fetcher.Page(ctx, DepartmentsURL)
	if err != nil {
		return DefaultDepartments(), err
	}
	if deps := ParseDepartments(doc); len(deps) > 0 {
		return deps, nil
	}
	return DefaultDepartments(), nil
}

// Search returns the departments whose names fuzzily match query, best
// match first. An empty query returns the whole list.
func (d Departments) Search(query string) Departments {
	query = strings.TrimSpace(query)
	if query == "" {
		return d
	}
	matches := fuzzy.FindFrom(query, d)
	out := make(Departments, 0, len(matches))
	for _, m := range matches {
		out = append(out, d[m.Index])
	}
	return out
}

// Resolve maps a department code or name to its code. Names are matched
// exactly first, then fuzzily.
func (d Departments) Resolve(query string) (Department, error) {
	query = strings.TrimSpace(query)
	for _, dep := range d {
		if dep.Code == query || dep.Name == query {
			return dep, nil
		}
	}
	if allDigits(query) && query != "" {
		return Department{Code: query}, nil
	}
	if found := d.Search(query); len(found) > 0 {
		return found[0], nil
	}
	return Department{}, fmt.Errorf("unknown department %q", query)
}
