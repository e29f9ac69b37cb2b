package httputil

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParsePagination_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/branches/getAll", nil)
	p := ParsePagination(r)

	if p.Page != 1 {
		t.Errorf("Expected default page 1, got %d", p.Page)
	}
	if p.Limit != 10 {
		t.Errorf("Expected default limit 10, got %d", p.Limit)
	}
	if p.Sort != "createdAt" {
		t.Errorf("Expected default sort createdAt, got %s", p.Sort)
	}
	if p.Order != "desc" {
		t.Errorf("Expected default order desc, got %s", p.Order)
	}
	if p.Offset != 0 {
		t.Errorf("Expected offset 0, got %d", p.Offset)
	}
}

func TestParsePagination_Clamping(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/branches/getAll?page=-3&limit=5000&order=ASC", nil)
	p := ParsePagination(r)

	if p.Page != 1 {
		t.Errorf("Expected negative page clamped to 1, got %d", p.Page)
	}
	if p.Limit != 100 {
		t.Errorf("Expected limit clamped to 100, got %d", p.Limit)
	}
	if p.Order != "asc" {
		t.Errorf("Expected order normalized to asc, got %s", p.Order)
	}
}

func TestParsePagination_Offset(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/spaces/getAll?page=3&limit=20", nil)
	p := ParsePagination(r)

	if p.Offset != 40 {
		t.Errorf("Expected offset 40, got %d", p.Offset)
	}
}

func TestPaginationMeta(t *testing.T) {
	p := Pagination{Page: 1, Limit: 10, Sort: "createdAt", Order: "desc"}

	meta := p.Meta(25)
	if meta.TotalPages != 3 {
		t.Errorf("Expected 3 total pages for 25 rows, got %d", meta.TotalPages)
	}

	meta = p.Meta(0)
	if meta.TotalPages != 0 {
		t.Errorf("Expected 0 total pages for empty result, got %d", meta.TotalPages)
	}
}

func TestParseJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/branches/create", strings.NewReader(`{"name":"Downtown"}`))

	var body struct {
		Name string `json:"name"`
	}
	if err := ParseJSON(r, &body); err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	if body.Name != "Downtown" {
		t.Errorf("Expected name Downtown, got %s", body.Name)
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/branches/create", strings.NewReader(`{bad`))

	var body map[string]interface{}
	if err := ParseJSON(r, &body); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}
