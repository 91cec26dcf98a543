package routeseeds

import (
	"reflect"
	"testing"
)

const routeTable = `
const routes = [
  { path: "/", element: Home },
  { path: "/orders", element: Orders },
  { path: "/orders/:id", element: OrderDetail },
  { path: "/pets/:petId/visits/:visitId", element: Visit },
  { path: "orders", element: Dup },
  { path: "/orders", element: DupAgain },
  { path: "*", element: NotFound },
]
<Route path={"/grooming"} />
`

func TestExtractPaths(t *testing.T) {
	paths := ExtractPaths(routeTable)
	want := []string{"/", "/orders", "/orders/:id", "/pets/:petId/visits/:visitId", "/grooming"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("ExtractPaths() = %v, want %v", paths, want)
	}
}

func TestExtractPathsDropsWildcards(t *testing.T) {
	paths := ExtractPaths(`path: "*"` + "\n" + `path: "/a/*"`)
	if len(paths) != 0 {
		t.Errorf("wildcard paths should be dropped, got %v", paths)
	}
}

func TestExpandStatic(t *testing.T) {
	urls, stats := Expand([]string{"/", "/orders", "/grooming"}, "https://app.example.com/ignored", nil, Options{})
	want := []string{"https://app.example.com/", "https://app.example.com/orders", "https://app.example.com/grooming"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("Expand() = %v, want %v", urls, want)
	}
	if stats.StaticPaths != 3 || stats.DynamicPaths != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestExpandDynamic(t *testing.T) {
	urls, stats := Expand(
		[]string{"/orders/:id"},
		"https://app.example.com",
		map[string][]string{"id": {"42", "99"}},
		Options{IncludeDynamic: true},
	)
	want := []string{"https://app.example.com/orders/42", "https://app.example.com/orders/99"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("Expand() = %v, want %v", urls, want)
	}
	if stats.DynamicExpanded != 2 {
		t.Errorf("DynamicExpanded = %d, want 2", stats.DynamicExpanded)
	}
}

func TestExpandDynamicDisabled(t *testing.T) {
	urls, stats := Expand(
		[]string{"/orders/:id"},
		"https://app.example.com",
		map[string][]string{"id": {"42"}},
		Options{IncludeDynamic: false},
	)
	if len(urls) != 0 {
		t.Errorf("expected no URLs, got %v", urls)
	}
	if stats.DynamicPaths != 1 {
		t.Errorf("DynamicPaths = %d, want 1", stats.DynamicPaths)
	}
}

func TestExpandMissingValueBlocksWholePath(t *testing.T) {
	for _, skipMissing := range []bool{true, false} {
		urls, _ := Expand(
			[]string{"/a/:x/:y"},
			"https://app.example.com",
			map[string][]string{"x": {"1"}},
			Options{IncludeDynamic: true, SkipMissing: skipMissing},
		)
		if len(urls) != 0 {
			t.Errorf("skipMissing=%v: expected no URLs for path with missing segment values, got %v", skipMissing, urls)
		}
	}
}

func TestExpandCartesianProduct(t *testing.T) {
	urls, _ := Expand(
		[]string{"/pets/:petId/visits/:visitId"},
		"https://app.example.com",
		map[string][]string{"petId": {"1", "2"}, "visitId": {"a"}},
		Options{IncludeDynamic: true},
	)
	want := []string{
		"https://app.example.com/pets/1/visits/a",
		"https://app.example.com/pets/2/visits/a",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("Expand() = %v, want %v", urls, want)
	}
}

func TestExpandCap(t *testing.T) {
	values := map[string][]string{"id": {"1", "2", "3", "4", "5"}}
	urls, stats := Expand(
		[]string{"/orders/:id"},
		"https://app.example.com",
		values,
		Options{IncludeDynamic: true, MaxPerPath: 3},
	)
	if len(urls) != 3 {
		t.Errorf("expected 3 capped URLs, got %d", len(urls))
	}
	if stats.CappedPaths != 1 {
		t.Errorf("CappedPaths = %d, want 1", stats.CappedPaths)
	}
}

func TestNormalizeParamValues(t *testing.T) {
	got := NormalizeParamValues(map[string][]string{
		"id":    {" 42 ", "42", "undefined", "null", "", "99"},
		"empty": {"", "NaN"},
	})
	want := map[string][]string{"id": {"42", "99"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeParamValues() = %v, want %v", got, want)
	}
}

func TestExtractParamValues(t *testing.T) {
	matchers := BuildMatchers([]string{"/orders/:id", "/pets/:petId/visits/:visitId", "/static"})

	urls := []string{
		"https://app.example.com/orders/42",
		"https://app.example.com/orders/42",
		"https://app.example.com/orders/undefined",
		"https://app.example.com/orders/99/extra", // segment count mismatch
		"https://app.example.com/pets/7/visits/v1",
		"https://app.example.com/static",
	}

	got := ExtractParamValues(matchers, urls)
	want := map[string][]string{
		"id":      {"42"},
		"petId":   {"7"},
		"visitId": {"v1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractParamValues() = %v, want %v", got, want)
	}
}

func TestParams(t *testing.T) {
	got := Params("/pets/:petId/visits/:visitId")
	want := []string{"petId", "visitId"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Params() = %v, want %v", got, want)
	}
	if len(Params("/static")) != 0 {
		t.Error("static path should have no params")
	}
}
