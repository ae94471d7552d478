package scans

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func harvester() ToolSpec {
	return ToolSpec{
		Name:           "theHarvester",
		Binary:         "theHarvester",
		Kind:           PayloadCategories,
		ArtifactSuffix: ".json",
		ChunkTimeout:   30 * time.Second,
		Techniques: []Technique{
			{Name: "crtsh", Args: []string{"-d", "{domain}", "-b", "crtsh", "-f", "{output}"}},
			{Name: "bing", Args: []string{"-d", "{domain}", "-b", "bing", "-f", "{output}"}},
		},
	}
}

func TestBuildTasks(t *testing.T) {
	tasks := BuildTasks("s1", "example.com", harvester(), "/work")
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}

	first := tasks[0]
	if first.ChunkID != "s1_theHarvester_crtsh" {
		t.Errorf("chunk id = %q", first.ChunkID)
	}
	wantBase := filepath.Join("/work", "s1_theHarvester_crtsh")
	want := []string{"-d", "example.com", "-b", "crtsh", "-f", wantBase}
	if !reflect.DeepEqual(first.Args, want) {
		t.Errorf("args = %v, want %v", first.Args, want)
	}
	if first.ArtifactPath != wantBase+".json" {
		t.Errorf("artifact path = %q", first.ArtifactPath)
	}
	if first.Timeout != 30*time.Second || first.Kind != PayloadCategories {
		t.Errorf("unexpected task %+v", first)
	}
	if tasks[1].Technique != "bing" {
		t.Errorf("tasks out of catalog order: %v", tasks[1].Technique)
	}
}

func TestBuildTasks_Deterministic(t *testing.T) {
	a := BuildTasks("s1", "example.com", harvester(), "/work")
	b := BuildTasks("s1", "example.com", harvester(), "/work")
	if !reflect.DeepEqual(a, b) {
		t.Error("same inputs gave different tasks")
	}
}

func TestBuildTasks_DoesNotMutateCatalog(t *testing.T) {
	tool := harvester()
	BuildTasks("s1", "example.com", tool, "/work")
	if tool.Techniques[0].Args[1] != "{domain}" {
		t.Error("template args were rewritten")
	}
}

func TestChunkID_Sanitizes(t *testing.T) {
	got := ChunkID("a/b", "tool name", "x:y")
	if got != "a-b_tool-name_x-y" {
		t.Errorf("ChunkID = %q", got)
	}
}

func TestCatalog_Validate(t *testing.T) {
	ok := Catalog{harvester()}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid catalog rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c Catalog) Catalog
		want   string
	}{
		{"empty", func(Catalog) Catalog { return nil }, "no tools"},
		{"duplicate tool", func(c Catalog) Catalog { return append(c, c[0]) }, "duplicate tool"},
		{"bad kind", func(c Catalog) Catalog { c[0].Kind = "xml"; return c }, "unknown kind"},
		{"no timeout", func(c Catalog) Catalog { c[0].ChunkTimeout = 0; return c }, "chunkTimeout"},
		{"no techniques", func(c Catalog) Catalog { c[0].Techniques = nil; return c }, "no techniques"},
		{"no binary", func(c Catalog) Catalog { c[0].Binary = ""; return c }, "name and binary"},
		{"duplicate technique", func(c Catalog) Catalog {
			c[0].Techniques = append(c[0].Techniques, c[0].Techniques[0])
			return c
		}, "duplicate technique"},
		{"missing output", func(c Catalog) Catalog {
			c[0].Techniques = []Technique{{Name: "x", Args: []string{"-d", "{domain}"}}}
			return c
		}, "{output}"},
		{"chunk id collision across tools", func(c Catalog) Catalog {
			a := c[0]
			a.Name, a.Techniques = "a_b", []Technique{{Name: "c", Args: []string{"{output}"}}}
			b := c[0]
			b.Name, b.Techniques = "a", []Technique{{Name: "b_c", Args: []string{"{output}"}}}
			return Catalog{a, b}
		}, "same chunk id"},
		{"chunk id collision after sanitizing", func(c Catalog) Catalog {
			c[0].Techniques = []Technique{
				{Name: "x y", Args: []string{"{output}"}},
				{Name: "x/y", Args: []string{"{output}"}},
			}
			return c
		}, "same chunk id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.mutate(Catalog{harvester()})
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}
