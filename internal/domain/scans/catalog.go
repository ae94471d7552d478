package scans

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Placeholders recognised in technique argument templates.
const (
	PlaceholderDomain = "{domain}"
	PlaceholderOutput = "{output}"
)

// Technique is a named argument template for one tool invocation.
type Technique struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args"`
}

// ToolSpec describes an external tool and how to split it into chunks.
type ToolSpec struct {
	Name           string        `yaml:"name"`
	Binary         string        `yaml:"binary"`
	Kind           PayloadKind   `yaml:"kind"`
	ArtifactSuffix string        `yaml:"artifactSuffix"`
	ChunkTimeout   time.Duration `yaml:"chunkTimeout"`
	MaxParallel    int           `yaml:"maxParallel"`
	Techniques     []Technique   `yaml:"techniques"`
}

// Catalog is the static set of tools a scan fans out to.
type Catalog []ToolSpec

// Validate reports catalog mistakes. These are configuration errors and are
// checked once at load time.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("catalog: no tools configured")
	}
	tools := make(map[string]bool, len(c))
	// ChunkID sanitizes names, so distinct pairs can still share an id
	// and with it an artifact path.
	chunks := make(map[string]string)
	for _, t := range c {
		if t.Name == "" || t.Binary == "" {
			return fmt.Errorf("catalog: tool needs name and binary: %+v", t)
		}
		if tools[t.Name] {
			return fmt.Errorf("catalog: duplicate tool %q", t.Name)
		}
		tools[t.Name] = true
		if t.Kind != PayloadCategories && t.Kind != PayloadNames {
			return fmt.Errorf("catalog: tool %q has unknown kind %q", t.Name, t.Kind)
		}
		if t.ChunkTimeout <= 0 {
			return fmt.Errorf("catalog: tool %q needs a positive chunkTimeout", t.Name)
		}
		if len(t.Techniques) == 0 {
			return fmt.Errorf("catalog: tool %q has no techniques", t.Name)
		}
		seen := make(map[string]bool, len(t.Techniques))
		for _, tech := range t.Techniques {
			if tech.Name == "" {
				return fmt.Errorf("catalog: tool %q has a technique without name", t.Name)
			}
			if seen[tech.Name] {
				return fmt.Errorf("catalog: tool %q has duplicate technique %q", t.Name, tech.Name)
			}
			seen[tech.Name] = true
			id := ChunkID("", t.Name, tech.Name)
			pair := t.Name + "/" + tech.Name
			if other, ok := chunks[id]; ok {
				return fmt.Errorf("catalog: %s and %s map to the same chunk id %q", other, pair, id)
			}
			chunks[id] = pair
			if !hasOutput(tech.Args) {
				return fmt.Errorf("catalog: technique %s/%s never references %s", t.Name, tech.Name, PlaceholderOutput)
			}
		}
	}
	return nil
}

func hasOutput(args []string) bool {
	for _, a := range args {
		if strings.Contains(a, PlaceholderOutput) {
			return true
		}
	}
	return false
}

// ChunkTask is one bounded tool invocation. Built once, never mutated.
type ChunkTask struct {
	Tool         string
	Technique    string
	ChunkID      string
	Binary       string
	Args         []string
	Kind         PayloadKind
	OutputBase   string // value substituted for {output}
	ArtifactPath string // OutputBase plus the tool's artifact suffix
	Timeout      time.Duration
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ChunkID namespaces a chunk by scan, tool and technique.
func ChunkID(scanID ScanID, tool, technique string) string {
	return unsafeChars.ReplaceAllString(fmt.Sprintf("%s_%s_%s", scanID, tool, technique), "-")
}

// BuildTasks expands a tool's techniques into chunk tasks, in catalog order.
// It has no side effects; the same inputs always give the same tasks.
func BuildTasks(scanID ScanID, domain string, tool ToolSpec, workDir string) []ChunkTask {
	tasks := make([]ChunkTask, 0, len(tool.Techniques))
	for _, tech := range tool.Techniques {
		id := ChunkID(scanID, tool.Name, tech.Name)
		base := filepath.Join(workDir, id)
		args := make([]string, len(tech.Args))
		for i, a := range tech.Args {
			a = strings.ReplaceAll(a, PlaceholderDomain, domain)
			args[i] = strings.ReplaceAll(a, PlaceholderOutput, base)
		}
		tasks = append(tasks, ChunkTask{
			Tool:         tool.Name,
			Technique:    tech.Name,
			ChunkID:      id,
			Binary:       tool.Binary,
			Args:         args,
			Kind:         tool.Kind,
			OutputBase:   base,
			ArtifactPath: base + tool.ArtifactSuffix,
			Timeout:      tool.ChunkTimeout,
		})
	}
	return tasks
}
