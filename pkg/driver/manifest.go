package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the project file looked up by FindManifest.
const ManifestFileName = "package.yml"

var (
	ErrManifestNotFound = errors.New("package.yml not found")
	ErrNoTargets        = errors.New("manifest: no targets defined")
)

// Manifest represents the parsed contents of package.yml.
type Manifest struct {
	Path        string
	Name        string
	Version     string
	Targets     map[string]*TargetSpec
	TargetOrder []string
	// Builtins restricts the base scope of every target. Empty means all.
	Builtins []string

	targetEntries []manifestTargetEntry
}

// TargetSpec describes a runnable program from the manifest. Main is
// relative to the manifest directory, or to the repository root for git
// targets.
type TargetSpec struct {
	Name         string
	OriginalName string
	Main         string
	Git          *GitRef
}

// GitRef pins a target to a revision of a git repository. Exactly one of
// Rev, Tag and Branch is set on a validated manifest.
type GitRef struct {
	URL    string
	Rev    string
	Tag    string
	Branch string
}

type manifestTargetEntry struct {
	sanitized string
	spec      *TargetSpec
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses package.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FindManifest walks up from start until it finds package.yml.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, ManifestFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", ManifestFileName, origin, ErrManifestNotFound)
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if len(m.targetEntries) == 0 {
		errs.Issues = append(errs.Issues, "at least one target must be defined")
	}

	targetNames := make(map[string]string, len(m.targetEntries))
	for _, entry := range m.targetEntries {
		target := entry.spec
		if target == nil {
			continue
		}
		if other, exists := targetNames[entry.sanitized]; exists {
			errs.Issues = append(errs.Issues, fmt.Sprintf("targets %q and %q collide after sanitization", other, target.OriginalName))
		} else {
			targetNames[entry.sanitized] = target.OriginalName
		}
		if target.Main == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q requires a main entrypoint", target.OriginalName))
		}
		for _, issue := range target.Git.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("targets.%s: %s", target.OriginalName, issue))
		}
	}

	seen := make(map[string]struct{}, len(m.Builtins))
	for _, name := range m.Builtins {
		if _, ok := lookupBuiltin(name); !ok {
			errs.Issues = append(errs.Issues, fmt.Sprintf("builtins: unknown builtin %q", name))
		}
		if _, dup := seen[name]; dup {
			errs.Issues = append(errs.Issues, fmt.Sprintf("builtins: %q listed more than once", name))
		}
		seen[name] = struct{}{}
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (g *GitRef) validate() []string {
	if g == nil {
		return nil
	}
	var errs []string
	if g.URL == "" {
		errs = append(errs, "rev, tag and branch require a git source")
	}
	pins := 0
	for _, v := range []string{g.Rev, g.Tag, g.Branch} {
		if v != "" {
			pins++
		}
	}
	if pins != 1 {
		errs = append(errs, "git targets require exactly one of rev, tag, or branch")
	}
	return errs
}

// Describe renders the pinned revision, e.g. "tag v1.0.0".
func (g *GitRef) Describe() string {
	switch {
	case g == nil:
		return ""
	case g.Rev != "":
		return "rev " + g.Rev
	case g.Tag != "":
		return "tag " + g.Tag
	default:
		return "branch " + g.Branch
	}
}

// DefaultTarget returns the first target in manifest order.
func (m *Manifest) DefaultTarget() (*TargetSpec, error) {
	if m == nil {
		return nil, ErrNoTargets
	}
	for _, entry := range m.targetEntries {
		if entry.spec != nil {
			return entry.spec, nil
		}
	}
	return nil, ErrNoTargets
}

// FindTarget looks up a target by sanitized or original name.
func (m *Manifest) FindTarget(name string) (*TargetSpec, bool) {
	if m == nil {
		return nil, false
	}
	key := sanitizeSegment(strings.TrimSpace(name))
	if key != "" {
		if target, ok := m.Targets[key]; ok && target != nil {
			return target, true
		}
	}
	for _, entry := range m.targetEntries {
		if entry.spec == nil {
			continue
		}
		if strings.EqualFold(entry.spec.OriginalName, strings.TrimSpace(name)) {
			return entry.spec, true
		}
	}
	return nil, false
}

// MainPath resolves a local target's entry file against the manifest
// directory.
func (m *Manifest) MainPath(target *TargetSpec) (string, error) {
	if m == nil || target == nil {
		return "", fmt.Errorf("missing manifest or target")
	}
	if target.Git != nil {
		return "", fmt.Errorf("target %q is fetched from git", target.OriginalName)
	}
	mainPath := strings.TrimSpace(target.Main)
	if mainPath == "" {
		return "", fmt.Errorf("target %q missing main entrypoint", target.OriginalName)
	}
	if filepath.IsAbs(mainPath) {
		return filepath.Clean(mainPath), nil
	}
	return filepath.Join(filepath.Dir(m.Path), filepath.FromSlash(mainPath)), nil
}

func sanitizeSegment(seg string) string {
	seg = strings.TrimSpace(seg)
	seg = strings.ReplaceAll(seg, "-", "_")
	return seg
}

type manifestFile struct {
	Name     string     `yaml:"name"`
	Version  string     `yaml:"version"`
	Targets  targetMap  `yaml:"targets"`
	Builtins stringList `yaml:"builtins"`
}

type targetYAML struct {
	Main   string `yaml:"main"`
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
}

type targetMap struct {
	items []targetMapEntry
}

type targetMapEntry struct {
	name string
	spec *targetYAML
}

func (tm *targetMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 {
		tm.items = nil
		return nil
	}
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		tm.items = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: targets must be a mapping")
	}
	items := make([]targetMapEntry, 0, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valueNode := value.Content[i+1]

		var key string
		if err := keyNode.Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: targets must not use empty keys")
		}
		entry := new(targetYAML)
		if err := entry.unmarshalYAML(valueNode); err != nil {
			return fmt.Errorf("manifest: target %q: %w", key, err)
		}
		items = append(items, targetMapEntry{name: key, spec: entry})
	}
	tm.items = items
	return nil
}

// A target is either a bare entry path or a mapping.
func (t *targetYAML) unmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*t = targetYAML{}
			return nil
		}
		*t = targetYAML{Main: value.Value}
		return nil
	case yaml.MappingNode:
		// Node.Decode does not inherit the decoder's KnownFields setting.
		for i := 0; i < len(value.Content); i += 2 {
			switch key := value.Content[i].Value; key {
			case "main", "git", "rev", "tag", "branch":
			default:
				return fmt.Errorf("line %d: field %s not found in target", value.Content[i].Line, key)
			}
		}
		type plain targetYAML
		var raw plain
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*t = targetYAML(raw)
		return nil
	case yaml.AliasNode:
		return t.unmarshalYAML(value.Alias)
	default:
		return fmt.Errorf("expected string or mapping, found %s", value.ShortTag())
	}
}

type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			str = strings.TrimSpace(str)
			if str == "" {
				continue
			}
			items = append(items, str)
		}
		*l = stringList(items)
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	case 0:
		*l = nil
		return nil
	default:
		return fmt.Errorf("manifest: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (mf manifestFile) toManifest(path string) *Manifest {
	targetCapacity := len(mf.Targets.items)
	result := &Manifest{
		Path:          path,
		Name:          sanitizeSegment(mf.Name),
		Version:       strings.TrimSpace(mf.Version),
		Targets:       make(map[string]*TargetSpec, targetCapacity),
		TargetOrder:   make([]string, 0, targetCapacity),
		targetEntries: make([]manifestTargetEntry, 0, targetCapacity),
	}
	if len(mf.Builtins) > 0 {
		result.Builtins = append([]string{}, mf.Builtins...)
	}

	for _, item := range mf.Targets.items {
		target := item.spec
		if target == nil {
			continue
		}
		original := strings.TrimSpace(item.name)
		sanitized := sanitizeSegment(original)
		spec := &TargetSpec{
			Name:         sanitized,
			OriginalName: original,
			Main:         strings.TrimSpace(target.Main),
		}
		ref := &GitRef{
			URL:    strings.TrimSpace(target.Git),
			Rev:    strings.TrimSpace(target.Rev),
			Tag:    strings.TrimSpace(target.Tag),
			Branch: strings.TrimSpace(target.Branch),
		}
		if *ref != (GitRef{}) {
			spec.Git = ref
		}
		if _, exists := result.Targets[sanitized]; !exists {
			result.Targets[sanitized] = spec
			result.TargetOrder = append(result.TargetOrder, sanitized)
		}
		result.targetEntries = append(result.targetEntries, manifestTargetEntry{
			sanitized: sanitized,
			spec:      spec,
		})
	}
	return result
}
