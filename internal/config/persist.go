package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// persistMu serializes every in-place rewrite of the config file. Config
// itself is otherwise read-only after Load, so this mutex only needs to
// guard the file, not in-memory field access across goroutines beyond what
// the two callers below already do under their own locks.
var persistMu sync.Mutex

// SetOpenSearchEndpoint records the remote cluster's describe-domain
// endpoint discovered during Phase A, both in memory and, when the
// supervisor was started from a config file, in the file itself. The
// rewrite preserves every other key exactly as the operator wrote it: only
// the remote.endpoint_url scalar is replaced.
func (c *Config) SetOpenSearchEndpoint(endpoint string) error {
	c.Remote.EndpointURL = endpoint
	if c.sourcePath == "" {
		return nil
	}
	return rewriteKey(c.sourcePath, []string{"remote", "endpoint_url"}, endpoint)
}

// Update applies patch to a copy of the current configuration, validates
// the result, and only persists it to disk if valid. The original Config
// is left untouched on failure. This resolves the Control API's
// POST /api/config/update semantics: merge, re-validate, persist-if-valid.
func (c *Config) Update(patch map[string]any) (*Config, error) {
	persistMu.Lock()
	defer persistMu.Unlock()

	merged, err := c.mergedCopy(patch)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	if merged.sourcePath != "" {
		if err := rewritePatch(merged.sourcePath, patch); err != nil {
			return nil, fmt.Errorf("persist config update: %w", err)
		}
	}

	return merged, nil
}

// mergedCopy layers patch on top of c's current values using the same
// koanf instance machinery Load uses, so struct fields not named in patch
// keep their current value and the koanf struct tags (not yaml tags,
// which this struct does not carry) drive the field mapping.
func (c *Config) mergedCopy(patch map[string]any) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(c, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("%w: load current config: %v", apperrors.ErrConfigInvalid, err)
	}
	if err := k.Load(confmap.Provider(patch, "."), nil); err != nil {
		return nil, fmt.Errorf("%w: apply patch: %v", apperrors.ErrConfigInvalid, err)
	}

	merged := &Config{}
	if err := k.Unmarshal("", merged); err != nil {
		return nil, fmt.Errorf("%w: decode merged config: %v", apperrors.ErrConfigInvalid, err)
	}
	merged.sourcePath = c.sourcePath
	merged.Credentials = c.Credentials
	return merged, nil
}

// rewriteKey rewrites a single scalar at the given dotted path inside the
// YAML document at path, preserving every other key, comment, and the
// document's original key ordering. path elements are koanf tag names,
// e.g. []string{"remote", "endpoint_url"}.
func rewriteKey(path string, keys []string, value string) error {
	persistMu.Lock()
	defer persistMu.Unlock()

	doc, err := readDocNode(path)
	if err != nil {
		return err
	}

	node := findOrCreate(doc, keys)
	node.Kind = yaml.ScalarNode
	node.Tag = "!!str"
	node.Value = value
	node.Style = 0

	return writeDocNode(path, doc)
}

// rewritePatch rewrites every scalar leaf named in patch into the YAML
// document at path, preserving unrelated keys.
func rewritePatch(path string, patch map[string]any) error {
	doc, err := readDocNode(path)
	if err != nil {
		return err
	}
	if err := applyPatchNode(doc, patch); err != nil {
		return err
	}
	return writeDocNode(path, doc)
}

func applyPatchNode(doc *yaml.Node, patch map[string]any) error {
	for k, v := range patch {
		switch val := v.(type) {
		case map[string]any:
			node := findOrCreate(doc, []string{k})
			if node.Kind != yaml.MappingNode {
				node.Kind = yaml.MappingNode
				node.Tag = "!!map"
				node.Content = nil
			}
			if err := applyPatchNode(node, val); err != nil {
				return err
			}
		default:
			node := findOrCreate(doc, []string{k})
			if err := setScalar(node, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func setScalar(node *yaml.Node, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode patch value: %v", apperrors.ErrConfigInvalid, err)
	}
	var tmp yaml.Node
	if err := yaml.Unmarshal(b, &tmp); err != nil {
		return fmt.Errorf("%w: decode patch value: %v", apperrors.ErrConfigInvalid, err)
	}
	if len(tmp.Content) == 1 {
		*node = *tmp.Content[0]
		return nil
	}
	node.Kind = yaml.ScalarNode
	node.Tag = "!!str"
	node.Value = fmt.Sprintf("%v", v)
	return nil
}

func readDocNode(path string) (*yaml.Node, error) {
	var root yaml.Node
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			root.Kind = yaml.MappingNode
			root.Tag = "!!map"
			return &root, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if root.Kind == 0 {
		root.Kind = yaml.MappingNode
		root.Tag = "!!map"
	}
	return &root, nil
}

func writeDocNode(path string, doc *yaml.Node) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config file %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}

// findOrCreate walks a mapping node (unwrapping a one-element document node
// first, if present) along keys, creating any missing intermediate mapping
// nodes, and returns the final scalar/mapping node for the last key.
func findOrCreate(n *yaml.Node, keys []string) *yaml.Node {
	m := n
	if m.Kind == yaml.DocumentNode {
		if len(m.Content) == 0 {
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"})
		}
		m = m.Content[0]
	}
	if m.Kind != yaml.MappingNode {
		m.Kind = yaml.MappingNode
		m.Tag = "!!map"
		m.Content = nil
	}

	for i, key := range keys {
		last := i == len(keys)-1
		for j := 0; j < len(m.Content); j += 2 {
			if m.Content[j].Value == key {
				if last {
					return m.Content[j+1]
				}
				m = m.Content[j+1]
				if m.Kind != yaml.MappingNode {
					m.Kind = yaml.MappingNode
					m.Tag = "!!map"
					m.Content = nil
				}
				goto next
			}
		}
		{
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
			valNode := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			if last {
				valNode.Kind = yaml.ScalarNode
				valNode.Tag = "!!str"
			}
			m.Content = append(m.Content, keyNode, valNode)
			if last {
				return valNode
			}
			m = valNode
		}
	next:
	}
	return m
}
