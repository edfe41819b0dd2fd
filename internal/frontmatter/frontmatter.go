// Package frontmatter reads and writes the YAML frontmatter block that
// prefixes artifact metadata files (SKILL.md, COMMAND.md, and friends),
// grounded on original_source/skillmeat/utils/metadata.py's
// extract_yaml_frontmatter helper. Unknown keys round-trip untouched:
// writers decode into a yaml.Node rather than a fixed struct so a
// write-through update never clobbers fields SkillMeat does not itself
// understand.
package frontmatter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skillmeat/skillmeat/internal/errs"
)

const delimiter = "---"

// Document is a parsed metadata file: its frontmatter as an ordered YAML
// mapping node (preserving unknown keys) and the markdown body below it.
type Document struct {
	Frontmatter *yaml.Node
	Body        string
}

// Read parses path, splitting the leading "---\n...\n---\n" block from
// the body. A file with no frontmatter delimiter returns an empty
// mapping node and the whole file as Body.
func Read(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.TransientIO, "read metadata file", err)
	}
	return Parse(raw)
}

// Parse splits raw content into frontmatter and body without touching
// the filesystem.
func Parse(raw []byte) (*Document, error) {
	text := string(raw)
	if !strings.HasPrefix(text, delimiter) {
		return &Document{Frontmatter: emptyMapping(), Body: text}, nil
	}

	rest := text[len(delimiter):]
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n"+delimiter)
	if end == -1 {
		return &Document{Frontmatter: emptyMapping(), Body: text}, nil
	}

	yamlBlock := rest[:end]
	body := strings.TrimPrefix(rest[end+1+len(delimiter):], "\n")

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(yamlBlock), &node); err != nil {
		return nil, errs.Wrap(errs.Validation, "parse yaml frontmatter", err)
	}
	if len(node.Content) == 0 {
		return &Document{Frontmatter: emptyMapping(), Body: body}, nil
	}
	return &Document{Frontmatter: node.Content[0], Body: body}, nil
}

// ToMap decodes the frontmatter node into a plain map for read-only
// metadata extraction.
func (d *Document) ToMap() (map[string]any, error) {
	var m map[string]any
	if d.Frontmatter == nil {
		return map[string]any{}, nil
	}
	if err := d.Frontmatter.Decode(&m); err != nil {
		return nil, errs.Wrap(errs.Validation, "decode frontmatter", err)
	}
	return m, nil
}

// Set assigns key = value in the frontmatter mapping, inserting it if
// absent and preserving every other existing key's position.
func (d *Document) Set(key string, value any) error {
	encoded := &yaml.Node{}
	if err := encoded.Encode(value); err != nil {
		return errs.Wrap(errs.Validation, "encode frontmatter value", err)
	}
	if d.Frontmatter == nil || d.Frontmatter.Kind == 0 {
		d.Frontmatter = emptyMapping()
	}
	content := d.Frontmatter.Content
	for i := 0; i+1 < len(content); i += 2 {
		if content[i].Value == key {
			content[i+1] = encoded
			return nil
		}
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
	d.Frontmatter.Content = append(content, keyNode, encoded)
	return nil
}

// Render produces the full file content: the "---" delimited YAML block
// followed by the body, byte-for-byte stable for unchanged input.
func (d *Document) Render() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if d.Frontmatter != nil && len(d.Frontmatter.Content) > 0 {
		if err := enc.Encode(d.Frontmatter); err != nil {
			return nil, errs.Wrap(errs.Validation, "encode frontmatter", err)
		}
	}
	enc.Close()

	var out bytes.Buffer
	out.WriteString(delimiter)
	out.WriteString("\n")
	out.Write(buf.Bytes())
	out.WriteString(delimiter)
	out.WriteString("\n")
	out.WriteString(d.Body)
	return out.Bytes(), nil
}

// Write renders d and writes it to path atomically: a temp file in the
// same directory, then an os.Rename.
func Write(path string, d *Document) error {
	content, err := d.Render()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".frontmatter-*.tmp")
	if err != nil {
		return errs.Wrap(errs.TransientIO, "create temp metadata file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errs.Wrap(errs.TransientIO, "write temp metadata file", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.TransientIO, "close temp metadata file", err)
	}
	if info, statErr := os.Stat(path); statErr == nil {
		os.Chmod(tmpPath, info.Mode())
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errs.Wrap(errs.TransientIO, "rename temp metadata file into place", err)
	}
	return nil
}

func emptyMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}
