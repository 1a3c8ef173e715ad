package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/jsonstash/jsonstash/internal/document/diff"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func checkFormat(f string, allowed ...string) error {
	for _, a := range allowed {
		if f == a {
			return nil
		}
	}
	return fmt.Errorf("invalid --format %q (want %s)", f, strings.Join(allowed, ", "))
}

// writeJSON writes v pretty-printed the same way store files are.
func writeJSON(w io.Writer, v any) error {
	body, err := document.Encode(v)
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// yamlValue converts a decoded document into values yaml.v3 renders as the
// same JSON types. json.Number is emitted as a plain numeric scalar with its
// original digits.
func yamlValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(string(t), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(t)}
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = yamlValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = yamlValue(e)
		}
		return out
	default:
		return v
	}
}

type yamlChange struct {
	Path string    `yaml:"path"`
	Kind diff.Kind `yaml:"kind"`
	Old  any       `yaml:"old,omitempty"`
	New  any       `yaml:"new,omitempty"`
}

type diffReport struct {
	A       string        `json:"a" yaml:"a"`
	B       string        `json:"b" yaml:"b"`
	Equal   bool          `json:"equal" yaml:"equal"`
	Summary string        `json:"summary" yaml:"summary"`
	Changes []diff.Change `json:"changes" yaml:"-"`
	YAML    []yamlChange  `json:"-" yaml:"changes"`
}

func newDiffReport(a, b string, res *diff.Result) *diffReport {
	r := &diffReport{A: a, B: b, Equal: res.Empty(), Summary: res.Summary(), Changes: res.Changes}
	r.YAML = make([]yamlChange, 0, len(res.Changes))
	for _, c := range res.Changes {
		r.YAML = append(r.YAML, yamlChange{Path: c.Path, Kind: c.Kind, Old: yamlValue(c.Old), New: yamlValue(c.New)})
	}
	return r
}
