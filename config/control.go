package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ghodss/yaml"
)

// ReadControlFile reads the legacy control-file syntax: nested `{ }` blocks
// of one-line key value pairs, `;;` line comments, double-quoted strings and
// `#include "path"` textual inclusion resolved relative to the including
// file. The parsed tree is converted to the same Options as a YAML case.
func ReadControlFile(filename string) (opts Options, err error) {
	lines, err := includeFile(filename, 0)
	if err != nil {
		return opts, err
	}
	tree, rest, err := parseBlock(lines, true)
	if err != nil {
		return opts, err
	}
	if len(rest) != 0 {
		return opts, fmt.Errorf("unmatched closing brace near %q", strings.Join(rest[0], " "))
	}
	fixupBC(tree)
	data, err := yaml.Marshal(tree)
	if err != nil {
		return opts, fmt.Errorf("control file conversion: %w", err)
	}
	return Parse(data)
}

const maxIncludeDepth = 16

// includeFile loads a file as comment-stripped token lines, splicing in
// #include'd files.
func includeFile(filename string, depth int) (lines [][]string, err error) {
	if depth > maxIncludeDepth {
		return nil, fmt.Errorf("include nesting deeper than %d at %s", maxIncludeDepth, filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open control file: %w", err)
	}
	for _, raw := range strings.Split(string(data), "\n") {
		if i := strings.Index(raw, ";;"); i >= 0 {
			raw = raw[:i]
		}
		toks := splitTokens(raw)
		if len(toks) == 0 {
			continue
		}
		if toks[0] == "#include" {
			if len(toks) != 2 {
				return nil, fmt.Errorf("#include wants exactly one path in %s", filename)
			}
			path := toks[1]
			if !filepath.IsAbs(path) {
				path = filepath.Join(filepath.Dir(filename), path)
			}
			sub, err := includeFile(path, depth+1)
			if err != nil {
				return nil, err
			}
			lines = append(lines, sub...)
			continue
		}
		lines = append(lines, toks)
	}
	return lines, nil
}

// splitTokens splits a line on whitespace, keeping double-quoted strings as
// one token without their quotes and detaching braces from adjacent words.
func splitTokens(line string) (toks []string) {
	var (
		cur      strings.Builder
		inQuotes bool
	)
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			if inQuotes {
				toks = append(toks, cur.String())
				cur.Reset()
			} else {
				flush()
			}
			inQuotes = !inQuotes
		case inQuotes:
			cur.WriteRune(r)
		case r == '{' || r == '}':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return
}

// parseBlock consumes lines until the closing brace (or end of input at the
// top level) and returns the key tree.
func parseBlock(lines [][]string, top bool) (tree map[string]interface{}, rest [][]string, err error) {
	tree = make(map[string]interface{})
	for len(lines) > 0 {
		toks := lines[0]
		lines = lines[1:]
		if toks[0] == "}" {
			if top {
				return nil, nil, fmt.Errorf("closing brace without an open block")
			}
			return tree, lines, nil
		}
		key := toks[0]
		switch {
		case len(toks) >= 2 && toks[len(toks)-1] == "{":
			var sub map[string]interface{}
			if sub, lines, err = parseBlock(lines, false); err != nil {
				return nil, nil, err
			}
			tree[key] = sub
		case len(toks) == 1:
			return nil, nil, fmt.Errorf("key %q has no value", key)
		case len(toks) == 2:
			tree[key] = convertToken(toks[1])
		default:
			vals := make([]interface{}, 0, len(toks)-1)
			for _, t := range toks[1:] {
				vals = append(vals, convertToken(t))
			}
			tree[key] = vals
		}
	}
	if !top {
		return nil, nil, fmt.Errorf("block not closed before end of file")
	}
	return tree, lines, nil
}

func convertToken(tok string) interface{} {
	if b, err := strconv.ParseBool(tok); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return f
	}
	return tok
}

// fixupBC rewrites the bc block: every anonymous sub-block carrying a "type"
// key joins the boundaries list, and a "periodic" sub-block becomes the
// periodic pair. Everything else in bc stays as is.
func fixupBC(tree map[string]interface{}) {
	bc, ok := tree["bc"].(map[string]interface{})
	if !ok {
		return
	}
	var keys []string
	for key, val := range bc {
		sub, ok := val.(map[string]interface{})
		if !ok || key == "periodic" {
			continue
		}
		if _, hasType := sub["type"]; hasType {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	var boundaries []interface{}
	for _, key := range keys {
		boundaries = append(boundaries, bc[key])
		delete(bc, key)
	}
	if boundaries != nil {
		bc["boundaries"] = boundaries
	}
	// a one-element marker list parses as a scalar
	for _, key := range []string{"listof_output_wall_boundaries", "listof_output_other_boundaries"} {
		if v, ok := bc[key]; ok {
			if _, isList := v.([]interface{}); !isList {
				bc[key] = []interface{}{v}
			}
		}
	}
}
