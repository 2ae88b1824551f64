// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

package config

import (
	"fmt"
	"io"
	"strings"
)

// Serialize writes t back out in the same grammar Parse reads. A
// parse-then-serialize-then-reparse round trip yields a structurally
// equal Tree, though the byte-for-byte text need not match the input
// (formatting, quoting choices, and comments are not preserved --
// comments carry no semantic content in the grammar).
func (t *Tree) Serialize(w io.Writer) error {
	return t.writeSection(w, nil)
}

func (t *Tree) writeSection(w io.Writer, path []string) error {
	var keys []string
	var subsections []string
	for _, name := range t.order {
		n := t.nodes[name]
		if n.IsLeaf() {
			keys = append(keys, name)
		} else {
			subsections = append(subsections, name)
		}
	}

	for _, name := range keys {
		n := t.nodes[name]
		line, err := formatAssignment(name, n)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	for _, name := range subsections {
		n := t.nodes[name]
		header := append(append([]string(nil), path...), name)
		switch {
		case n.Section != nil:
			if err := writeHeaderedSection(w, header, n.Section); err != nil {
				return err
			}
		case len(n.Multi) > 0:
			for _, sub := range n.Multi {
				if err := writeHeaderedSection(w, header, sub); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// writeHeaderedSection prints "[a/b/.../name]" for the full
// accumulated path -- every bracket header the parser sees is resolved
// from the document root, so a nested subsection's own children must
// repeat the full path, not just their own local name.
func writeHeaderedSection(w io.Writer, header []string, sub *Tree) error {
	if _, err := fmt.Fprintf(w, "[%s]\n", strings.Join(header, "/")); err != nil {
		return err
	}
	return sub.writeSection(w, header)
}

func formatAssignment(name string, n *Node) (string, error) {
	switch {
	case n.Scalar != nil:
		return fmt.Sprintf("%s=%s", name, formatValue(*n.Scalar)), nil
	case n.Array != nil:
		parts := make([]string, len(n.Array))
		for i, v := range n.Array {
			parts[i] = formatValue(v)
		}
		return fmt.Sprintf("%s=%s", name, strings.Join(parts, ",")), nil
	default:
		return "", fmt.Errorf("config: node %q is neither scalar nor array", name)
	}
}

// formatValue quotes v when it contains characters the grammar would
// otherwise misparse (comma, comment markers, leading/trailing space,
// quote, backslash, line break), and leaves it bare otherwise.
func formatValue(v string) string {
	if v == "" || needsQuoting(v) {
		return quoteValue(v)
	}
	return v
}

func needsQuoting(v string) bool {
	if strings.TrimSpace(v) != v {
		return true
	}
	return strings.ContainsAny(v, ",;#\"\\\n\r")
}

func quoteValue(v string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\t':
			b.WriteString("\\t")
		case '\r':
			b.WriteString("\\r")
		default:
			b.WriteByte(v[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

// String renders t via Serialize, for debugging and tests.
func (t *Tree) String() string {
	var b strings.Builder
	_ = t.Serialize(&b)
	return b.String()
}
