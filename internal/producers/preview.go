// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package producers

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// maxPreviewChars bounds both the raw-text and Go-declaration previews.
const maxPreviewChars = 500

// goSourcePreview summarizes the top-level declarations of a Go source
// file via tree-sitter, e.g. "func (c *Classifier) Classify, type Batch
// struct". ok is false when the content does not parse as Go (or
// parses with no recognizable top-level declarations), in which case
// the caller should fall back to the raw-text preview.
func goSourcePreview(content []byte) (string, bool) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return "", false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return "", false
	}

	var decls []string
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "function_declaration":
			decls = append(decls, "func "+declName(child, content))
		case "method_declaration":
			decls = append(decls, "func "+receiverAndName(child, content))
		case "type_declaration":
			decls = append(decls, typeDecls(child, content)...)
		}
	}

	if len(decls) == 0 {
		return "", false
	}

	out := joinTruncated(decls, maxPreviewChars)
	return out, true
}

func declName(node *sitter.Node, content []byte) string {
	name := node.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return string(content[name.StartByte():name.EndByte()])
}

func receiverAndName(node *sitter.Node, content []byte) string {
	recv := node.ChildByFieldName("receiver")
	name := node.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	if recv == nil {
		return string(content[name.StartByte():name.EndByte()])
	}
	return string(content[recv.StartByte():recv.EndByte()]) + " " + string(content[name.StartByte():name.EndByte()])
}

func typeDecls(node *sitter.Node, content []byte) []string {
	var out []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "type_spec":
			if s := typeSpecSummary(child, content); s != "" {
				out = append(out, s)
			}
		case "type_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() == "type_spec" {
					if s := typeSpecSummary(spec, content); s != "" {
						out = append(out, s)
					}
				}
			}
		}
	}
	return out
}

func typeSpecSummary(node *sitter.Node, content []byte) string {
	name := node.ChildByFieldName("name")
	kind := node.ChildByFieldName("type")
	if name == nil || kind == nil {
		return ""
	}
	nameStr := string(content[name.StartByte():name.EndByte()])
	switch kind.Type() {
	case "struct_type":
		return "type " + nameStr + " struct"
	case "interface_type":
		return "type " + nameStr + " interface"
	default:
		return "type " + nameStr
	}
}

func joinTruncated(parts []string, limit int) string {
	out := parts[0]
	for _, p := range parts[1:] {
		candidate := out + ", " + p
		if len(candidate) > limit {
			break
		}
		out = candidate
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
