// Package dialog extracts authorable fields from a touch UI dialog tree.
package dialog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/nao1215/componentscan/internal/model"
)

const (
	propName         = "name"
	propFieldLabel   = "fieldLabel"
	propFieldDesc    = "fieldDescription"
	propValue        = "value"
	propRequired     = "required"
	propText         = "text"
	nodeItems        = "items"
	namePrefix       = "./"
	maxTreeDepth     = 32
	defaultFieldType = model.PropString
)

// propTypes maps the last segment of a Granite UI field resource type to a prop type.
var propTypes = map[string]model.PropType{
	"textfield":   model.PropString,
	"textarea":    model.PropString,
	"pathfield":   model.PropString,
	"pathbrowser": model.PropString,
	"select":      model.PropString,
	"radiogroup":  model.PropString,
	"datepicker":  model.PropString,
	"colorfield":  model.PropString,
	"richtext":    model.PropString,
	"numberfield": model.PropNumber,
	"range":       model.PropNumber,
	"checkbox":    model.PropBoolean,
	"switch":      model.PropBoolean,
}

// InferPropType returns the prop type for a field resource type.
func InferPropType(resourceType string) model.PropType {
	if t, ok := propTypes[path.Base(resourceType)]; ok {
		return t
	}
	return defaultFieldType
}

// ErrNotObject is returned by AnalyzeJSON when the document is not a JSON object.
var ErrNotObject = errors.New("dialog is not a JSON object")

// Analyze collects the fields of a decoded touch UI dialog. A nil dialog
// yields type none. A decoded map has lost the authoring order, so
// sibling nodes are visited in name order; AnalyzeJSON keeps it.
func Analyze(dialog map[string]any) *model.DialogInfo {
	if dialog == nil {
		return analyze(nil)
	}
	return analyze(fromMap(dialog, 0))
}

// AnalyzeJSON collects the fields of a touch UI dialog document, visiting
// sibling nodes in the order they are authored.
func AnalyzeJSON(data []byte) (*model.DialogInfo, error) {
	root, err := parseNode(data, 0)
	if err != nil {
		return nil, err
	}
	return analyze(root), nil
}

func analyze(root *node) *model.DialogInfo {
	info := &model.DialogInfo{Type: model.DialogNone, Fields: make([]model.DialogField, 0)}
	if root == nil {
		return info
	}
	info.Type = model.DialogTouch

	seen := make(map[string]bool)
	var walk func(n *node)
	walk = func(n *node) {
		if f, ok := fieldOf(n); ok && !seen[f.Name] {
			seen[f.Name] = true
			info.Fields = append(info.Fields, f)
		}
		for _, c := range n.children {
			walk(c.node)
		}
	}
	walk(root)

	return info
}

// node is a dialog tree node. Child objects are kept apart from scalar
// properties, in order.
type node struct {
	props    map[string]any
	children []namedNode
}

type namedNode struct {
	name string
	node *node
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c.node
		}
	}
	return nil
}

func fromMap(m map[string]any, depth int) *node {
	n := &node{props: make(map[string]any, len(m))}
	names := make([]string, 0)
	for k, v := range m {
		if _, ok := v.(map[string]any); ok {
			names = append(names, k)
			continue
		}
		n.props[k] = v
	}
	if depth >= maxTreeDepth {
		return n
	}
	sort.Strings(names)
	for _, name := range names {
		n.children = append(n.children, namedNode{name: name, node: fromMap(m[name].(map[string]any), depth+1)})
	}
	return n
}

// parseNode decodes a JSON object token by token so that object members
// keep their document order.
func parseNode(data []byte, depth int) (*node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	n := &node{props: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
		}
		raw = bytes.TrimSpace(raw)

		if len(raw) > 0 && raw[0] == '{' {
			if depth >= maxTreeDepth {
				continue
			}
			c, err := parseNode(raw, depth+1)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, namedNode{name: key, node: c})
			continue
		}

		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
		}
		n.props[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotObject, err)
	}
	return n, nil
}

func fieldOf(n *node) (model.DialogField, bool) {
	name := model.StringProperty(n.props, propName)
	resourceType := model.StringProperty(n.props, model.PropResourceType)
	if name == "" || resourceType == "" {
		return model.DialogField{}, false
	}
	name = strings.TrimPrefix(name, namePrefix)
	// Hidden helper fields such as "./title@Delete" are not props.
	if name == "" || strings.Contains(name, "@") {
		return model.DialogField{}, false
	}

	label := model.StringProperty(n.props, propFieldLabel)
	if label == "" {
		label = model.StringProperty(n.props, model.PropTitle)
	}

	return model.DialogField{
		Name:         name,
		ResourceType: resourceType,
		Label:        label,
		Description:  model.StringProperty(n.props, propFieldDesc),
		DefaultValue: n.props[propValue],
		Required:     model.BoolProperty(n.props, propRequired),
		Options:      optionsOf(n),
		PropType:     InferPropType(resourceType),
	}, true
}

func optionsOf(n *node) []model.FieldOption {
	items := n.child(nodeItems)
	if items == nil {
		return nil
	}
	options := make([]model.FieldOption, 0)
	for _, c := range items.children {
		text := model.StringProperty(c.node.props, propText)
		if text == "" {
			text = model.StringProperty(c.node.props, model.PropTitle)
		}
		value := model.StringProperty(c.node.props, propValue)
		if text == "" && value == "" {
			continue
		}
		options = append(options, model.FieldOption{Text: text, Value: value})
	}
	return options
}
