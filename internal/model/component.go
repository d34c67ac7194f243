package model

import (
	"strings"
	"time"
)

// Repository property names read from component metadata.
const (
	PropTitle             = "jcr:title"
	PropDescription       = "jcr:description"
	PropResourceType      = "sling:resourceType"
	PropResourceSuperType = "sling:resourceSuperType"
	PropComponentGroup    = "componentGroup"
	PropIsContainer       = "cq:isContainer"
	PropAllowedParents    = "allowedParents"
	PropAllowedChildren   = "allowedChildren"
)

// TemplateKind identifies the markup language of a component template.
type TemplateKind string

const (
	// TemplateHTL is an HTML Template Language file (.html).
	TemplateHTL TemplateKind = "HTL"

	// TemplateJSP is a legacy JSP script (.jsp).
	TemplateJSP TemplateKind = "JSP"
)

// TemplateKindForPath derives the template kind from the file extension.
func TemplateKindForPath(path string) TemplateKind {
	if strings.HasSuffix(path, ".jsp") {
		return TemplateJSP
	}
	return TemplateHTL
}

// TemplateRef is the template that renders a component.
type TemplateRef struct {
	// Path is the repository path the template was fetched from.
	Path string `json:"path"`

	// Kind is HTL or JSP.
	Kind TemplateKind `json:"type"`

	// Size is the template length in bytes.
	Size int `json:"size"`

	// Content is the raw template text.
	Content string `json:"content,omitempty"`
}

// ChildComponentDescriptor is a child resource referenced from a template.
type ChildComponentDescriptor struct {
	// Path is the content path passed to data-sly-resource.
	Path string `json:"path"`

	// ResourceType is the declared resource type of the child.
	ResourceType string `json:"resourceType"`

	// ResolvedDependencies holds the child's graph when this reference
	// triggered the child's analysis during the run.
	ResolvedDependencies *DependencyGraph `json:"resolveddependencies,omitempty"`

	// Ref names the identifier of a graph that another reference already
	// analyzed in this run.
	Ref string `json:"ref,omitempty"`

	// Skipped explains why a child was not expanded (excluded namespace,
	// depth limit). Empty when recursion was disabled.
	Skipped string `json:"skipped,omitempty"`
}

// Configurations holds the optional _cq_* artifacts of a component.
// A nil field means the artifact does not exist or could not be fetched.
type Configurations struct {
	Dialog          map[string]any `json:"dialog,omitempty"`
	DesignDialog    map[string]any `json:"designDialog,omitempty"`
	EditConfig      map[string]any `json:"editConfig,omitempty"`
	HTMLTag         map[string]any `json:"htmlTag,omitempty"`
	Template        map[string]any `json:"template,omitempty"`
	ChildEditConfig map[string]any `json:"childEditConfig,omitempty"`
}

// Present returns the names of artifacts that were found.
func (c *Configurations) Present() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, 6)
	for _, entry := range []struct {
		name string
		data map[string]any
	}{
		{"dialog", c.Dialog},
		{"designDialog", c.DesignDialog},
		{"editConfig", c.EditConfig},
		{"htmlTag", c.HTMLTag},
		{"template", c.Template},
		{"childEditConfig", c.ChildEditConfig},
	} {
		if entry.data != nil {
			names = append(names, entry.name)
		}
	}
	return names
}

// ComponentNode is one analyzed component.
// It is populated by the crawl phases and not modified afterwards.
type ComponentNode struct {
	// Identifier is the repository path of the component.
	Identifier string `json:"path"`

	// ResourceType is the declared sling:resourceType, or the identifier
	// when the component does not declare one.
	ResourceType string `json:"resourceType"`

	// ResourceSuperType is the component this one inherits from.
	ResourceSuperType string `json:"resourceSuperType,omitempty"`

	Title           string   `json:"title,omitempty"`
	Description     string   `json:"description,omitempty"`
	ComponentGroup  string   `json:"componentGroup,omitempty"`
	IsContainer     bool     `json:"isContainer"`
	AllowedParents  []string `json:"allowedParents,omitempty"`
	AllowedChildren []string `json:"allowedChildren,omitempty"`

	// Properties is the raw metadata record. Empty when metadata could not be fetched.
	Properties map[string]any `json:"properties"`

	// MetadataFound is false when the metadata fetch failed.
	MetadataFound bool `json:"metadataFound"`

	// Template is nil when no candidate template path resolved.
	Template *TemplateRef `json:"template,omitempty"`

	// ChildComponents preserves template order, duplicates included.
	ChildComponents []*ChildComponentDescriptor `json:"childComponents"`

	// TemplateCalls are the data-sly-call invocations in the template.
	TemplateCalls []TemplateCall `json:"templates,omitempty"`

	Configurations *Configurations `json:"configurations,omitempty"`

	// Dialog is the field analysis of the touch UI dialog.
	Dialog *DialogInfo `json:"dialogAnalysis,omitempty"`

	AnalyzedAt time.Time `json:"analyzedAt"`
}

// NewComponentNode creates an empty node for identifier.
func NewComponentNode(identifier string) *ComponentNode {
	return &ComponentNode{
		Identifier:      identifier,
		ResourceType:    identifier,
		Properties:      make(map[string]any),
		ChildComponents: make([]*ChildComponentDescriptor, 0),
		AnalyzedAt:      time.Now().UTC(),
	}
}

// ApplyMetadata copies well-known properties out of the metadata record.
func (n *ComponentNode) ApplyMetadata(props map[string]any) {
	if props == nil {
		return
	}
	n.Properties = props
	n.MetadataFound = true
	if v := StringProperty(props, PropResourceType); v != "" {
		n.ResourceType = v
	}
	n.ResourceSuperType = StringProperty(props, PropResourceSuperType)
	n.Title = StringProperty(props, PropTitle)
	n.Description = StringProperty(props, PropDescription)
	n.ComponentGroup = StringProperty(props, PropComponentGroup)
	n.IsContainer = BoolProperty(props, PropIsContainer)
	n.AllowedParents = StringList(props[PropAllowedParents])
	n.AllowedChildren = StringList(props[PropAllowedChildren])
}

// TemplateCall is an object/method pair from data-sly-call="${obj.method @ ...}".
type TemplateCall struct {
	Object string `json:"object"`
	Method string `json:"method"`
}
