package model

// DialogType describes which authoring dialog a component has.
type DialogType string

const (
	// DialogTouch is a touch UI dialog (_cq_dialog).
	DialogTouch DialogType = "touch"

	// DialogNone means the component has no dialog.
	DialogNone DialogType = "none"
)

// PropType is the inferred type of a dialog field when mapped to a component prop.
type PropType string

// Prop types produced by dialog analysis.
const (
	PropString  PropType = "string"
	PropNumber  PropType = "number"
	PropBoolean PropType = "boolean"
)

// FieldOption is one entry of a select field.
type FieldOption struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// DialogField is an authorable field found in a dialog.
type DialogField struct {
	// Name is the property the field writes, without the leading "./".
	Name string `json:"name"`

	// ResourceType is the Granite UI field type.
	ResourceType string `json:"resourceType"`

	Label        string        `json:"label,omitempty"`
	Description  string        `json:"description,omitempty"`
	DefaultValue any           `json:"defaultValue,omitempty"`
	Required     bool          `json:"required"`
	Options      []FieldOption `json:"options,omitempty"`

	// PropType is the inferred prop type.
	PropType PropType `json:"propType"`
}

// DialogInfo is the result of dialog analysis.
type DialogInfo struct {
	Type   DialogType    `json:"type"`
	Fields []DialogField `json:"fields"`
}

// Field returns the field with the given name.
func (d *DialogInfo) Field(name string) (DialogField, bool) {
	if d == nil {
		return DialogField{}, false
	}
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return DialogField{}, false
}
