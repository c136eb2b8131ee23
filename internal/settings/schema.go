package settings

import (
	"fmt"

	"github.com/combee/resistor-time-config/internal/colors"
)

// Kind is the widget used to render a field on the settings page.
type Kind string

const (
	KindSelect Kind = "select"
	KindRadio  Kind = "radiogroup"
	KindColor  Kind = "color"
)

// Message keys of the settings record.
const (
	KeyResistorType = "resType"
	KeyColorChoice  = "colorChoice"
	KeyBgColor      = "bgColor"
	KeyFgColor      = "fgColor"
	KeyLowerLabel   = "lowerLabel"
	KeyVibeOnBT     = "vibeOnBT"
)

// ChoiceCustom selects the user supplied bgColor/fgColor pair.
const ChoiceCustom = "custom"

// Option is one selectable value of an enumerated field.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Condition hides a field unless another field holds Value.
type Condition struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Field describes one setting.
type Field struct {
	Key       string     `json:"messageKey"`
	Label     string     `json:"label"`
	Kind      Kind       `json:"type"`
	Default   string     `json:"defaultValue"`
	Options   []Option   `json:"options,omitempty"`
	ShownWhen *Condition `json:"shownWhen,omitempty"`
}

// Valid reports whether v is acceptable for f.
func (f Field) Valid(v string) bool {
	if f.Kind == KindColor {
		_, err := colors.ParseHex(v)
		return err == nil
	}
	for _, o := range f.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Schema is the ordered list of settings shown on the configuration page.
// Both the form and the message mapping are derived from it.
type Schema struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Default returns the Resistor Time schema.
func Default() *Schema {
	return &Schema{
		Title: "Resistor Time",
		Fields: []Field{
			{
				Key:     KeyResistorType,
				Label:   "Resistor type",
				Kind:    KindSelect,
				Default: "0",
				Options: []Option{
					{Label: "Through hole", Value: "0"},
					{Label: "Surface mount", Value: "1"},
					{Label: "NYC Resistor", Value: "2"},
					{Label: "Cycle through them all", Value: "3"},
				},
			},
			{
				Key:     KeyColorChoice,
				Label:   "Silkscreen color",
				Kind:    KindSelect,
				Default: ChoiceWhiteOnGreen,
				Options: []Option{
					{Label: "Green with white text", Value: ChoiceWhiteOnGreen},
					{Label: "Black with white text", Value: ChoiceWhiteOnBlack},
					{Label: "White with black text", Value: ChoiceBlackOnWhite},
					{Label: "OSH Park purple", Value: ChoiceWhiteOnPurple},
					{Label: "Custom", Value: ChoiceCustom},
				},
			},
			{
				Key:       KeyBgColor,
				Label:     "Background Color",
				Kind:      KindColor,
				Default:   "55AA00",
				ShownWhen: &Condition{Key: KeyColorChoice, Value: ChoiceCustom},
			},
			{
				Key:       KeyFgColor,
				Label:     "Silkscreen Color",
				Kind:      KindColor,
				Default:   "FFFFFF",
				ShownWhen: &Condition{Key: KeyColorChoice, Value: ChoiceCustom},
			},
			{
				Key:     KeyLowerLabel,
				Label:   "Bottom label",
				Kind:    KindSelect,
				Default: "0",
				Options: []Option{
					{Label: "Show standard time in ohms", Value: "0"},
					{Label: "Show .beats", Value: "1"},
					{Label: "Switch every 30 seconds", Value: "2"},
				},
			},
			{
				Key:     KeyVibeOnBT,
				Label:   "Vibrate",
				Kind:    KindRadio,
				Default: "0",
				Options: []Option{
					{Label: "Never", Value: "0"},
					{Label: "When phone disconnects", Value: "1"},
					{Label: "When phone connects or disconnects", Value: "2"},
				},
			},
		},
	}
}

// Field returns the field with the given key.
func (s *Schema) Field(key string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Defaults returns a record holding every field's default value.
func (s *Schema) Defaults() Record {
	r := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		r[f.Key] = f.Default
	}
	return r
}

// Normalize returns a complete copy of r: missing or invalid values are
// replaced by the field default and unknown keys are dropped.
func (s *Schema) Normalize(r Record) Record {
	out := s.Defaults()
	for _, f := range s.Fields {
		v, ok := r[f.Key]
		if !ok || !f.Valid(v) {
			continue
		}
		if f.Kind == KindColor {
			rgb, _ := colors.ParseHex(v)
			v = hexString(rgb)
		}
		out[f.Key] = v
	}
	return out
}

// Visible reports whether f should be shown for the values in r.
func (s *Schema) Visible(f Field, r Record) bool {
	if f.ShownWhen == nil {
		return true
	}
	return r[f.ShownWhen.Key] == f.ShownWhen.Value
}

func hexString(rgb uint32) string {
	return fmt.Sprintf("%06X", rgb)
}
