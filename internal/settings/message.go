package settings

import (
	"fmt"

	"github.com/combee/resistor-time-config/internal/colors"
)

// AppMessage field names expected by the watch firmware.
const (
	FieldResistorType = "RESISTOR_TYPE"
	FieldSilkColor    = "SILK_COLOR"
	FieldBgColor      = "BG_COLOR"
	FieldLowerLabel   = "LOWER_LABEL"
	FieldVibeOnBT     = "VIBE_ON_BT"
)

// FieldNames lists every message field in wire order.
var FieldNames = []string{
	FieldVibeOnBT,
	FieldSilkColor,
	FieldBgColor,
	FieldResistorType,
	FieldLowerLabel,
}

// Color scheme choices.
const (
	ChoiceWhiteOnGreen  = "white-on-green"
	ChoiceWhiteOnBlack  = "white-on-black"
	ChoiceBlackOnWhite  = "black-on-white"
	ChoiceWhiteOnPurple = "white-on-purple"
)

// Scheme is a silkscreen/background color pair in 24-bit RGB.
type Scheme struct {
	Silk       uint32
	Background uint32
}

// Schemes maps every fixed color choice to its colors.
var Schemes = map[string]Scheme{
	ChoiceWhiteOnGreen:  {Silk: 0xFFFFFF, Background: 0x55AA00},
	ChoiceWhiteOnBlack:  {Silk: 0xFFFFFF, Background: 0x000000},
	ChoiceBlackOnWhite:  {Silk: 0x000000, Background: 0xFFFFFF},
	ChoiceWhiteOnPurple: {Silk: 0xFFFFFF, Background: 0x550055},
}

// Message is the dictionary sent to the watch after configuration.
type Message struct {
	ResistorType int32
	SilkColor    int32
	BgColor      int32
	LowerLabel   int32
	VibeOnBT     int32
}

// Map returns the message as field name to value.
func (m Message) Map() map[string]int32 {
	return map[string]int32{
		FieldVibeOnBT:     m.VibeOnBT,
		FieldSilkColor:    m.SilkColor,
		FieldBgColor:      m.BgColor,
		FieldResistorType: m.ResistorType,
		FieldLowerLabel:   m.LowerLabel,
	}
}

// Validate checks every field against its documented range.
func (m Message) Validate() error {
	checks := []struct {
		name     string
		v, limit int32
	}{
		{FieldResistorType, m.ResistorType, 3},
		{FieldLowerLabel, m.LowerLabel, 2},
		{FieldVibeOnBT, m.VibeOnBT, 2},
		{FieldSilkColor, m.SilkColor, 0xFFFFFF},
		{FieldBgColor, m.BgColor, 0xFFFFFF},
	}
	for _, c := range checks {
		if c.v < 0 || c.v > c.limit {
			return fmt.Errorf("%s out of range: %d", c.name, c.v)
		}
	}
	return nil
}

// BuildMessage maps a normalized record to a message carrying 24-bit colors.
func BuildMessage(r Record) Message {
	scheme := Schemes[ChoiceWhiteOnGreen]
	msg := Message{
		VibeOnBT:     r.Int(KeyVibeOnBT),
		SilkColor:    int32(scheme.Silk),
		BgColor:      int32(scheme.Background),
		ResistorType: r.Int(KeyResistorType),
		LowerLabel:   r.Int(KeyLowerLabel),
	}

	choice := r[KeyColorChoice]
	if s, ok := Schemes[choice]; ok {
		msg.SilkColor = int32(s.Silk)
		msg.BgColor = int32(s.Background)
	} else if choice == ChoiceCustom {
		if fg, err := colors.ParseHex(r[KeyFgColor]); err == nil {
			msg.SilkColor = int32(fg)
		}
		if bg, err := colors.ParseHex(r[KeyBgColor]); err == nil {
			msg.BgColor = int32(bg)
		}
	}
	return msg
}

// Legacy color tokens returned by the hosted settings page.
const (
	LegacyWhite = "white"
	LegacyBlack = "black"
	LegacyGreen = "green"
)

// LegacyChoice resolves a legacy color token. Anything other than white
// or black resolves to green.
func LegacyChoice(token string) (choice string, silk, background colors.Packed) {
	switch token {
	case LegacyWhite:
		return LegacyWhite, colors.Black, colors.White
	case LegacyBlack:
		return LegacyBlack, colors.White, colors.Black
	default:
		return LegacyGreen, colors.White, colors.KellyGreen
	}
}

// LegacyScheme returns the color choice equivalent to a resolved legacy token.
func LegacyScheme(choice string) string {
	switch choice {
	case LegacyWhite:
		return ChoiceBlackOnWhite
	case LegacyBlack:
		return ChoiceWhiteOnBlack
	default:
		return ChoiceWhiteOnGreen
	}
}

// BuildLegacyMessage maps a legacy color token to a message with packed
// colors. The remaining fields come from base. It returns the resolved
// token, which is what gets persisted.
func BuildLegacyMessage(token string, base Record) (Message, string) {
	choice, silk, bg := LegacyChoice(token)
	return Message{
		VibeOnBT:     base.Int(KeyVibeOnBT),
		SilkColor:    int32(silk),
		BgColor:      int32(bg),
		ResistorType: base.Int(KeyResistorType),
		LowerLabel:   base.Int(KeyLowerLabel),
	}, choice
}
