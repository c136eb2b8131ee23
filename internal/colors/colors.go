package colors

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Packed is an 8-bit Pebble color: two alpha bits fixed at 11,
// then two bits each for red, green and blue.
type Packed uint8

// ErrUnknownColor is returned when a color name is not in the palette.
var ErrUnknownColor = errors.New("unknown color")

// ErrInvalidHex is returned when a hex color string cannot be parsed.
var ErrInvalidHex = errors.New("invalid hex color")

const alphaBits Packed = 0xC0

// Palette, in packed order.
const (
	Black                 Packed = 0xC0 | iota
	OxfordBlue
	DukeBlue
	Blue
	DarkGreen
	MidnightGreen
	CobaltBlue
	BlueMoon
	IslamicGreen
	JaegerGreen
	TiffanyBlue
	VividCerulean
	Green
	Malachite
	MediumSpringGreen
	Cyan
	BulgarianRose
	ImperialPurple
	Indigo
	ElectricUltramarine
	ArmyGreen
	DarkGray
	Liberty
	VeryLightBlue
	KellyGreen
	MayGreen
	CadetBlue
	PictonBlue
	BrightGreen
	ScreaminGreen
	MediumAquamarine
	ElectricBlue
	DarkCandyAppleRed
	JazzberryJam
	Purple
	VividViolet
	WindsorTan
	RoseVale
	Purpureus
	LavenderIndigo
	Limerick
	Brass
	LightGray
	BabyBlueEyes
	SpringBud
	Inchworm
	MintGreen
	Celeste
	Red
	Folly
	FashionMagenta
	Magenta
	Orange
	SunsetOrange
	BrilliantRose
	ShockingPink
	ChromeYellow
	Rajah
	Melon
	RichBrilliantLavender
	Yellow
	Icterine
	PastelYellow
	White
)

var names = [64]string{
	"Black", "OxfordBlue", "DukeBlue", "Blue",
	"DarkGreen", "MidnightGreen", "CobaltBlue", "BlueMoon",
	"IslamicGreen", "JaegerGreen", "TiffanyBlue", "VividCerulean",
	"Green", "Malachite", "MediumSpringGreen", "Cyan",
	"BulgarianRose", "ImperialPurple", "Indigo", "ElectricUltramarine",
	"ArmyGreen", "DarkGray", "Liberty", "VeryLightBlue",
	"KellyGreen", "MayGreen", "CadetBlue", "PictonBlue",
	"BrightGreen", "ScreaminGreen", "MediumAquamarine", "ElectricBlue",
	"DarkCandyAppleRed", "JazzberryJam", "Purple", "VividViolet",
	"WindsorTan", "RoseVale", "Purpureus", "LavenderIndigo",
	"Limerick", "Brass", "LightGray", "BabyBlueEyes",
	"SpringBud", "Inchworm", "MintGreen", "Celeste",
	"Red", "Folly", "FashionMagenta", "Magenta",
	"Orange", "SunsetOrange", "BrilliantRose", "ShockingPink",
	"ChromeYellow", "Rajah", "Melon", "RichBrilliantLavender",
	"Yellow", "Icterine", "PastelYellow", "White",
}

var byName = func() map[string]Packed {
	m := make(map[string]Packed, len(names))
	for i, n := range names {
		m[strings.ToLower(n)] = alphaBits | Packed(i)
	}
	return m
}()

// Names returns the palette names in packed order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names[:])
	return out
}

// Lookup returns the packed code for a palette name, ignoring case.
func Lookup(name string) (Packed, error) {
	p, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColor, name)
	}
	return p, nil
}

// FromHex converts a 24-bit RGB value to the nearest palette entry by
// keeping the two most significant bits of every channel.
func FromHex(rgb uint32) Packed {
	r := Packed((rgb>>16)&0xFF) >> 6
	g := Packed((rgb>>8)&0xFF) >> 6
	b := Packed(rgb&0xFF) >> 6
	return alphaBits | r<<4 | g<<2 | b
}

// ParseHex parses "55AA00", "#55AA00" or "0x55AA00" into a 24-bit value.
func ParseHex(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) == 0 || len(s) > 6 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return uint32(v), nil
}

// Hex expands p back to 24-bit RGB.
func (p Packed) Hex() uint32 {
	r := uint32(p>>4&0x3) * 0x55
	g := uint32(p>>2&0x3) * 0x55
	b := uint32(p&0x3) * 0x55
	return r<<16 | g<<8 | b
}

// HexString formats p as "RRGGBB".
func (p Packed) HexString() string {
	return fmt.Sprintf("%06X", p.Hex())
}

func (p Packed) String() string {
	return names[p&0x3F]
}

func (p Packed) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Packed) UnmarshalText(b []byte) error {
	v, err := Lookup(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Bands maps a decimal digit to its resistor color code band as the
// watchface draws it.
var Bands = [10]Packed{
	Black,
	WindsorTan,
	Red,
	ChromeYellow,
	Yellow,
	Green,
	Blue,
	VividViolet,
	LightGray,
	White,
}
