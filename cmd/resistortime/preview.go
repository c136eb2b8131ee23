package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/combee/resistor-time-config/internal/bridge"
	"github.com/combee/resistor-time-config/internal/colors"
	"github.com/combee/resistor-time-config/internal/logging"
	"github.com/combee/resistor-time-config/internal/settings"
	"github.com/spf13/cobra"
)

var (
	resistorBody = lipgloss.Color("#AAAA55")
	leadColor    = lipgloss.Color("#AAAAAA")
	labelStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview [response]",
		Short: "Render the watchface colors a response would produce",
		Long: `Render the watchface colors a response would produce.

Without an argument the persisted settings are previewed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewLogger("resistortime", logging.Level(logLevel), nil)
			cfg := loadConfig(log)
			opts, err := bridgeOptions(cfg)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			b := bridge.New(opts, nil, nil, nil, st, log.Named("bridge"))

			var msg settings.Message
			packed := false
			switch {
			case len(args) == 0:
				msg = settings.BuildMessage(b.Settings())
			case opts.Variant == bridge.VariantLegacy:
				msg, _ = settings.BuildLegacyMessage(strings.TrimSpace(args[0]), b.Settings())
				packed = true
			default:
				rec, err := b.Schema().Decode(args[0])
				if err != nil {
					return err
				}
				msg = settings.BuildMessage(rec)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderFace(msg, packed, time.Now()))
			return nil
		},
	}
}

// faceColors returns the background and silkscreen colors as #RRGGBB.
func faceColors(msg settings.Message, packed bool) (bg, silk string) {
	if packed {
		return "#" + colors.Packed(msg.BgColor).HexString(), "#" + colors.Packed(msg.SilkColor).HexString()
	}
	return fmt.Sprintf("#%06X", msg.BgColor), fmt.Sprintf("#%06X", msg.SilkColor)
}

// lowerLabel renders the bottom line the watch shows for now.
func lowerLabel(mode int32, now time.Time) string {
	clock := fmt.Sprintf("%d%02d R", now.Hour(), now.Minute())
	switch mode {
	case 1:
		return beats(now)
	case 2:
		if now.Second() >= 30 {
			return beats(now)
		}
	}
	return clock
}

// beats returns Swatch Internet Time, which runs on UTC+1.
func beats(now time.Time) string {
	bmt := now.UTC().Add(time.Hour)
	secs := bmt.Hour()*3600 + bmt.Minute()*60 + bmt.Second()
	return fmt.Sprintf("@%03d", secs*10/864)
}

// renderResistor draws the four time digits as color bands.
func renderResistor(now time.Time) string {
	digits := []int{now.Hour() / 10, now.Hour() % 10, now.Minute() / 10, now.Minute() % 10}

	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().Foreground(leadColor).Render("━━━"))
	body := lipgloss.NewStyle().Background(resistorBody)
	sb.WriteString(body.Render(" "))
	for i, d := range digits {
		band := lipgloss.NewStyle().
			Background(lipgloss.Color("#" + colors.Bands[d].HexString())).
			Render("  ")
		sb.WriteString(band)
		if i == 0 {
			sb.WriteString(body.Render("  "))
		} else {
			sb.WriteString(body.Render(" "))
		}
	}
	sb.WriteString(lipgloss.NewStyle().Foreground(leadColor).Render("━━━"))
	return sb.String()
}

func renderFace(msg settings.Message, packed bool, now time.Time) string {
	bg, silk := faceColors(msg, packed)

	face := lipgloss.NewStyle().
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(silk)).
		Padding(1, 2).
		Width(28).
		Align(lipgloss.Center)

	date := fmt.Sprintf("R%02d%02d", int(now.Month()), now.Day())
	screen := face.Render(lipgloss.JoinVertical(lipgloss.Center,
		date,
		"",
		renderResistor(now),
		"",
		lowerLabel(msg.LowerLabel, now),
	))

	details := lipgloss.JoinVertical(lipgloss.Left,
		labelStyle.Render("Background ")+bg,
		labelStyle.Render("Silkscreen ")+silk,
		labelStyle.Render("Resistor   ")+fmt.Sprint(msg.ResistorType),
		labelStyle.Render("Vibrate    ")+fmt.Sprint(msg.VibeOnBT),
		dimStyle.Render(fmt.Sprintf("%v", msg.Map())),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, screen, "  ", details)
}
