// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/icmark/export"
	"github.com/gogpu/icmark/internal/config"
	"github.com/gogpu/icmark/mark"
	"github.com/gogpu/icmark/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Mark one or two photos and write the results",
	Long: `Render the mark onto the front and, optionally, the back photo and
write ic-front-crossed.jpg, ic-back-crossed.jpg and, with --combine,
ic-combined-crossed.jpg.

HEIC/HEIF photos are converted with the configured external command first.

Examples:
  # Default label, rotated -45 degrees at (400,300)
  icmark render --front card.jpg

  # Both sides with a custom label, stacked into one file
  icmark render --front f.jpg --back b.heic --text "COPY FOR BANK XYZ" --combine --out ./out`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	f := renderCmd.Flags()
	f.String("front", "", "front photo (required)")
	f.String("back", "", "back photo")
	f.String("text", "", "label text (default \""+mark.DefaultText+"\")")
	f.Float64("rotation", mark.DefaultRotation, "label rotation in degrees, clockwise")
	f.Float64("font-size", mark.DefaultFontSize, "label size in pixels")
	f.Float64("line-thickness", mark.DefaultLineThickness, "strike line width in pixels")
	f.Float64("scale", mark.DefaultImageScale, "photo scale within the output (0.5-1)")
	f.Float64("anchor-x", mark.DefaultAnchorX, "mark center x in output pixels")
	f.Float64("anchor-y", mark.DefaultAnchorY, "mark center y in output pixels")
	f.Bool("combine", false, "also write the front stacked over the back")
	f.String("out", "", "output directory (default \".\")")
	f.Bool("open-viewer", false, "open the result in a viewer if it cannot be saved")
	_ = renderCmd.MarkFlagRequired("front")

	_ = viper.BindPFlag(config.KeyOutputDir, f.Lookup("out"))
	_ = viper.BindPFlag(config.KeyOpenViewer, f.Lookup("open-viewer"))
}

// updateFromFlags collects the mark controls the user set explicitly.
func updateFromFlags(cmd *cobra.Command) (mark.Update, error) {
	var u mark.Update
	f := cmd.Flags()
	floats := []struct {
		name string
		dst  **float64
	}{
		{"rotation", &u.Rotation},
		{"font-size", &u.FontSize},
		{"line-thickness", &u.LineThickness},
		{"scale", &u.ImageScale},
		{"anchor-x", &u.AnchorX},
		{"anchor-y", &u.AnchorY},
	}
	for _, fl := range floats {
		if !f.Changed(fl.name) {
			continue
		}
		v, err := f.GetFloat64(fl.name)
		if err != nil {
			return u, err
		}
		*fl.dst = &v
	}
	return u, nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	ctx := contextOr(cmd)
	f := cmd.Flags()
	text, _ := f.GetString("text")
	combine, _ := f.GetBool("combine")

	u, err := updateFromFlags(cmd)
	if err != nil {
		return err
	}
	paths := map[session.Side]string{}
	for _, side := range session.Sides {
		p, _ := f.GetString(string(side))
		if p != "" {
			paths[side] = p
		}
	}
	if combine && len(paths) < 2 {
		return errors.New("--combine needs both --front and --back")
	}

	eng, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.close()
	ws := eng.workspace(text)
	defer ws.Close()

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		log.Warn("cannot create output directory", zap.String("dir", cfg.Output.Dir), zap.Error(err))
	}
	chain := export.DefaultChain(cfg.Output.Dir, cfg.Output.OpenViewer)
	out := cmd.OutOrStdout()

	for _, side := range session.Sides {
		path, ok := paths[side]
		if !ok {
			continue
		}
		if err := loadFile(cmd, ws, side, path); err != nil {
			return err
		}
		if _, err := ws.Apply(ctx, side, u); err != nil {
			return fmt.Errorf("%s: %w", side, err)
		}
		data, name, err := ws.Export(ctx, side)
		if err != nil {
			return fmt.Errorf("%s: %w", side, err)
		}
		report(out, chain.Save(ctx, name, data))
	}

	if combine {
		data, name, err := ws.Combine(ctx)
		if err != nil {
			return err
		}
		report(out, chain.Save(ctx, name, data))
	}
	return nil
}

func loadFile(cmd *cobra.Command, ws *session.Workspace, side session.Side, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// An empty type makes the adapter sniff the content.
	st, err := ws.Load(contextOr(cmd), side, file, "")
	if err != nil {
		return fmt.Errorf("%s: %s: %w", side, path, err)
	}
	log.Debug("photo loaded", zap.String("side", string(side)), zap.String("path", path),
		zap.String("text", st.Text))
	return nil
}

func report(w io.Writer, o export.Outcome) {
	if o.Delivered {
		fmt.Fprintf(w, "wrote %s (%s)\n", o.Name, o.Method)
		return
	}
	// Delivery failures are reported, not fatal.
	fmt.Fprintf(w, "could not save %s: %v\n", o.Name, o.Err)
}
