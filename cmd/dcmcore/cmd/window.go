package cmd

import (
	"fmt"
	"os"

	"github.com/jpfielding/dicomcore/pkg/dcm/decoder"
	"github.com/jpfielding/dicomcore/pkg/dcm/preset"
	"github.com/jpfielding/dicomcore/pkg/dcm/windowing"
	"github.com/spf13/cobra"
)

// NewWindowCmd applies a window/level transform to a DICOM file's pixel
// data and writes the result as a raw 8-bit grayscale buffer.
func NewWindowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "window <file>",
		Short: "apply a window/level transform and write 8-bit grayscale output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presetName, _ := cmd.Flags().GetString("preset")
			center, _ := cmd.Flags().GetFloat64("center")
			width, _ := cmd.Flags().GetFloat64("width")
			mode, _ := cmd.Flags().GetString("mode")
			out, _ := cmd.Flags().GetString("out")
			return runWindow(args[0], presetName, center, width, mode, out)
		},
	}
	pf := cmd.Flags()
	pf.String("preset", "", "medical preset name (lung, bone, brain, ...); overrides --center/--width")
	pf.Float64("center", 0, "window center (ignored if --preset is set)")
	pf.Float64("width", 0, "window width (ignored if --preset is set)")
	pf.String("mode", "cpu", "backend: cpu|gpu|auto")
	pf.StringP("out", "o", "out.raw", "output path for the raw 8-bit grayscale buffer")
	return cmd
}

func runWindow(path, presetName string, center, width float64, mode, outPath string) error {
	d, err := decoder.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	settings := windowing.Settings{Center: center, Width: width}
	if presetName != "" {
		ws, ok := preset.Settings(preset.MedicalPreset(presetName))
		if !ok {
			return fmt.Errorf("unknown preset %q", presetName)
		}
		settings = ws
	} else if width == 0 {
		ds := d.WindowSettings()
		settings = windowing.Settings{Center: ds.Center, Width: ds.Width}
	}

	pixels, err := d.PixelsU16()
	if err != nil {
		return fmt.Errorf("read pixels: %w", err)
	}

	var backendMode windowing.Mode
	switch mode {
	case "gpu":
		backendMode = windowing.ModeGPU
	case "auto":
		backendMode = windowing.ModeAuto
	default:
		backendMode = windowing.ModeCPU
	}

	out, err := windowing.Apply(pixels, settings, backendMode)
	if err != nil {
		return fmt.Errorf("apply window: %w", err)
	}

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Printf("wrote %d bytes (%dx%d) to %s\n", len(out), d.Width(), d.Height(), outPath)
	return nil
}
