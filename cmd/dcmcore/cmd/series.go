package cmd

import (
	"context"
	"fmt"

	"github.com/jpfielding/dicomcore/pkg/dcm/series"
	"github.com/spf13/cobra"
)

// NewSeriesCmd assembles a directory of single-frame DICOM files into one
// volume and reports its geometry.
func NewSeriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series <dir>",
		Short: "assemble a directory of DICOM slices into a volume",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeries(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runSeries(ctx context.Context, dir string) error {
	vol, err := series.Load(ctx, dir, func(current, total int) {
		fmt.Printf("\rloading slice %d/%d", current, total)
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("load series %s: %w", dir, err)
	}

	fmt.Printf("Slices: %d\n", vol.SliceCount)
	fmt.Printf("Dimensions: %dx%d\n", vol.Width, vol.Height)
	fmt.Printf("Spacing: x=%.3f y=%.3f z=%.3f\n", vol.SpacingX, vol.SpacingY, vol.SpacingZ)
	fmt.Printf("Total voxels: %d\n", len(vol.Pixels))
	return nil
}
