package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jpfielding/dicomcore/pkg/dcm/decoder"
	"github.com/spf13/cobra"
)

// NewDecodeCmd prints a DICOM file's metadata and pixel-data summary,
// adapted from the teacher's analyze.go RunE.
func NewDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "decode a DICOM file and print its metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			return runDecode(args[0], format)
		},
	}
	cmd.Flags().StringP("format", "f", "text", "output format (text|json)")
	return cmd
}

type decodeSummary struct {
	TransferSyntax string   `json:"transfer_syntax"`
	Compressed     bool     `json:"compressed"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	BitsAllocated  int      `json:"bits_allocated"`
	Photometric    string   `json:"photometric_interpretation"`
	Signed         bool     `json:"signed"`
	Modality       string   `json:"modality"`
	WindowCenter   float64  `json:"window_center"`
	WindowWidth    float64  `json:"window_width"`
	Valid          bool     `json:"valid"`
	Issues         []string `json:"issues,omitempty"`
}

func runDecode(path, format string) error {
	d, err := decoder.LoadFromPath(path)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	ws := d.WindowSettings()
	valid, issues := d.Validate()
	summary := decodeSummary{
		TransferSyntax: string(d.TransferSyntax()),
		Compressed:     d.Compressed(),
		Width:          d.Width(),
		Height:         d.Height(),
		BitsAllocated:  d.BitsAllocated(),
		Photometric:    d.PhotometricInterpretation(),
		Signed:         d.SignedImage(),
		Modality:       d.Modality(),
		WindowCenter:   ws.Center,
		WindowWidth:    ws.Width,
		Valid:          valid,
		Issues:         issues,
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("TransferSyntax: %s\n", summary.TransferSyntax)
	fmt.Printf("Compressed: %v\n", summary.Compressed)
	fmt.Printf("Dimensions: %dx%d, %d-bit\n", summary.Width, summary.Height, summary.BitsAllocated)
	fmt.Printf("PhotometricInterpretation: %s\n", summary.Photometric)
	fmt.Printf("Signed: %v\n", summary.Signed)
	fmt.Printf("Modality: %s\n", summary.Modality)
	fmt.Printf("WindowSettings: center=%.1f width=%.1f\n", summary.WindowCenter, summary.WindowWidth)
	fmt.Printf("Valid: %v\n", summary.Valid)
	for _, iss := range summary.Issues {
		fmt.Printf("  issue: %s\n", iss)
	}
	return nil
}
