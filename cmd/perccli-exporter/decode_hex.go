package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/sigreer/perccli-exporter/internal/hba"
	"github.com/sigreer/perccli-exporter/internal/logger"
	"github.com/sigreer/perccli-exporter/internal/smart"
	"github.com/spf13/cobra"
)

var decodeHexCmd = &cobra.Command{
	Use:   "decode-hex [file]",
	Short: "Decode a SMART hex dump offline",
	Long: `Decode the SMART data printed by 'perccli /cX/eY/sZ show smart'.

Input is either the full perccli output or the bare hex block, read from
the given file or from stdin. No config file is needed.

Examples:
  perccli /c0/e32/s1 show smart | perccli-exporter decode-hex
  perccli-exporter decode-hex --markers 2f00 dump.txt`,
	Args: cobra.MaximumNArgs(1),
	Run:  runDecodeHex,
}

func init() {
	decodeHexCmd.Flags().StringSlice("markers", []string{"0100", "2f00"}, "framing markers to skip")
}

func runDecodeHex(cmd *cobra.Command, args []string) {
	markerFlags, _ := cmd.Flags().GetStringSlice("markers")
	markers, err := smart.ParseMarkers(markerFlags)
	if err != nil {
		fatalf("%v", err)
	}

	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(in)
	if err != nil {
		fatalf("reading input: %v", err)
	}

	// full perccli output carries a header line before the dump
	text := hba.ExtractSmartHex(string(data))
	if text == "" {
		text = string(data)
	}

	log, err := logger.New(logLevel)
	if err != nil {
		fatalf("%v", err)
	}
	attrs := smart.NewHexDecoder(markers, log).Decode(text)
	if len(attrs) == 0 {
		fatalf("no SMART attributes found")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ATTRIBUTE\tRAW")
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		fmt.Fprintf(w, "%s\t%d\n", name, attrs[name])
	}
	w.Flush()
}
