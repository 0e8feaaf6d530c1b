package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/danmuck/eftview/internal/config"
	"github.com/danmuck/eftview/internal/eft"
	"github.com/danmuck/eftview/internal/logging"
	"github.com/danmuck/eftview/internal/record"
	"github.com/spf13/cobra"
)

var inspectOptions struct {
	configFile string
	profile    string
	decode     bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.eft>",
	Short: "Parse a transaction file and print its records, images and verdict.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.ConfigureCLI()

		cfg := defaultServiceConfig()
		if inspectOptions.configFile != "" {
			loaded, err := loadServiceConfig(inspectOptions.configFile)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if inspectOptions.profile != "" {
			cfg.ProfilePath = inspectOptions.profile
		}
		profile, err := config.LoadProfile(cfg.ProfilePath)
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		svc := eft.NewService(cfg.orchestrator(), profile)
		in, err := svc.Inspect(context.Background(), raw, inspectOptions.decode)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return printInspection(cmd.OutOrStdout(), args[0], in)
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectOptions.configFile, "config", "c", "", "service config file path (decoders, timeouts)")
	inspectCmd.Flags().StringVarP(&inspectOptions.profile, "profile", "p", "", "completeness profile file, defaults to FAUF")
	inspectCmd.Flags().BoolVarP(&inspectOptions.decode, "decode", "d", false, "decode fingerprint images")
}

func printInspection(out io.Writer, name string, in eft.Inspection) error {
	tx := in.Transaction
	h := tx.Header()
	d := in.Demographics

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "file\t%s\n", name)
	fmt.Fprintf(w, "transaction\t%s (version %s)\n", h.TransactionType, h.Version)
	fmt.Fprintf(w, "control number\t%s\n", h.ControlNumber)
	fmt.Fprintf(w, "agencies\t%s -> %s\n", h.OriginatingAgency, h.DestinationAgency)
	fmt.Fprintf(w, "name\t%s\n", d.Name)
	fmt.Fprintf(w, "date of birth\t%s\n", record.FormatDate(d.DateOfBirth))
	fmt.Fprintf(w, "sex / race\t%s / %s\n", d.SexLabel(), d.RaceLabel())
	fmt.Fprintf(w, "height / weight\t%s / %s\n", d.HeightLabel(), d.WeightLabel())
	fmt.Fprintf(w, "eyes / hair\t%s / %s\n", d.EyeLabel(), d.HairLabel())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "record\tset\tkind\toffset\tlength")
	for _, r := range tx.Records {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\n", r.Type, r.Set, r.Kind, r.Offset, r.Length)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "image\tposition\tcompression\tsize\tstatus")
	for _, img := range tx.Images {
		status := "not decoded"
		if img.Decoded() {
			status = "decoded"
		} else if img.DecodeErr != nil {
			status = img.DecodeErr.Error()
		}
		source := "-"
		if img.Record != nil {
			source = fmt.Sprintf("%d.%d", img.Record.Type, img.Record.Set)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d@%d\t%s\n",
			source, img.Position, img.Compression, img.Width, img.Height, img.Depth, status)
	}
	fmt.Fprintln(w)

	for _, warn := range tx.Warnings {
		fmt.Fprintf(w, "warning\t%s\n", warn.Error())
	}
	res := in.Validation
	fmt.Fprintf(w, "profile\t%s\n", res.Profile)
	fmt.Fprintf(w, "verdict\t%s\n", res.Verdict)
	if res.Coverage.Option != "" {
		fmt.Fprintf(w, "coverage\t%s (satisfied: %t)\n", res.Coverage.Option, res.Coverage.Satisfied)
	}
	for _, f := range res.FailedChecks {
		fmt.Fprintf(w, "failed\t%s: %s\n", f.Check, f.Reason)
	}
	return w.Flush()
}
