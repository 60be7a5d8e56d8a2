package sampledata

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/teamtomo/cryo-et-sample-data/mrc"
)

// cliEnv is populated by the root command before any subcommand runs.
type cliEnv struct {
	// catalog is the built-in catalog or the one given with --catalog.
	catalog *Catalog

	// opts are the options every dataset is opened with.
	opts []Option
}

// NewCommand creates a Cobra command tree for sample data management.
// It can be used as a standalone root or attached to a parent CLI.
//
// Commands provided:
//   - list
//   - describe <dataset>
//   - path <dataset> [slot]
//   - fetch <dataset> [slot...]
//   - info <dataset> <slot>
//
// Global flags: --json, --quiet, --verbose, --catalog, --cache-dir
func NewCommand(opts ...Option) *cobra.Command {
	var (
		jsonOutput  bool
		quiet       bool
		verbose     bool
		catalogPath string
		cacheDir    string
	)

	env := &cliEnv{}

	cmd := &cobra.Command{
		Use:   "cryoet-sample-data",
		Short: "Fetch cryo-ET sample datasets",
		Long:  "Download, verify, and cache named cryo-ET sample datasets.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			env.opts = append([]Option(nil), opts...)
			if cacheDir != "" {
				env.opts = append(env.opts, WithCacheDir(cacheDir))
			}
			if verbose {
				logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
				env.opts = append(env.opts, WithLogger(logger))
			}

			catalog, err := loadCatalogFlag(catalogPath, newOptions(env.opts).readers)
			if err != nil {
				return err
			}
			env.catalog = catalog
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "YAML catalog to use instead of the built-in datasets")
	cmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Cache root (default: OS user cache directory)")

	cmd.AddCommand(listCmd(env, &jsonOutput))
	cmd.AddCommand(describeCmd(env, &jsonOutput))
	cmd.AddCommand(pathCmd(env))
	cmd.AddCommand(fetchCmd(env, &jsonOutput, &quiet))
	cmd.AddCommand(infoCmd(env, &jsonOutput))

	return cmd
}

// loadCatalogFlag loads the --catalog file, or the built-in catalog if path is empty.
func loadCatalogFlag(path string, readers ReaderRegistry) (*Catalog, error) {
	if path == "" {
		return BuiltinCatalog()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f, readers)
}

// datasetSummary is the JSON form of a dataset.
type datasetSummary struct {
	Name        string        `json:"name"`
	Author      string        `json:"author"`
	Description string        `json:"description"`
	BaseURL     string        `json:"base_url"`
	Slots       []slotSummary `json:"slots"`
}

// slotSummary is the JSON form of a slot.
type slotSummary struct {
	Slot     string `json:"slot"`
	FileName string `json:"file_name"`
	Checksum string `json:"checksum"`
}

func summarize(desc DatasetDescriptor) datasetSummary {
	s := datasetSummary{
		Name:        desc.Name(),
		Author:      desc.Author(),
		Description: desc.Description(),
		BaseURL:     desc.BaseURL(),
		Slots:       []slotSummary{},
	}
	for _, name := range desc.SlotNames() {
		fd, _ := desc.Slot(name)
		s.Slots = append(s.Slots, slotSummary{Slot: name, FileName: fd.FileName(), Checksum: fd.Checksum()})
	}
	return s
}

func listCmd(env *cliEnv, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List datasets",
		Long:  "List the datasets in the catalog and the slots each provides.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var summaries []datasetSummary
			for _, name := range env.catalog.Names() {
				desc, err := env.catalog.Descriptor(name)
				if err != nil {
					return err
				}
				summaries = append(summaries, summarize(desc))
			}
			return outputDatasets(cmd.OutOrStdout(), summaries, *jsonOutput)
		},
	}
}

func describeCmd(env *cliEnv, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <dataset>",
		Short: "Describe a dataset",
		Long:  "Print the dataset's metadata and the files it provides.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := env.catalog.Descriptor(args[0])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(cmd.OutOrStdout(), summarize(desc))
			}
			fmt.Fprint(cmd.OutOrStdout(), Describe(desc))
			return nil
		},
	}
}

func pathCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "path <dataset> [slot]",
		Short: "Print cache paths",
		Long:  "Print the dataset's cache directory, or where a slot's file is cached. Nothing is downloaded.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := env.catalog.Descriptor(args[0])
			if err != nil {
				return err
			}
			resolver, err := NewCacheResolver(desc, env.opts...)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				fmt.Fprintln(cmd.OutOrStdout(), resolver.Namespace())
				return nil
			}

			fd, ok := desc.Slot(args[1])
			if !ok {
				return &UnsupportedSlotError{Dataset: desc.Name(), Slot: args[1]}
			}
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(resolver.Namespace(), fd.FileName()))
			return nil
		},
	}
}

func fetchCmd(env *cliEnv, jsonOutput, quiet *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <dataset> [slot...]",
		Short: "Download and verify dataset files",
		Long:  "Download the given slots (all slots by default) into the cache and print their paths.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			opts := env.opts
			if !*quiet {
				opts = append(append([]Option(nil), opts...), WithProgress(progressPrinter(cmd.ErrOrStderr())))
			}

			ds, err := env.catalog.Open(args[0], opts...)
			if err != nil {
				return err
			}

			slots := args[1:]
			if len(slots) == 0 {
				slots = ds.Descriptor().SlotNames()
			}

			type fetched struct {
				Slot string `json:"slot"`
				Path string `json:"path"`
			}
			results := []fetched{}
			for _, slot := range slots {
				path, err := ds.Path(ctx, slot)
				if err != nil {
					return err
				}
				results = append(results, fetched{Slot: slot, Path: path})
			}

			if *jsonOutput {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\n", r.Slot, r.Path)
			}
			return tw.Flush()
		},
	}
}

func infoCmd(env *cliEnv, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info <dataset> <slot>",
		Short: "Show volume information",
		Long:  "Fetch and decode an MRC slot and print its shape, sampling and value range.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := env.catalog.Open(args[0], env.opts...)
			if err != nil {
				return err
			}
			vol, err := DataAs[*mrc.Volume](cmd.Context(), ds, args[1])
			if err != nil {
				return err
			}

			lo, hi, mean := vol.Stats()
			info := struct {
				Dataset   string     `json:"dataset"`
				Slot      string     `json:"slot"`
				Shape     [3]int     `json:"shape"`
				Mode      mrc.Mode   `json:"mode"`
				VoxelSize [3]float32 `json:"voxel_size"`
				Min       float32    `json:"min"`
				Max       float32    `json:"max"`
				Mean      float32    `json:"mean"`
			}{ds.Name(), args[1], vol.Shape(), vol.Mode, vol.VoxelSize, lo, hi, mean}

			if *jsonOutput {
				return writeJSON(cmd.OutOrStdout(), info)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Dataset:      %s\n", info.Dataset)
			fmt.Fprintf(w, "Slot:         %s\n", info.Slot)
			fmt.Fprintf(w, "Shape (zyx):  %d x %d x %d\n", info.Shape[0], info.Shape[1], info.Shape[2])
			fmt.Fprintf(w, "Mode:         %d\n", info.Mode)
			fmt.Fprintf(w, "Voxel size:   %g x %g x %g Å\n", info.VoxelSize[0], info.VoxelSize[1], info.VoxelSize[2])
			fmt.Fprintf(w, "Range:        %g .. %g (mean %g)\n", info.Min, info.Max, info.Mean)
			return nil
		},
	}
}

// Output helpers

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputDatasets(w io.Writer, datasets []datasetSummary, asJSON bool) error {
	if asJSON {
		if datasets == nil {
			datasets = []datasetSummary{}
		}
		return writeJSON(w, datasets)
	}

	if len(datasets) == 0 {
		fmt.Fprintln(w, "No datasets in catalog")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tAUTHOR\tSLOTS\tBASE URL")
	for _, d := range datasets {
		slots := make([]string, len(d.Slots))
		for i, s := range d.Slots {
			slots[i] = s.Slot
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Name, d.Author, strings.Join(slots, ","), d.BaseURL)
	}
	return tw.Flush()
}

// progressPrinter returns a WithProgress callback that redraws a progress
// line on w at most every 100ms, and once more when a file completes.
func progressPrinter(w io.Writer) func(Progress) {
	var (
		current    string
		attempt    int
		startTime  time.Time
		lastRender time.Time
	)
	return func(p Progress) {
		if p.FileName != current || p.Attempt != attempt {
			current, attempt = p.FileName, p.Attempt
			startTime = time.Now()
		}
		if !p.Done && time.Since(lastRender) < 100*time.Millisecond {
			return
		}
		lastRender = time.Now()
		renderProgress(w, p, startTime)
		if p.Done {
			fmt.Fprintln(w)
		}
	}
}

// renderProgress renders the progress bar to the writer.
// Format: 01_10.00Apx.mrc [============>                 ] 45% (450 MiB / 1.0 GiB, 5.2 MiB/s, elapsed: 30s, remaining: 2m 15s)
// When the total size is unknown, only the byte count and speed are shown.
func renderProgress(w io.Writer, p Progress, startTime time.Time) {
	elapsed := time.Since(startTime)

	var speed float64
	if elapsed.Seconds() > 0 && p.BytesCompleted > 0 {
		speed = float64(p.BytesCompleted) / elapsed.Seconds()
	}

	if p.BytesTotal <= 0 {
		fmt.Fprintf(w, "\r\x1b[K%s %s (%s, elapsed: %s)",
			p.FileName, humanize.IBytes(uint64(p.BytesCompleted)), formatSpeed(speed), formatDuration(elapsed))
		return
	}

	pct := float64(p.BytesCompleted) / float64(p.BytesTotal) * 100

	var remaining time.Duration
	if speed > 0 && p.BytesCompleted < p.BytesTotal {
		remaining = time.Duration(float64(p.BytesTotal-p.BytesCompleted)/speed) * time.Second
	}

	const barWidth = 30
	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	var bar string
	if filled >= barWidth {
		bar = strings.Repeat("=", barWidth)
	} else if filled > 0 {
		bar = strings.Repeat("=", filled) + ">" + strings.Repeat(" ", barWidth-filled-1)
	} else {
		bar = ">" + strings.Repeat(" ", barWidth-1)
	}

	fmt.Fprintf(w, "\r\x1b[K%s [%s] %.0f%% (%s / %s, %s, elapsed: %s, remaining: %s)",
		p.FileName, bar, pct,
		humanize.IBytes(uint64(p.BytesCompleted)), humanize.IBytes(uint64(p.BytesTotal)),
		formatSpeed(speed), formatDuration(elapsed), formatDuration(remaining))
}

// formatSpeed formats bytes per second, e.g. "5.2 MiB/s".
func formatSpeed(bytesPerSec float64) string {
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

// formatDuration formats a duration as human-readable text (e.g., "5s", "2m 30s", "1h 5m").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)

	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if hours > 0 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if mins > 0 {
		if secs > 0 {
			return fmt.Sprintf("%dm %ds", mins, secs)
		}
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}
