// Command batchstats reads a CSV text-classification dataset, builds a
// vocabulary from it and reports how the configured iterator batches it.
//
// Example:
//
//	batchstats --pattern 'data/train/*.csv' --config pipeline.yaml --shuffle --plot output
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/Noofbiz/instancebatch/config"
	"github.com/Noofbiz/instancebatch/data"
	"github.com/Noofbiz/instancebatch/iterators"
	"github.com/Noofbiz/instancebatch/readers"
	"github.com/Noofbiz/instancebatch/vocab"
)

type options struct {
	configPath string
	pattern    string
	shuffle    bool
	epochs     int
	plotDir    string
	vocabOut   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		klog.Fatalf("batchstats: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "batchstats",
		Short:         "Report batch statistics for a CSV dataset",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "YAML pipeline configuration (defaults are used when empty)")
	flags.StringVar(&opts.pattern, "pattern", "", "glob of CSV files; overrides reader.pattern")
	flags.BoolVar(&opts.shuffle, "shuffle", false, "shuffle instances within each memory chunk")
	flags.IntVar(&opts.epochs, "epochs", 1, "number of passes over the data")
	flags.StringVar(&opts.plotDir, "plot", "", "directory for the padded length histogram (skipped when empty)")
	flags.StringVar(&opts.vocabOut, "vocab-out", "", "write the fitted vocabulary to this JSON file")

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)
	return cmd
}

func run(out io.Writer, opts *options) error {
	if opts.epochs <= 0 {
		return errors.Errorf("--epochs must be > 0, got %d", opts.epochs)
	}

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}

	reader, err := cfg.BuildReader(opts.pattern)
	if err != nil {
		return err
	}
	rows, err := reader.Len()
	if err != nil {
		return err
	}
	klog.Infof("found %d files with %s rows", len(reader.Paths()), humanize.Comma(int64(rows)))

	v, err := fitVocabulary(reader.Instances(), cfg)
	if err != nil {
		return err
	}
	for _, ns := range v.Namespaces() {
		fmt.Fprintf(out, "vocabulary %-20s %s entries\n", ns, humanize.Comma(int64(v.Size(ns))))
	}
	if opts.vocabOut != "" {
		if err := v.Save(opts.vocabOut); err != nil {
			return err
		}
		klog.Infof("saved vocabulary to %s", opts.vocabOut)
	}

	it, err := cfg.BuildIterator(v)
	if err != nil {
		return err
	}
	perEpoch, err := it.NumBatches(reader.Instances(), opts.shuffle)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "batches per epoch: %s\n", humanize.Comma(int64(perEpoch)))

	st := &batchStats{}
	for batch, err := range it.Batches(reader.Instances(), opts.epochs, opts.shuffle) {
		if err != nil {
			return err
		}
		lengths, err := batch.PaddingLengths(v)
		if err != nil {
			return err
		}
		st.add(batch.Len(), lengths[readers.TextField][data.NumTokens])
	}
	st.report(out)

	if err := describeTensors(out, it, reader.Instances(), v, cfg.Reader.LabelColumn != ""); err != nil {
		return err
	}

	if opts.plotDir != "" {
		if err := os.MkdirAll(opts.plotDir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", opts.plotDir)
		}
		path := filepath.Join(opts.plotDir, "padded_lengths.png")
		if err := st.plot(path); err != nil {
			return err
		}
		klog.Infof("wrote %s", path)
	}
	return nil
}

// fitVocabulary counts every instance of source once and builds a frozen
// vocabulary from the counts.
func fitVocabulary(source iterators.Source, cfg *config.Config) (*vocab.Vocabulary, error) {
	counter := vocab.NewCounter()
	n := 0
	for inst, err := range source {
		if err != nil {
			return nil, err
		}
		inst.CountVocabItems(counter)
		n++
	}
	klog.V(1).Infof("counted vocabulary items of %d instances", n)
	return vocab.FromCounter(counter, cfg.FitOptions(), cfg.VocabOptions()...), nil
}

// describeTensors prints the tensor shapes of the first batch.
func describeTensors(out io.Writer, it iterators.DataIterator, source iterators.Source, v *vocab.Vocabulary, labeled bool) error {
	var labelFields []string
	if labeled {
		labelFields = append(labelFields, readers.LabelField)
	}
	ds := iterators.NewDataset("batchstats", it, source, v, 1, false, labelFields...)
	defer ds.Close()

	_, inputs, labels, err := ds.Yield()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	for i, t := range inputs {
		fmt.Fprintf(out, "input[%d]: %s\n", i, t.Shape())
	}
	for i, t := range labels {
		fmt.Fprintf(out, "label[%d]: %s\n", i, t.Shape())
	}
	return nil
}
