package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// batchStats accumulates per-batch sizes and padded token lengths.
type batchStats struct {
	sizes   []float64
	lengths []float64
	// padded is the number of token slots including padding.
	padded int
	// instances is the number of instances seen over all batches.
	instances int
}

func (s *batchStats) add(size, paddedLength int) {
	s.sizes = append(s.sizes, float64(size))
	s.lengths = append(s.lengths, float64(paddedLength))
	s.padded += size * paddedLength
	s.instances += size
}

func (s *batchStats) report(out io.Writer) {
	fmt.Fprintf(out, "batches: %s, instances: %s, padded token slots: %s\n",
		humanize.Comma(int64(len(s.sizes))), humanize.Comma(int64(s.instances)), humanize.Comma(int64(s.padded)))
	if len(s.sizes) == 0 {
		return
	}
	sizeMean, sizeStd := stat.MeanStdDev(s.sizes, nil)
	lenMean, lenStd := stat.MeanStdDev(s.lengths, nil)
	fmt.Fprintf(out, "batch size: mean %.2f, stddev %.2f\n", sizeMean, sizeStd)
	fmt.Fprintf(out, "padded length: mean %.2f, stddev %.2f\n", lenMean, lenStd)
}

// plot writes a histogram of padded lengths to path.
func (s *batchStats) plot(path string) error {
	if len(s.lengths) == 0 {
		return errors.New("no batches to plot")
	}
	p := plot.New()
	p.Title.Text = "Padded sequence length per batch"
	p.X.Label.Text = "num_tokens"
	p.Y.Label.Text = "batches"

	h, err := plotter.NewHist(plotter.Values(s.lengths), 20)
	if err != nil {
		return errors.Wrap(err, "failed to build histogram")
	}
	p.Add(h)
	p.Add(plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}
