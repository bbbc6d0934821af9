package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/wcharczuk/go-chart/v2"
)

// histogramChart plots bucket counts against bucket midpoints.
func histogramChart(hist histogram.Histogram) (chart.Chart, error) {
	if len(hist.Buckets) < 2 {
		return chart.Chart{}, fmt.Errorf("need at least 2 histogram buckets to chart, have %d", len(hist.Buckets))
	}

	xs := make([]float64, 0, len(hist.Buckets))
	ys := make([]float64, 0, len(hist.Buckets))
	for _, b := range hist.Buckets {
		xs = append(xs, (b.Min+b.Max)/2)
		ys = append(ys, float64(b.Count))
	}

	return chart.Chart{
		Width:  512,
		Height: 256,
		XAxis: chart.XAxis{
			Name: "Calibrated value",
		},
		YAxis: chart.YAxis{
			Name: "Pixels",
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
			},
		},
	}, nil
}

func writeHistogramPNG(filename string, hist histogram.Histogram) error {
	graph, err := histogramChart(hist)
	if err != nil {
		return err
	}

	// Render to a byte buffer
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return err
	}

	outFile, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer outFile.Close()

	_, err = buffer.WriteTo(outFile)
	return err
}
