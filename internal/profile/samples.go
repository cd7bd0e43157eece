package profile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

var groupNames = [bucketCount]string{
	"lower outliers",
	"lower suspected outliers",
	"lower inner fence",
	"lower quarter",
	"upper quarter",
	"upper inner fence",
	"upper suspected outliers",
	"upper outliers",
}

// Report writes a human readable summary of the profile.
func (p *RuntimeProfile) Report(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Count:\t%d\n", p.Count)
	fmt.Fprintf(tw, "Min:\t%d\n", p.Minimum)
	fmt.Fprintf(tw, "1st Q:\t%.2f\n", p.FirstQuartile)
	fmt.Fprintf(tw, "Median:\t%.2f\n", p.Median)
	fmt.Fprintf(tw, "Mean:\t%.2f\n", p.Mean)
	fmt.Fprintf(tw, "3rd Q:\t%.2f\n", p.ThirdQuartile)
	fmt.Fprintf(tw, "Max:\t%d\n", p.Maximum)
	fmt.Fprintf(tw, "Std.Dev:\t%.2f\n", p.StandardDeviation)
	fmt.Fprintf(tw, "Std.Dev (no outliers):\t%.2f\n", p.StandardDeviationNoOutliers)
	for i, count := range p.Groups {
		fmt.Fprintf(tw, "  %s:\t%d\n", groupNames[i], count)
	}
	return tw.Flush()
}

// WriteSamples writes raw samples in the comma separated .rtp format.
func WriteSamples(w io.Writer, samples []int64) error {
	bw := bufio.NewWriter(w)
	for i, s := range samples {
		if i > 0 {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(strconv.FormatInt(s, 10)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadSamples parses the comma separated .rtp format. Whitespace and line
// breaks between values are ignored.
func ReadSamples(r io.Reader) ([]int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	fields := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	samples := make([]int64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		samples = append(samples, v)
	}
	return samples, nil
}
