// Package arrowio persists accumulation trial results as Arrow IPC files, so
// bias audits can be inspected with standard Arrow tooling (pyarrow, DuckDB,
// arrow-tools) without a bespoke parser.
package arrowio

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Trial is one row of the export: a finished accumulation run and its
// deviation from the analytic sum.
type Trial struct {
	Index    int64
	Total    float64
	Bias     float64
	Duration time.Duration
}

// RunInfo identifies the rounder configuration that produced a batch of
// trials. It travels in the schema metadata.
type RunInfo struct {
	Kind   string
	Policy string
	Seed   int64
}

const (
	metaKind   = "windage.kind"
	metaPolicy = "windage.policy"
	metaSeed   = "windage.seed"
)

func trialSchema(info RunInfo) *arrow.Schema {
	md := arrow.NewMetadata(
		[]string{metaKind, metaPolicy, metaSeed},
		[]string{info.Kind, info.Policy, strconv.FormatInt(info.Seed, 10)},
	)
	return arrow.NewSchema([]arrow.Field{
		{Name: "trial", Type: arrow.PrimitiveTypes.Int64},
		{Name: "total", Type: arrow.PrimitiveTypes.Float64},
		{Name: "bias", Type: arrow.PrimitiveTypes.Float64},
		{Name: "duration_ms", Type: arrow.PrimitiveTypes.Float64},
	}, &md)
}

// WriteTrials writes one record batch holding all trials to w in the Arrow
// IPC file format.
func WriteTrials(w io.Writer, info RunInfo, trials []Trial) error {
	mem := memory.NewGoAllocator()
	schema := trialSchema(info)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	idx := make([]int64, len(trials))
	totals := make([]float64, len(trials))
	biases := make([]float64, len(trials))
	durations := make([]float64, len(trials))
	for i, tr := range trials {
		idx[i] = tr.Index
		totals[i] = tr.Total
		biases[i] = tr.Bias
		durations[i] = float64(tr.Duration.Nanoseconds()) / 1e6
	}

	b.Field(0).(*array.Int64Builder).AppendValues(idx, nil)
	b.Field(1).(*array.Float64Builder).AppendValues(totals, nil)
	b.Field(2).(*array.Float64Builder).AppendValues(biases, nil)
	b.Field(3).(*array.Float64Builder).AppendValues(durations, nil)

	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("creating arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("writing trial record: %w", err)
	}
	return fw.Close()
}

// WriteTrialsFile writes the trials to a new file at path.
func WriteTrialsFile(path string, info RunInfo, trials []Trial) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteTrials(f, info, trials); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTrials reads every record batch of an Arrow IPC trial file and
// reassembles the rows.
func ReadTrials(r ipc.ReadAtSeeker) (RunInfo, []Trial, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("opening arrow reader: %w", err)
	}
	defer fr.Close()

	info := infoFromMetadata(fr.Schema().Metadata())

	var trials []Trial
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return RunInfo{}, nil, fmt.Errorf("reading record %d: %w", i, err)
		}

		idx, ok := rec.Column(0).(*array.Int64)
		if !ok {
			return RunInfo{}, nil, fmt.Errorf("record %d: trial column is %s, want int64", i, rec.Column(0).DataType())
		}
		totals, ok := rec.Column(1).(*array.Float64)
		if !ok {
			return RunInfo{}, nil, fmt.Errorf("record %d: total column is %s, want float64", i, rec.Column(1).DataType())
		}
		biases, ok := rec.Column(2).(*array.Float64)
		if !ok {
			return RunInfo{}, nil, fmt.Errorf("record %d: bias column is %s, want float64", i, rec.Column(2).DataType())
		}
		durations, ok := rec.Column(3).(*array.Float64)
		if !ok {
			return RunInfo{}, nil, fmt.Errorf("record %d: duration column is %s, want float64", i, rec.Column(3).DataType())
		}

		for row := 0; row < int(rec.NumRows()); row++ {
			trials = append(trials, Trial{
				Index:    idx.Value(row),
				Total:    totals.Value(row),
				Bias:     biases.Value(row),
				Duration: time.Duration(durations.Value(row) * 1e6),
			})
		}
	}
	return info, trials, nil
}

// ReadTrialsFile reads an Arrow IPC trial file from disk.
func ReadTrialsFile(path string) (RunInfo, []Trial, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunInfo{}, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadTrials(f)
}

func infoFromMetadata(md arrow.Metadata) RunInfo {
	var info RunInfo
	if i := md.FindKey(metaKind); i >= 0 {
		info.Kind = md.Values()[i]
	}
	if i := md.FindKey(metaPolicy); i >= 0 {
		info.Policy = md.Values()[i]
	}
	if i := md.FindKey(metaSeed); i >= 0 {
		info.Seed, _ = strconv.ParseInt(md.Values()[i], 10, 64)
	}
	return info
}
