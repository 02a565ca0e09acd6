package curveplot

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Labels can be given inline, as an arithmetic range, or as a text stream.
// For streams, an io.Reader is wrapped in a StringReader that splits lines into
// fields, and a LabelReader turns the fields into numbers.

var errIgnoreThisRow = errors.New("ignore this row")

// When Read is called, return an array of strings which are the fields of the
// next line.
type StringReader interface {
	Read(context.Context) ([]string, error)
}

// This implements a StringReader over the Golang csv module, so the input
// must strictly conform to CSV. Rows may have different field counts.
type CsvStringReader struct {
	input     io.Reader
	csvReader *csv.Reader

	lineCount int
}

func NewCsvStringReader(input io.Reader) *CsvStringReader {
	csvReader := csv.NewReader(input)
	csvReader.FieldsPerRecord = -1

	return &CsvStringReader{
		input:     input,
		csvReader: csvReader,
		lineCount: 0,
	}
}

func (r *CsvStringReader) Read(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	line, err := r.csvReader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}

	r.lineCount++

	if err != nil {
		logger := logrus.WithFields(logrus.Fields{
			"tag":     "CsvString",
			"line":    line,
			"lineNum": r.lineCount,
		})

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			logger.WithError(err).Debug("unable to parse CSV, ignoring...")
			return nil, errIgnoreThisRow
		}

		logger.WithError(err).Error("unable to read CSV")
		return nil, err
	}

	return line, nil
}

// A relaxed reader that splits on whitespace or commas without CSV quoting
// rules. This is the default for label files.
type RelaxedStringReader struct {
	input   io.Reader
	scanner *bufio.Scanner

	lineCount int
}

func NewRelaxedStringReader(input io.Reader) *RelaxedStringReader {
	return &RelaxedStringReader{
		input:   input,
		scanner: bufio.NewScanner(input),

		lineCount: 0,
	}
}

// Split on either comma or any number of spaces or tabs
var relaxedSplitter = regexp.MustCompile("[ \t]+|,")

func (r *RelaxedStringReader) Read(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			logrus.WithField("tag", "RelaxedString").WithError(err).Error("unable to read line")
			return nil, err
		}
		return nil, io.EOF
	}

	r.lineCount++

	return Filter(relaxedSplitter.Split(r.scanner.Text(), -1), func(value string) bool {
		return len(value) > 0
	}), nil
}

// LabelReader converts the fields of each line into labels. Fields that are
// not numbers are skipped with a warning; a line without any number is
// ignored.
type LabelReader struct {
	Input StringReader
}

func (r *LabelReader) Read(ctx context.Context) ([]float64, error) {
	line, err := r.Input.Read(ctx)
	if err != nil {
		return nil, err
	}

	logger := logrus.WithFields(logrus.Fields{
		"tag":  "LabelReader",
		"line": line,
	})

	labels := make([]float64, 0, len(line))
	for _, value := range line {
		label, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			logger.WithField("value", value).Warn("cannot parse label, ignoring...")
			continue
		}
		labels = append(labels, label)
	}

	if len(labels) == 0 {
		return nil, errIgnoreThisRow
	}

	return labels, nil
}

// ReadAllLabels reads labels until the input is exhausted, keeping file order.
func ReadAllLabels(ctx context.Context, r *LabelReader) ([]float64, error) {
	var labels []float64
	for {
		line, err := r.Read(ctx)
		if err == errIgnoreThisRow {
			continue
		} else if err == io.EOF {
			return labels, nil
		} else if err != nil {
			return labels, err
		}

		labels = append(labels, line...)
	}
}

// ParseLabels parses a comma or whitespace separated list of numbers. An
// empty string gives no labels.
func ParseLabels(s string) ([]float64, error) {
	fields := Filter(relaxedSplitter.Split(strings.TrimSpace(s), -1), func(value string) bool {
		return len(value) > 0
	})

	labels := make([]float64, 0, len(fields))
	for _, field := range fields {
		label, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid label %q: %w", field, err)
		}
		labels = append(labels, label)
	}
	return labels, nil
}

const maxRangeLabels = 1000000

// LabelRange returns start, start+step, ... up to and including stop. Values
// are computed by multiplication so rounding errors do not accumulate.
func LabelRange(start, stop, step float64) ([]float64, error) {
	if !isFinite(start) || !isFinite(stop) || !isFinite(step) {
		return nil, fmt.Errorf("%w: non finite bound", ErrInvalidRange)
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %v", ErrInvalidRange, step)
	}
	if stop < start {
		return nil, fmt.Errorf("%w: stop %v is before start %v", ErrInvalidRange, stop, start)
	}

	count := math.Floor((stop-start)/step+1e-9) + 1
	if count > maxRangeLabels {
		return nil, fmt.Errorf("%w: %v labels exceeds the limit of %d", ErrInvalidRange, count, maxRangeLabels)
	}

	n := int(count)
	labels := make([]float64, n)
	for i := range labels {
		labels[i] = start + float64(i)*step
	}
	return labels, nil
}

// ParseLabelRange parses "start:stop:step" (step defaults to 1).
func ParseLabelRange(s string) ([]float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected start:stop[:step], got %q", ErrInvalidRange, s)
	}

	values := []float64{0, 0, 1}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
		}
		values[i] = v
	}

	return LabelRange(values[0], values[1], values[2])
}
