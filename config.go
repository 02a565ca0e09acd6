package curveplot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the settings of the curveplot commands. Values come from
// defaults, then CURVEPLOT_* environment variables, then flags.
type Config struct {
	Labels       string
	Range        string
	LabelsFile   string
	LabelsFormat string // "relaxed" or "csv"

	Function string
	Min      float64
	Max      float64

	CanvasID string
	Format   string
	Output   string
	Tee      string

	Host string
	Port int
	Open bool

	LogLevel string
}

func DefaultConfig() Config {
	return Config{
		LabelsFormat: "relaxed",
		Function:     "constant-product:1",
		Min:          0,
		Max:          10,
		CanvasID:     "chart",
		Format:       string(FormatPNG),
		Output:       "chart.png",
		Host:         "localhost",
		Port:         5274,
		LogLevel:     "info",
	}
}

const envPrefix = "CURVEPLOT_"

// Environment variable suffix to flag name.
var envKeys = map[string]string{
	"LABELS":        "labels",
	"RANGE":         "range",
	"LABELS_FILE":   "labels-file",
	"LABELS_FORMAT": "labels-format",
	"FN":            "fn",
	"MIN":           "min",
	"MAX":           "max",
	"CANVAS_ID":     "canvas-id",
	"FORMAT":        "format",
	"OUTPUT":        "output",
	"TEE":           "tee",
	"HOST":          "host",
	"PORT":          "port",
	"OPEN":          "open",
	"LOG_LEVEL":     "log-level",
}

// ReadEnv merges the process environment over the variables of envFile.
// A missing envFile is not an error unless required is set.
func ReadEnv(envFile string, required bool) (map[string]string, error) {
	env := map[string]string{}

	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
			}
			logrus.WithField("envFile", envFile).Debug("no env file, skipping")
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}

	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, envPrefix) {
			env[k] = v
		}
	}

	return env, nil
}

// ApplyEnv sets fields from CURVEPLOT_* entries of env. Entries whose flag
// was set explicitly, as reported by flagSet, are skipped.
func (c *Config) ApplyEnv(env map[string]string, flagSet func(name string) bool) error {
	for suffix, flag := range envKeys {
		value, ok := env[envPrefix+suffix]
		if !ok || (flagSet != nil && flagSet(flag)) {
			continue
		}
		if err := c.set(flag, value); err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, suffix, err)
		}
	}
	return nil
}

func (c *Config) set(flag, value string) error {
	var err error
	switch flag {
	case "labels":
		c.Labels = value
	case "range":
		c.Range = value
	case "labels-file":
		c.LabelsFile = value
	case "labels-format":
		c.LabelsFormat = value
	case "fn":
		c.Function = value
	case "min":
		c.Min, err = strconv.ParseFloat(value, 64)
	case "max":
		c.Max, err = strconv.ParseFloat(value, 64)
	case "canvas-id":
		c.CanvasID = value
	case "format":
		c.Format = value
	case "output":
		c.Output = value
	case "tee":
		c.Tee = value
	case "host":
		c.Host = value
	case "port":
		c.Port, err = strconv.Atoi(value)
	case "open":
		c.Open, err = strconv.ParseBool(value)
	case "log-level":
		c.LogLevel = value
	default:
		err = fmt.Errorf("unknown setting %q", flag)
	}
	return err
}

// ResolveLabels returns the labels from the first configured source: the
// inline list, the range, then the labels file ("-" is stdin).
func (c Config) ResolveLabels(ctx context.Context, stdin io.Reader) ([]float64, error) {
	switch {
	case c.Labels != "":
		return ParseLabels(c.Labels)
	case c.Range != "":
		return ParseLabelRange(c.Range)
	case c.LabelsFile != "":
		input := stdin
		if c.LabelsFile != "-" {
			f, err := os.Open(c.LabelsFile)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			input = f
		}

		var stringReader StringReader
		switch c.LabelsFormat {
		case "", "relaxed":
			stringReader = NewRelaxedStringReader(input)
		case "csv":
			stringReader = NewCsvStringReader(input)
		default:
			return nil, fmt.Errorf("unknown labels format %q", c.LabelsFormat)
		}

		return ReadAllLabels(ctx, &LabelReader{Input: stringReader})
	default:
		return nil, errors.New("no labels given: use --labels, --range or --labels-file")
	}
}

// ConfigureLogging sets the level and formatter of the standard logrus logger.
func ConfigureLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)
	return nil
}
