package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Config holds the configuration for the WS reader
type Config struct {
	ServerURL string
	Output    io.Writer
	Logger    logrus.FieldLogger
}

// point mirrors the JSON objects sent on /ws. Non-finite values arrive as
// null and are written as empty CSV fields.
type point struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func formatCoordinate(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// WSReader reads the point stream of a curveplot server and writes it as CSV.
type WSReader struct {
	config    Config
	csvWriter *csv.Writer
}

func NewWSReader(config Config) *WSReader {
	return &WSReader{
		config:    config,
		csvWriter: csv.NewWriter(config.Output),
	}
}

// streamURL turns the server URL into the websocket URL of /ws.
func streamURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	return u.String(), nil
}

// Connect reads points until the server closes the stream. A normal closure
// ends the stream successfully; any other closure is returned as an error.
func (w *WSReader) Connect(ctx context.Context) error {
	wsURL, err := streamURL(w.config.ServerURL)
	if err != nil {
		return err
	}

	w.config.Logger.WithField("url", wsURL).Info("connecting to websocket")

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := w.csvWriter.Write([]string{"x", "y"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	var streamErr error
	count := 0
	for {
		var p point
		err := wsjson.Read(ctx, conn, &p)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				w.config.Logger.WithField("points", count).Info("stream ended")
			} else {
				streamErr = fmt.Errorf("stream closed: %w", err)
			}
			break
		}

		row := []string{formatCoordinate(p.X), formatCoordinate(p.Y)}
		if err := w.csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
		count++
	}

	w.csvWriter.Flush()
	if err := w.csvWriter.Error(); err != nil {
		return err
	}
	return streamErr
}

func main() {
	serverURL := pflag.String("url", "http://localhost:5274", "URL of the curveplot server")
	logLevel := pflag.String("log-level", "info", "Log level")
	pflag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(level)
	}

	config := Config{
		ServerURL: *serverURL,
		Output:    os.Stdout,
		Logger:    logger.WithField("tag", "WSReader"),
	}

	reader := NewWSReader(config)
	if err := reader.Connect(context.Background()); err != nil {
		config.Logger.WithError(err).Error("failed to read stream")
		os.Exit(1)
	}
}
