package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cactusdynamics/curveplot"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// startCurveplotServer draws labels through fn and serves them on a free port.
func startCurveplotServer(t *testing.T, labels []float64, fn func(float64) float64) string {
	t.Helper()

	// Find available port
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	doc := curveplot.NewDocument()
	doc.CreateCanvas("chart")
	chart, err := curveplot.DrawLineChart(doc, "chart", labels, fn, 0, 10)
	if err != nil {
		t.Fatalf("Failed to draw chart: %v", err)
	}

	bufferSize := len(labels) + 1
	dataBroadcaster := curveplot.NewDataBroadcaster(curveplot.NewDatasetReader(chart), bufferSize, nil)
	server := curveplot.NewHttpServer(chart, dataBroadcaster, bufferSize, "localhost", port)

	ctx, cancel := context.WithCancel(context.Background())
	dataBroadcaster.Start(ctx)

	go func() {
		server.Run()
	}()

	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
		cancel()
		dataBroadcaster.Wait()
	})

	// Wait for server to start
	time.Sleep(100 * time.Millisecond)

	return "http://localhost:" + strconv.Itoa(port)
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestWSReaderBasicData(t *testing.T) {
	serverURL := startCurveplotServer(t, []float64{1, 2, 4}, func(x float64) float64 { return 10 / x })

	var output bytes.Buffer
	reader := NewWSReader(Config{
		ServerURL: serverURL,
		Output:    &output,
		Logger:    testLogger(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := reader.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	want := "x,y\n1,10\n2,5\n4,2.5\n"
	if got := output.String(); got != want {
		t.Fatalf("unexpected CSV output:\nwant: %q\ngot:  %q", want, got)
	}
}

func TestWSReaderNonFiniteValues(t *testing.T) {
	serverURL := startCurveplotServer(t, []float64{0, 1, 2}, func(x float64) float64 { return 1 / x })

	var output bytes.Buffer
	reader := NewWSReader(Config{
		ServerURL: serverURL,
		Output:    &output,
		Logger:    testLogger(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := reader.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	want := "x,y\n0,\n1,1\n2,0.5\n"
	if got := output.String(); got != want {
		t.Fatalf("unexpected CSV output:\nwant: %q\ngot:  %q", want, got)
	}
}

func TestWSReaderEmptyData(t *testing.T) {
	serverURL := startCurveplotServer(t, []float64{}, func(x float64) float64 { return x })

	var output bytes.Buffer
	reader := NewWSReader(Config{
		ServerURL: serverURL,
		Output:    &output,
		Logger:    testLogger(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := reader.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if got := output.String(); got != "x,y\n" {
		t.Fatalf("expected only the header, got %q", got)
	}
}

func TestWSReaderAbnormalClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		x, y := 1.0, 2.0
		wsjson.Write(r.Context(), conn, point{X: &x, Y: &y})
		conn.Close(websocket.StatusInternalError, "reader failed")
	}))
	defer srv.Close()

	var output bytes.Buffer
	reader := NewWSReader(Config{
		ServerURL: srv.URL,
		Output:    &output,
		Logger:    testLogger(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := reader.Connect(ctx)
	if err == nil {
		t.Fatalf("expected an error for an abnormal close")
	}
	if status := websocket.CloseStatus(err); status != websocket.StatusInternalError {
		t.Fatalf("unexpected close status: %v", status)
	}

	// Rows received before the failure are still written.
	if got := output.String(); got != "x,y\n1,2\n" {
		t.Fatalf("unexpected CSV output: %q", got)
	}
}

func TestStreamURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:5274", "ws://localhost:5274/ws"},
		{"https://example.com/base", "wss://example.com/ws"},
		{"ws://localhost:1/", "ws://localhost:1/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := streamURL(tt.in)
			if err != nil {
				t.Fatalf("streamURL(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("streamURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("invalid", func(t *testing.T) {
		if _, err := streamURL("http://[::1"); err == nil {
			t.Fatalf("expected an error")
		}
	})
}
