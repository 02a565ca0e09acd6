package curveplot

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// HttpServer serves a rendered chart:
//
//	GET /        the canvas surface (PNG or SVG)
//	GET /config  the chart configuration as JSON, drawable by Chart.js
//	GET /ws      the dataset points, one JSON object per message
type HttpServer struct {
	chart           *Chart
	dataBroadcaster *DataBroadcaster
	bufferSize      int

	host string
	port int

	mux     *http.ServeMux
	handler http.Handler
	server  *http.Server
	logger  logrus.FieldLogger
}

// pointMessage is the JSON form of a DataRow on the websocket. Non-finite
// coordinates are sent as null.
type pointMessage struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type nullablePoint struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (p pointMessage) MarshalJSON() ([]byte, error) {
	xy := nullableFloats([]float64{p.X, p.Y})
	return json.Marshal(nullablePoint{X: xy[0], Y: xy[1]})
}

func (p *pointMessage) UnmarshalJSON(b []byte) error {
	var aux nullablePoint
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	xy := denullFloats([]*float64{aux.X, aux.Y})
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// NewHttpServer wires the routes for chart. bufferSize is the per client
// channel size and must be at least the broadcaster's buffer capacity.
func NewHttpServer(chart *Chart, dataBroadcaster *DataBroadcaster, bufferSize int, host string, port int) *HttpServer {
	s := &HttpServer{
		chart:           chart,
		dataBroadcaster: dataBroadcaster,
		bufferSize:      bufferSize,
		host:            host,
		port:            port,
		mux:             http.NewServeMux(),
		logger:          logrus.WithField("tag", "HttpServer"),
	}
	s.server = &http.Server{Addr: s.Addr()}

	s.mux.HandleFunc("/", s.handleCanvas)
	s.mux.HandleFunc("/config", s.handleConfig)
	s.mux.HandleFunc("/ws", s.handleWebSocket)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.mux)
	s.server.Handler = s.handler

	return s
}

func (s *HttpServer) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

func (s *HttpServer) handleCanvas(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}

	contentType, image := s.chart.Canvas.Snapshot()
	if len(image) == 0 {
		http.Error(w, "canvas has not been drawn", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))
	if _, err := w.Write(image); err != nil {
		s.logger.WithError(err).Warn("failed to write canvas")
	}
}

func (s *HttpServer) handleConfig(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.chart.Config); err != nil {
		s.logger.WithError(err).Error("failed to encode chart config")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *HttpServer) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	if s.dataBroadcaster == nil {
		http.Error(w, "point stream is not enabled", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	// Nothing is read from clients.
	ctx := c.CloseRead(req.Context())

	channel := make(chan DataRow, s.bufferSize)
	wg := sync.WaitGroup{}
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			select {
			case dataRow := <-channel:
				if dataRow.streamEnded {
					if dataRow.streamErr != nil {
						c.Close(websocket.StatusInternalError, closeReason(dataRow.streamErr))
					} else {
						c.Close(websocket.StatusNormalClosure, "stream ended")
					}
					return
				}

				err := wsjson.Write(ctx, c, pointMessage{X: dataRow.X, Y: dataRow.Y})
				if err != nil {
					s.logger.WithError(err).Warn("websocket write failed and closed")
					c.Close(websocket.StatusInternalError, closeReason(err))
					return
				}
			case <-ctx.Done():
				s.logger.Info("client closed connection or context canceled")
				c.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}()

	// The writer goroutine is already draining the channel, so the replay in
	// RegisterChannel cannot block on a full buffer for long.
	s.dataBroadcaster.RegisterChannel(ctx, channel)

	wg.Wait()

	// A live broadcast into a full channel holds the broadcaster mutex, so the
	// channel is drained until deregistration gets the lock.
	deregistered := make(chan struct{})
	go func() {
		s.dataBroadcaster.DeregisterChannel(ctx, channel)
		close(deregistered)
	}()

	for {
		select {
		case <-channel:
		case <-deregistered:
			close(channel)
			return
		}
	}
}

// Run listens on the configured address until Shutdown is called.
func (s *HttpServer) Run() error {
	s.logger.Infof("starting HTTP server at http://%s", s.Addr())

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *HttpServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Close reasons are limited to 123 bytes by the websocket protocol.
func closeReason(err error) string {
	reason := err.Error()
	if len(reason) > 120 {
		reason = reason[:120]
	}
	return reason
}
