package curveplot

import (
	"context"
	"fmt"
	"io"
	"runtime/trace"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// A single point of a chart dataset as streamed to subscribers.
type DataRow struct {
	X float64
	Y float64

	streamEnded bool
	streamErr   error
}

// When Read is called, return the next DataRow, or io.EOF once exhausted.
type DataRowReader interface {
	Read(context.Context) (DataRow, error)
}

// DatasetReader yields the points of a chart in label order.
type DatasetReader struct {
	points []Point
	i      int
}

func NewDatasetReader(chart *Chart) *DatasetReader {
	return &DatasetReader{points: chart.Points()}
}

func (r *DatasetReader) Read(ctx context.Context) (DataRow, error) {
	if err := ctx.Err(); err != nil {
		return DataRow{}, err
	}

	if r.i >= len(r.points) {
		return DataRow{}, io.EOF
	}

	p := r.points[r.i]
	r.i++
	return DataRow{X: p.X, Y: p.Y}, nil
}

// DataBroadcaster reads rows from its input and fans them out to registered
// channels. The most recent rows are kept in a ring buffer and replayed to
// channels registered later, so a client connecting after the dataset was
// read still receives all of it.
type DataBroadcaster struct {
	input DataRowReader

	teeOutput io.Writer

	mutex sync.Mutex
	wg    sync.WaitGroup

	streamEnded atomic.Bool
	err         error // Only read after streamEnded is true.

	// Channels of open websockets. They should be buffered, as a blocked
	// channel blocks the broadcaster.
	channelsForLiveUpdate []chan<- DataRow

	dataBuffer *ThreadUnsafeRing[DataRow]

	numDataRowsEmitted int

	logger logrus.FieldLogger
}

func NewDataBroadcaster(input DataRowReader, bufferCapacity int, teeOutput io.Writer) *DataBroadcaster {
	return &DataBroadcaster{
		input: input,

		teeOutput: teeOutput,

		channelsForLiveUpdate: make([]chan<- DataRow, 0),
		dataBuffer:            NewRing[DataRow](bufferCapacity),
		numDataRowsEmitted:    0,
		logger:                logrus.WithField("tag", "DataBroadcaster"),
	}
}

func (d *DataBroadcaster) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		err := d.run(ctx)

		d.err = err

		// Everything read after the broadcaster completes must be set before
		// this store, which publishes it.
		d.streamEnded.Store(true)

		// The end marker is cached too, so channels registered later learn that
		// the stream is over.
		d.cacheAndBroadcastData(ctx, DataRow{
			streamEnded: true,
			streamErr:   err,
		})

		logger := d.logger.WithField("numDataRowsEmitted", d.numDataRowsEmitted)
		if err != nil {
			logger = logger.WithError(err)
		}
		logger.Info("data broadcaster stream ended")
	}()
}

func (d *DataBroadcaster) Wait() {
	d.wg.Wait()
}

// Err returns the error that ended the stream. It is nil while the stream is
// running or if it ended with io.EOF.
func (d *DataBroadcaster) Err() error {
	if !d.streamEnded.Load() {
		return nil
	}
	return d.err
}

// Register a new channel. Called from the HTTP server when a new websocket
// connection is initiated.
//
// The buffered rows are pushed to c before it is added to the live channels,
// all under the broadcaster mutex, so c sees every row exactly once and in
// order. c must be buffered enough to take the replay without blocking.
func (d *DataBroadcaster) RegisterChannel(ctx context.Context, c chan<- DataRow) {
	traceCtx, task := trace.NewTask(ctx, "RegisterChannel")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", d.mutex.Lock)
	defer d.mutex.Unlock()

	trace.WithRegion(traceCtx, "pushBufferedDataToChannel", func() {
		for _, dataRow := range d.dataBuffer.ReadAllOrdered() {
			c <- dataRow
		}
	})

	d.channelsForLiveUpdate = append(d.channelsForLiveUpdate, c)

	d.logger.WithField("channels", len(d.channelsForLiveUpdate)).Info("registered channel")
}

// Deregister a channel. The channel must not be closed until this returns.
func (d *DataBroadcaster) DeregisterChannel(ctx context.Context, c chan<- DataRow) {
	traceCtx, task := trace.NewTask(ctx, "DeregisterChannel")
	defer task.End()

	trace.WithRegion(traceCtx, "Lock", d.mutex.Lock)
	defer d.mutex.Unlock()

	d.channelsForLiveUpdate = Filter(d.channelsForLiveUpdate, func(channel chan<- DataRow) bool {
		return channel != c
	})

	d.logger.WithField("channels", len(d.channelsForLiveUpdate)).Info("deregistered channel")
}

func (d *DataBroadcaster) run(ctx context.Context) error {
	var dataRow DataRow
	var err error

	for {
		traceCtx, task := trace.NewTask(ctx, "DataBroadcasterLoop")

		trace.WithRegion(traceCtx, "DataRowRead", func() {
			dataRow, err = d.input.Read(traceCtx)
		})

		if err == errIgnoreThisRow {
			task.End()
			continue
		} else if err == io.EOF {
			// Cached rows stay available to new subscribers after EOF.
			task.End()
			return nil
		} else if err != nil {
			task.End()
			return err
		}

		if d.teeOutput != nil {
			if _, err := fmt.Fprintf(d.teeOutput, "%g,%g\n", dataRow.X, dataRow.Y); err != nil {
				d.logger.WithError(err).Warn("failed to write tee output")
			}
		}

		d.cacheAndBroadcastData(traceCtx, dataRow)
		task.End()
	}
}

func (d *DataBroadcaster) cacheAndBroadcastData(traceCtx context.Context, dataRow DataRow) {
	trace.WithRegion(traceCtx, "Lock", d.mutex.Lock)
	defer d.mutex.Unlock()

	if !dataRow.streamEnded {
		d.numDataRowsEmitted++
	}

	d.logger.WithFields(logrus.Fields{
		"x": dataRow.X,
		"y": dataRow.Y,
	}).Debug("new data row")

	trace.WithRegion(traceCtx, "Cache", func() {
		d.dataBuffer.Push(dataRow)
	})

	trace.WithRegion(traceCtx, "Broadcast", func() {
		for _, c := range d.channelsForLiveUpdate {
			c <- dataRow
		}
	})
}
