package app

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/store"
)

// Stats are pipeline counters since the app was created.
type Stats struct {
	Capture       capture.Stats `json:"capture"`
	Segmented     uint64        `json:"segmented"`
	SegmentErrors uint64        `json:"segment_errors"`
	Published     uint64        `json:"published"`
	Discarded     uint64        `json:"discarded"`
}

type pipelineStats struct {
	segmented     atomic.Uint64
	segmentErrors atomic.Uint64
	published     atomic.Uint64
	discarded     atomic.Uint64
	failing       atomic.Bool
}

// Stats returns the pipeline counters.
func (a *App) Stats() Stats {
	return Stats{
		Capture:       a.source.Stats(),
		Segmented:     a.stats.segmented.Load(),
		SegmentErrors: a.stats.segmentErrors.Load(),
		Published:     a.stats.published.Load(),
		Discarded:     a.stats.discarded.Load(),
	}
}

// handleFrame processes one frame on the capture delivery goroutine.
//
// The raw frame is always published for the plain presentation. With
// background removal on, the frame is segmented and composited, and the
// result is published unless the state moved on in the meantime. Errors are
// logged and the frame dropped; the last good composite stays in place.
func (a *App) handleFrame(frame *capture.Frame) {
	defer frame.Close()

	log := a.log.WithField("seq", frame.Seq)

	if img, err := frame.Mat.ToImage(); err != nil {
		log.WithError(err).Debug("failed to convert frame")
	} else {
		a.state.PublishLive(&LiveFrame{Image: img, Seq: frame.Seq, Timestamp: frame.Timestamp})
	}

	if a.engine == nil {
		return
	}

	ticket, ok := a.state.Begin()
	if !ok {
		return
	}

	mask, err := a.engine.Segment(frame)
	if err != nil {
		a.frameFailed(log, "segmentation failed", err)
		return
	}
	defer mask.Close()

	out, err := a.compositor.Composite(frame, mask)
	if err != nil {
		a.frameFailed(log, "compositing failed", err)
		return
	}
	a.stats.segmented.Add(1)

	if a.stats.failing.Swap(false) {
		log.Info("background removal recovered")
	}

	if a.state.PublishComposite(ticket, out) {
		a.stats.published.Add(1)
	} else {
		a.stats.discarded.Add(1)
		log.Debug("composite discarded")
	}
}

// frameFailed logs the first failure of a run at warning level and the
// rest at debug level.
func (a *App) frameFailed(log logrus.FieldLogger, msg string, err error) {
	a.stats.segmentErrors.Add(1)
	if a.stats.failing.Swap(true) {
		log.WithError(err).Debug(msg)
		return
	}
	log.WithError(err).Warn(msg)
}

func (a *App) beginSession(dev capture.Device) {
	a.baseline = a.source.Stats()
	if a.config.Store == nil {
		return
	}

	sess := &store.Session{DeviceID: dev.ID, DeviceName: dev.String()}
	if err := a.config.Store.Sessions().Create(sess); err != nil {
		a.log.WithError(err).Warn("failed to record session")
		return
	}
	a.session = sess
}

func (a *App) finishSession() {
	if a.session == nil {
		return
	}
	sess := a.session
	a.session = nil

	now := a.source.Stats()
	sess.Captured = now.Captured - a.baseline.Captured
	sess.Delivered = now.Delivered - a.baseline.Delivered
	sess.Dropped = now.Dropped - a.baseline.Dropped
	sess.ReadErrors = now.ReadErrors - a.baseline.ReadErrors

	if err := a.config.Store.Sessions().Finish(sess); err != nil {
		a.log.WithError(err).Warn("failed to finish session")
		return
	}

	a.log.WithFields(logrus.Fields{
		"session":  sess.ID,
		"captured": sess.Captured,
		"dropped":  sess.Dropped,
	}).Info("session finished")
}
