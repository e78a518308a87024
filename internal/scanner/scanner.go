// Package scanner drives the scan cycle against the live game UI:
// select a grid slot, wait for the detail panel to stop animating, read
// and validate its fields, deduplicate, advance. One cycle is in flight
// at a time; the UI itself is single-state.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"artiscan/internal/artifact"
	"artiscan/internal/capture"
	"artiscan/internal/config"
	"artiscan/internal/layout"
	"artiscan/internal/ocr"
	"artiscan/internal/parse"
	"artiscan/internal/store"
)

var (
	// ErrNoProgress means the cursor stopped moving despite repeated
	// advance commands. Fatal: aborting beats looping forever.
	ErrNoProgress = errors.New("scanner: no progress")

	// ErrStabilityTimeout means the detail panel never settled. Local:
	// the slot is re-selected once, then skipped.
	ErrStabilityTimeout = errors.New("scanner: ui never stabilized")
)

// Recognizer is the perception collaborator; satisfied by *ocr.Model.
type Recognizer interface {
	Recognize(crop image.Image) (ocr.DecodedText, error)
}

// InputAdapter mirrors input.Adapter without importing the serial bridge.
type InputAdapter interface {
	Click(pt image.Point) error
	Scroll(amount int) error
	KeyPress(key string) error
}

// Summary is what a scan run always yields, even after a fatal abort.
type Summary struct {
	Recorded int
	Skipped  int
	Expected int
	Err      error // nil on Completed
}

// Controller owns the scan loop and its session state.
type Controller struct {
	cfg     config.Scan
	profile *layout.Profile
	capture capture.Adapter
	input   InputAdapter
	reco    Recognizer
	results *store.Store
	logger  *slog.Logger

	state State
	sess  scanState
}

func New(cfg config.Scan, profile *layout.Profile, cap capture.Adapter, in InputAdapter, reco Recognizer, results *store.Store, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		profile: profile,
		capture: cap,
		input:   in,
		reco:    reco,
		results: results,
		logger:  logger,
	}
}

// Results exposes the store for export after the run.
func (c *Controller) Results() *store.Store { return c.results }

// Run drives the scan to Completed or Aborted. Whatever was accumulated
// before a fatal error stays in the result store; the summary always
// reflects it. Cancellation is cooperative: checked before each new slot,
// so a cancel mid-cycle finishes the current item first.
func (c *Controller) Run(ctx context.Context) Summary {
	c.state = StateIdle
	c.sess = scanState{}

	if err := c.readExpectedCount(); err != nil {
		c.logger.Warn("counter unreadable, relying on scroll exhaustion", "err", err)
	}
	c.logger.Info("🚀 scan started", "expected", c.sess.expected)

	c.state = StateSelecting
	var candidate *artifact.Record

	for {
		switch c.state {
		case StateSelecting:
			if err := ctx.Err(); err != nil {
				return c.abort(err)
			}
			if c.sess.done() {
				c.state = StateCompleted
				continue
			}
			if c.cfg.MaxRows > 0 && c.sess.row(c.profile.Grid.Cols) >= c.cfg.MaxRows {
				c.logger.Info("row limit reached", "rows", c.cfg.MaxRows)
				c.state = StateCompleted
				continue
			}
			exhausted, err := c.selectSlot()
			if err != nil {
				return c.abort(err)
			}
			if exhausted {
				c.state = StateCompleted
				continue
			}
			c.state = StateAwaitingStable

		case StateAwaitingStable:
			err := c.awaitStable()
			switch {
			case err == nil:
				c.state = StateRecognizing
			case errors.Is(err, ErrStabilityTimeout) && !c.sess.reselected:
				// One forced re-selection, then the slot is given up.
				c.sess.reselected = true
				c.logger.Warn("panel unstable, re-selecting slot", "index", c.sess.index)
				c.state = StateSelecting
			case errors.Is(err, ErrStabilityTimeout):
				c.skipSlot("never stabilized")
				c.state = StateAdvancing
			default:
				return c.abort(err)
			}

		case StateRecognizing:
			rec, err := c.readDetail()
			if err != nil {
				if fatal(err) {
					return c.abort(err)
				}
				c.sess.slotRetries++
				if c.sess.slotRetries >= c.cfg.SlotRetries {
					c.skipSlot(err.Error())
					c.state = StateAdvancing
					continue
				}
				c.logger.Debug("recognition retry", "index", c.sess.index, "attempt", c.sess.slotRetries, "err", err)
				continue // re-enter Recognizing with a fresh capture
			}
			candidate = rec
			c.state = StateValidating

		case StateValidating:
			if candidate.Rarity < c.cfg.MinRarity {
				// The inventory is rarity-sorted; everything from here on
				// is below the filter.
				c.logger.Info("below minimum rarity, stopping early", "rarity", candidate.Rarity)
				c.state = StateCompleted
				continue
			}
			if candidate.Rarity > c.cfg.MaxRarity {
				c.skipSlot(fmt.Sprintf("rarity %d above filter", candidate.Rarity))
				c.state = StateAdvancing
				continue
			}
			if err := candidate.Validate(); err != nil {
				c.sess.slotRetries++
				if c.sess.slotRetries >= c.cfg.SlotRetries {
					c.skipSlot(err.Error())
					c.state = StateAdvancing
					continue
				}
				c.state = StateRecognizing
				continue
			}
			if last, ok := c.results.Last(); ok && last.Fingerprint() == candidate.Fingerprint() {
				if c.sess.expected == 0 {
					// Total unknown: a panel identical to the last record
					// means the advance clicked past the last filled cell,
					// so the selection stayed put. That is the end of the
					// list, not a stall.
					c.logger.Info("list end reached", "index", c.sess.index)
					c.state = StateCompleted
					continue
				}
				// Identical to the immediately preceding record: the
				// cursor most likely did not move. Advance anyway and
				// only abort after repeated consecutive occurrences.
				c.sess.stuckCount++
				c.sess.skipped++
				c.logger.Warn("adjacent duplicate, forcing advance", "stuck", c.sess.stuckCount)
				if c.sess.stuckCount >= c.cfg.NoProgressLimit {
					return c.abort(ErrNoProgress)
				}
				c.state = StateAdvancing
				continue
			}
			c.sess.stuckCount = 0
			c.results.Append(*candidate)
			c.sess.recorded++
			c.logger.Info("📜 recorded", "index", c.sess.index, "set", candidate.SetName,
				"slot", candidate.Slot, "rarity", candidate.Rarity, "level", candidate.Level)
			c.state = StateAdvancing

		case StateAdvancing:
			c.sess.index++
			c.sess.slotRetries = 0
			c.sess.reselected = false
			c.state = StateSelecting

		case StateCompleted:
			c.logger.Info("✅ scan completed", "recorded", c.sess.recorded, "skipped", c.sess.skipped)
			return Summary{Recorded: c.sess.recorded, Skipped: c.sess.skipped, Expected: c.sess.expected}

		case StateAborted:
			// abort() returns directly; reaching this is a bug.
			return c.abort(errors.New("scanner: invalid state"))
		}
	}
}

func (c *Controller) abort(err error) Summary {
	c.state = StateAborted
	c.logger.Error("⛔ scan aborted", "err", err, "recorded", c.sess.recorded, "skipped", c.sess.skipped)
	return Summary{Recorded: c.sess.recorded, Skipped: c.sess.skipped, Expected: c.sess.expected, Err: err}
}

func (c *Controller) skipSlot(reason string) {
	c.sess.skipped++
	c.logger.Warn("slot skipped", "index", c.sess.index, "reason", reason)
}

// fatal reports whether an error must stop the whole scan rather than
// just this slot.
func fatal(err error) bool {
	return errors.Is(err, capture.ErrCaptureUnavailable)
}

// readExpectedCount reads the inventory counter once at scan start.
func (c *Controller) readExpectedCount() error {
	rect, err := c.profile.RectFor(layout.FieldCounter)
	if err != nil {
		return err
	}
	frame, err := c.captureRegion(rect)
	if err != nil {
		return err
	}
	decoded, err := c.reco.Recognize(frame.Image)
	if err != nil {
		return err
	}
	n, err := parse.Counter(decoded.Text)
	if err != nil {
		return err
	}
	c.sess.expected = n
	return nil
}

// captureRegion grabs a region with the configured retry bound. Capture
// failure past the bound is fatal.
func (c *Controller) captureRegion(r image.Rectangle) (*capture.Frame, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.CaptureRetries; attempt++ {
		frame, err := c.capture.CaptureRegion(r)
		if err == nil {
			return frame, nil
		}
		lastErr = err
		time.Sleep(c.cfg.StabilityPoll)
	}
	if lastErr == nil {
		// Guards a zero retry bound: falling through without an attempt
		// must still surface an error, never a nil frame.
		lastErr = fmt.Errorf("%w: no capture attempts", capture.ErrCaptureUnavailable)
	}
	return nil, lastErr
}
