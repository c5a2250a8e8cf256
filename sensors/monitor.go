package sensors

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"smart-cart-service/models"
)

// Options tunes the scale monitor. Zero values fall back to the defaults
// below.
type Options struct {
	SamplePeriod       time.Duration // sampling loop period
	WindowSize         int           // smoothing window capacity
	RawSamples         int           // raw samples averaged per reading
	StabilityThreshold float64       // max-min spread for a stable window, grams
	ItemThreshold      float64       // stable-baseline shift that counts as an item, grams
	SettleDelay        time.Duration // wait before a discrepancy check
	MismatchTolerance  float64       // allowed |actual-expected| delta, grams
}

func (o Options) withDefaults() Options {
	if o.SamplePeriod <= 0 {
		o.SamplePeriod = 200 * time.Millisecond
	}
	if o.WindowSize <= 0 {
		o.WindowSize = 5
	}
	if o.RawSamples <= 0 {
		o.RawSamples = 10
	}
	if o.StabilityThreshold <= 0 {
		o.StabilityThreshold = 2.0
	}
	if o.ItemThreshold <= 0 {
		o.ItemThreshold = 50.0
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 10 * time.Second
	}
	if o.MismatchTolerance <= 0 {
		o.MismatchTolerance = 100.0
	}
	return o
}

// ScaleMonitor runs the background sampling loop over a load cell: it
// maintains a smoothed weight estimate, optionally watches for stable
// add/remove steps while a session is active, and runs one-shot discrepancy
// checks after session mutations.
//
// All shared state (window, history, baselines) sits behind one mutex;
// ReadWeight never observes a partially updated window. Change events and
// mismatches ride buffered channels and are dropped with a warning when no
// one is draining them; they are diagnostics, never control flow.
type ScaleMonitor struct {
	sensor LoadCellReader
	opts   Options
	log    *zap.Logger

	mu         sync.Mutex
	baseline   float64   // tare offset, raw units
	window     []float64 // recent readings, grams
	current    float64   // mean of window
	detect     bool      // change detection enabled
	history    []float64 // recent estimates for stability detection
	stableBase float64   // last stable mean
	haveStable bool

	events     chan models.WeightEvent
	mismatches chan models.WeightMismatch

	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewScaleMonitor(sensor LoadCellReader, opts Options, log *zap.Logger) *ScaleMonitor {
	return &ScaleMonitor{
		sensor:     sensor,
		opts:       opts.withDefaults(),
		log:        log,
		events:     make(chan models.WeightEvent, 16),
		mismatches: make(chan models.WeightMismatch, 16),
	}
}

// Events streams item added/removed signals detected from stable weight
// steps.
func (m *ScaleMonitor) Events() <-chan models.WeightEvent {
	return m.events
}

// Mismatches streams discrepancy-verification anomalies.
func (m *ScaleMonitor) Mismatches() <-chan models.WeightMismatch {
	return m.mismatches
}

// Start launches the sampling loop. Starting an already running monitor is
// a no-op.
func (m *ScaleMonitor) Start() {
	if !m.running.CompareAndSwap(false, true) {
		return
	}
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.run()
}

// Stop halts the sampling loop and any in-flight discrepancy checks, and
// waits for them to exit. Safe to call more than once, or when the loop
// never started.
func (m *ScaleMonitor) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.stop)
	m.wg.Wait()
}

func (m *ScaleMonitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.SamplePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

// sample takes one reading and advances the window, estimate, and change
// detection. A failed reading is logged and skipped; one bad iteration
// never kills the loop.
func (m *ScaleMonitor) sample() {
	raw, err := m.sensor.RawRead(1)
	if err != nil {
		m.log.Warn("weight sample failed", zap.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	grams := raw - m.baseline
	m.window = append(m.window, grams)
	if len(m.window) > m.opts.WindowSize {
		m.window = m.window[1:]
	}
	m.current = mean(m.window)

	if !m.detect {
		return
	}

	m.history = append(m.history, m.current)
	if len(m.history) > m.opts.WindowSize {
		m.history = m.history[1:]
	}
	if len(m.history) < m.opts.WindowSize {
		return
	}
	if spread(m.history) >= m.opts.StabilityThreshold {
		return
	}

	stableMean := mean(m.history)
	if !m.haveStable {
		m.stableBase = stableMean
		m.haveStable = true
		return
	}

	delta := stableMean - m.stableBase
	if math.Abs(delta) <= m.opts.ItemThreshold {
		return
	}

	ev := models.WeightEvent{
		Type:       models.WeightItemAdded,
		DeltaGrams: delta,
		At:         time.Now(),
	}
	if delta < 0 {
		ev.Type = models.WeightItemRemoved
	}
	m.stableBase = stableMean

	select {
	case m.events <- ev:
	default:
		m.log.Warn("weight event dropped, channel full",
			zap.String("type", string(ev.Type)),
			zap.Float64("delta_grams", ev.DeltaGrams),
		)
	}
}

// ReadWeight returns the current smoothed estimate in grams. While the
// sampling loop is running this is the window mean; otherwise one direct
// synchronous reading is taken.
func (m *ScaleMonitor) ReadWeight() float64 {
	if m.running.Load() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if len(m.window) > 0 {
			return m.current
		}
	}
	return m.directRead()
}

func (m *ScaleMonitor) directRead() float64 {
	raw, err := m.sensor.RawRead(m.opts.RawSamples)
	if err != nil {
		m.log.Warn("direct weight read failed", zap.Error(err))
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.current
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return raw - m.baseline
}

// Tare re-establishes the zero baseline from a fresh batch average and
// clears the window. Callable while the sampling loop runs; readings taken
// during the batch average still use the pre-tare baseline, a short,
// accepted inaccuracy rather than an error.
func (m *ScaleMonitor) Tare() error {
	raw, err := m.sensor.RawRead(m.opts.RawSamples)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseline = raw
	m.window = m.window[:0]
	m.current = 0
	m.history = m.history[:0]
	m.haveStable = false
	m.stableBase = 0
	return nil
}

// SetChangeDetection toggles the stable-step monitoring mode used while a
// session is active. Enabling resets the stability history so leftover
// state from a previous session cannot fire a spurious event.
func (m *ScaleMonitor) SetChangeDetection(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled && !m.detect {
		m.history = m.history[:0]
		m.haveStable = false
		m.stableBase = 0
	}
	m.detect = enabled
}

// VerifyDelta schedules a one-shot discrepancy check: after the settle
// delay, the measured change since now is compared with the expected signed
// delta and a WeightMismatch is emitted when they disagree beyond the
// tolerance. Fire and forget: the caller's mutation is never blocked or
// reverted, and the check is abandoned on shutdown.
func (m *ScaleMonitor) VerifyDelta(itemID string, expectedGrams float64) {
	before := m.ReadWeight()
	stop := m.stop
	if !m.running.Load() {
		stop = nil
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		timer := time.NewTimer(m.opts.SettleDelay)
		defer timer.Stop()

		select {
		case <-stop:
			return
		case <-timer.C:
		}

		actual := m.ReadWeight() - before
		if math.Abs(actual-expectedGrams) <= m.opts.MismatchTolerance {
			return
		}

		mismatch := models.WeightMismatch{
			ItemID:        itemID,
			ExpectedGrams: expectedGrams,
			ActualGrams:   actual,
			At:            time.Now(),
		}
		m.log.Warn("weight mismatch detected",
			zap.String("item_id", itemID),
			zap.Float64("expected_grams", expectedGrams),
			zap.Float64("actual_grams", actual),
		)
		select {
		case m.mismatches <- mismatch:
		default:
			m.log.Warn("weight mismatch dropped, channel full", zap.String("item_id", itemID))
		}
	}()
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func spread(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return max - min
}
