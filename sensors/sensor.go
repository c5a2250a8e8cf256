package sensors

import (
	"math/rand"
	"sync"
)

// LoadCellReader is the hardware boundary for the scale. RawRead returns an
// averaged raw reading in grams over the requested number of samples;
// PowerCycle lets drivers that support it power the cell down between reads.
// The implementation is chosen once at construction; the monitor never
// probes for capabilities at call sites.
type LoadCellReader interface {
	RawRead(samples int) (float64, error)
	PowerCycle()
}

// SimulatedSensor is a software load cell for development and tests: a base
// load plus bounded random jitter. AddLoad/RemoveLoad let a demo or test
// place items on the virtual scale.
type SimulatedSensor struct {
	mu    sync.Mutex
	load  float64 // grams
	noise float64 // jitter amplitude in grams
}

func NewSimulatedSensor() *SimulatedSensor {
	return &SimulatedSensor{noise: 0.5}
}

// RawRead averages the requested number of jittered readings.
func (s *SimulatedSensor) RawRead(samples int) (float64, error) {
	if samples < 1 {
		samples = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := 0.0
	for i := 0; i < samples; i++ {
		sum += s.load + (rand.Float64()*2-1)*s.noise
	}
	return sum / float64(samples), nil
}

// PowerCycle is a no-op for the simulated cell.
func (s *SimulatedSensor) PowerCycle() {}

// AddLoad places weight on the virtual scale.
func (s *SimulatedSensor) AddLoad(grams float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load += grams
}

// RemoveLoad takes weight off the virtual scale, clamping at zero.
func (s *SimulatedSensor) RemoveLoad(grams float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load -= grams
	if s.load < 0 {
		s.load = 0
	}
}

// SetNoise adjusts the jitter amplitude.
func (s *SimulatedSensor) SetNoise(grams float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noise = grams
}
