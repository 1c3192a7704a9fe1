package pii

import (
	"math/rand"
	"sync"
	"time"

	"github.com/hannes/pellucid-sanitizer/pii/detectors"
	"github.com/hannes/pellucid-sanitizer/pii/generators"
)

// GeneratorService owns the process-wide random source shared by synthetic
// value generation and noise sampling. All access goes through the mutex.
type GeneratorService struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGeneratorService creates a new generator service
func NewGeneratorService() *GeneratorService {
	// #nosec G404 - synthetic values and noise are not security-critical
	return &GeneratorService{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewGeneratorServiceWithSeed creates a generator with a fixed seed for deterministic output (testing)
func NewGeneratorServiceWithSeed(seed int64) *GeneratorService {
	// #nosec G404 - synthetic values and noise are not security-critical
	return &GeneratorService{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GenerateReplacement returns a synthetic value for the given entity type
func (s *GeneratorService) GenerateReplacement(t detectors.EntityType, originalText string) string {
	gen := generators.For(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen(s.rng, originalText)
}

// Uniform returns a value in [-0.5, 0.5)
func (s *GeneratorService) Uniform() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() - 0.5
}
