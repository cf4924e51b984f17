package uci

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
)

type PoolConfig struct {
	BinaryPath       string
	PerLevelCapacity int
}

// Pool keeps warm engine subprocesses grouped by skill level, so consecutive
// searches at the same difficulty reuse a configured process instead of
// paying the uci handshake again. Callers return sessions with Release and
// name the level they acquired at.
type Pool struct {
	binaryPath string
	capacity   int

	mu     sync.Mutex
	levels map[int]*levelPool
}

// levelPool tracks the sessions of one skill level: idle ones in the channel,
// live counts both idle and checked-out.
type levelPool struct {
	mu   sync.Mutex
	live int
	idle chan *Session
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}

	capacity := cfg.PerLevelCapacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	return &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		levels:     make(map[int]*levelPool),
	}, nil
}

// Acquire hands out a ready session configured for the skill level, spawning
// one when none is idle and the level is under capacity, blocking otherwise.
func (p *Pool) Acquire(ctx context.Context, skill int) (*Session, error) {
	lp := p.level(skill)

	for {
		select {
		case s := <-lp.idle:
			if err := s.EnsureReady(ctx); err == nil {
				return s, nil
			}
			lp.retire(s)
			continue
		default:
		}

		if lp.reserve(p.capacity) {
			s, err := NewSession(ctx, p.binaryPath, Options{SkillLevel: skill})
			if err != nil {
				lp.unreserve()
				return nil, err
			}
			return s, nil
		}

		select {
		case s := <-lp.idle:
			if err := s.EnsureReady(ctx); err == nil {
				return s, nil
			}
			lp.retire(s)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release parks a healthy session for reuse at its level, or destroys it when
// the search ended in error.
func (p *Pool) Release(skill int, s *Session, err error) {
	if s == nil {
		return
	}
	lp := p.level(skill)
	if err != nil {
		lp.retire(s)
		return
	}
	select {
	case lp.idle <- s:
	default:
		lp.retire(s)
	}
}

// Close destroys every idle session. Checked-out sessions are destroyed by
// their holders through Release.
func (p *Pool) Close() error {
	p.mu.Lock()
	levels := make([]*levelPool, 0, len(p.levels))
	for _, lp := range p.levels {
		levels = append(levels, lp)
	}
	p.mu.Unlock()

	for _, lp := range levels {
		for drained := false; !drained; {
			select {
			case s := <-lp.idle:
				lp.retire(s)
			default:
				drained = true
			}
		}
	}
	return nil
}

func (p *Pool) level(skill int) *levelPool {
	p.mu.Lock()
	defer p.mu.Unlock()
	lp, ok := p.levels[skill]
	if !ok {
		lp = &levelPool{idle: make(chan *Session, p.capacity)}
		p.levels[skill] = lp
	}
	return lp
}

func (lp *levelPool) reserve(capacity int) bool {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.live >= capacity {
		return false
	}
	lp.live++
	return true
}

func (lp *levelPool) unreserve() {
	lp.mu.Lock()
	if lp.live > 0 {
		lp.live--
	}
	lp.mu.Unlock()
}

func (lp *levelPool) retire(s *Session) {
	if s != nil {
		_ = s.Close()
	}
	lp.unreserve()
}

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}
