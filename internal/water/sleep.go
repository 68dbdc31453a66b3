package water

import (
	"go.uber.org/zap"

	"voxelwater/internal/world"
)

type chunkActivity struct {
	volume  []float64
	updates []int
	cur     int
	stable  int
	asleep  bool
}

func (a *chunkActivity) reset() {
	clear(a.volume)
	clear(a.updates)
	a.stable = 0
	a.asleep = false
}

func (a *chunkActivity) totals() (float64, int) {
	v, u := 0.0, 0
	for i := range a.volume {
		v += a.volume[i]
		u += a.updates[i]
	}
	return v, u
}

// SleepManager tracks per-chunk lateral activity over a trailing window and
// puts quiet chunks to sleep.
type SleepManager struct {
	params SleepParams
	chunks map[world.ChunkCoord]*chunkActivity
	log    *zap.Logger
}

// NewSleepManager creates a manager with the given thresholds.
func NewSleepManager(p SleepParams, log *zap.Logger) *SleepManager {
	if p.Window <= 0 {
		p.Window = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SleepManager{
		params: p,
		chunks: make(map[world.ChunkCoord]*chunkActivity),
		log:    log,
	}
}

func (m *SleepManager) activity(coord world.ChunkCoord) *chunkActivity {
	a, ok := m.chunks[coord]
	if !ok {
		a = &chunkActivity{
			volume:  make([]float64, m.params.Window),
			updates: make([]int, m.params.Window),
		}
		m.chunks[coord] = a
	}
	return a
}

// Record adds activity observed for coord during the current tick.
func (m *SleepManager) Record(coord world.ChunkCoord, volumeDelta float64, updates int) {
	a := m.activity(coord)
	if volumeDelta < 0 {
		volumeDelta = -volumeDelta
	}
	a.volume[a.cur] += volumeDelta
	a.updates[a.cur] += updates
}

// EndTick closes the current window slot and updates sleep states.
func (m *SleepManager) EndTick() {
	for coord, a := range m.chunks {
		v, u := a.totals()
		if v <= m.params.VolumeThreshold && u <= m.params.UpdateThreshold {
			a.stable++
		} else {
			a.stable = 0
		}
		asleep := m.params.Enabled && a.stable >= m.params.MinStableTicks
		if asleep && !a.asleep {
			m.log.Debug("chunk asleep", zap.Stringer("chunk", coord), zap.Int("stable_ticks", a.stable))
		}
		a.asleep = asleep
		a.cur = (a.cur + 1) % len(a.volume)
		a.volume[a.cur] = 0
		a.updates[a.cur] = 0
	}
}

// IsAsleep reports whether lateral flow should skip coord.
func (m *SleepManager) IsAsleep(coord world.ChunkCoord) bool {
	if !m.params.Enabled {
		return false
	}
	a, ok := m.chunks[coord]
	return ok && a.asleep
}

// Wake resets the stability window of coord. It reports whether the chunk
// was asleep.
func (m *SleepManager) Wake(coord world.ChunkCoord, reason string) bool {
	a, ok := m.chunks[coord]
	if !ok {
		return false
	}
	was := a.asleep
	a.reset()
	if was {
		m.log.Debug("chunk woken", zap.Stringer("chunk", coord), zap.String("reason", reason))
	}
	return was
}

// Remove forgets coord.
func (m *SleepManager) Remove(coord world.ChunkCoord) {
	delete(m.chunks, coord)
}

// Asleep returns the number of sleeping chunks.
func (m *SleepManager) Asleep() int {
	n := 0
	for _, a := range m.chunks {
		if a.asleep {
			n++
		}
	}
	return n
}
