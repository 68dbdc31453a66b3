// Package water simulates volume-conserving water in a chunked voxel world.
//
// The Engine runs a fixed stage order once per tick: pending events, vertical
// flow, surface detection, boundary cache refresh, lateral flow and sleep
// bookkeeping. Terrain edits are handled synchronously when their event is
// processed and only queue follow-up work for later stages. Every method must
// be called from the simulation goroutine except Submit.
package water

import (
	"sync"

	"go.uber.org/zap"

	"voxelwater/internal/fluid"
	"voxelwater/internal/logger"
	"voxelwater/internal/profiling"
	"voxelwater/internal/registry"
	"voxelwater/internal/world"
)

// Event is something the engine must react to.
type Event interface {
	isEvent()
}

// BlockRemoved reports that the block at Pos became air.
type BlockRemoved struct{ Pos world.BlockPos }

// BlockPlaced reports that Block was placed at Pos.
type BlockPlaced struct {
	Pos   world.BlockPos
	Block world.BlockType
}

// WaterUpdateRequested asks for the cell at Pos to be re-checked.
type WaterUpdateRequested struct{ Pos world.BlockPos }

// ChunkLoaded reports a chunk that joined the world.
type ChunkLoaded struct{ Coord world.ChunkCoord }

// ChunkUnloaded reports a chunk that left the world.
type ChunkUnloaded struct{ Coord world.ChunkCoord }

func (BlockRemoved) isEvent()         {}
func (BlockPlaced) isEvent()          {}
func (WaterUpdateRequested) isEvent() {}
func (ChunkLoaded) isEvent()          {}
func (ChunkUnloaded) isEvent()        {}

// Stats are cumulative counters since the engine was created.
type Stats struct {
	Ticks               uint64
	VerticalTransfers   int
	LateralUpdates      int
	CrossChunkTransfers int
	InflowEvents        int
	Displacements       int
	// TransferredVolume is the volume moved by vertical and lateral flow.
	TransferredVolume float64
	// SourceVolume is the volume created by placing water blocks.
	SourceVolume float64
	// OverflowLost is the volume a displacement could not place anywhere.
	OverflowLost float64
	// Dropped is the sum of residues below fluid.MinVolume swept by the store.
	Dropped float64
}

// TickReport counts the work done by one tick.
type TickReport struct {
	Tick            uint64
	Events          int
	Vertical        int
	SurfacesRebuilt int
	BoundaryChanged int
	LateralChunks   int
	LateralCells    int
	LateralUpdates  int
	CrossChunk      int
	Deferred        int
	Sleeping        int
}

// Work reports whether anything moved.
func (r TickReport) Work() bool {
	return r.Events+r.Vertical+r.LateralUpdates+r.CrossChunk > 0
}

// Engine owns the simulation state derived from a WorldMap.
type Engine struct {
	world  WorldMap
	params Params

	ctx      *SimContext
	surfaces map[world.ChunkCoord]*ChunkSurfaces
	boundary *BoundaryCache
	sleep    *SleepManager

	// lateralCarry holds chunks deferred by the lateral budget; they run first
	// on the next tick.
	lateralCarry []world.ChunkCoord

	evMu   sync.Mutex
	events []Event

	tick  uint64
	stats Stats
	log   *zap.Logger
}

// NewEngine creates an engine over w. Zero fields of params take defaults.
func NewEngine(w WorldMap, params Params) *Engine {
	params = params.withDefaults()
	log := logger.Named("water")
	return &Engine{
		world:    w,
		params:   params,
		ctx:      NewSimContext(),
		surfaces: make(map[world.ChunkCoord]*ChunkSurfaces),
		boundary: NewBoundaryCache(params.BoundaryTolerance),
		sleep:    NewSleepManager(params.Sleep, log.Named("sleep")),
		log:      log,
	}
}

// Params returns the effective parameters.
func (e *Engine) Params() Params { return e.params }

// Context exposes the work lists.
func (e *Engine) Context() *SimContext { return e.ctx }

// Boundary exposes the boundary cache.
func (e *Engine) Boundary() *BoundaryCache { return e.boundary }

// Sleep exposes the sleep manager.
func (e *Engine) Sleep() *SleepManager { return e.sleep }

// Stats returns the cumulative counters.
func (e *Engine) Stats() Stats { return e.stats }

// TickCount returns the number of completed ticks.
func (e *Engine) TickCount() uint64 { return e.tick }

// Submit buffers ev for the next tick. It is safe for concurrent use.
func (e *Engine) Submit(ev Event) {
	e.evMu.Lock()
	e.events = append(e.events, ev)
	e.evMu.Unlock()
}

// HandleEvent reacts to ev immediately.
func (e *Engine) HandleEvent(ev Event) {
	switch ev := ev.(type) {
	case BlockRemoved:
		e.onBlockRemoved(ev.Pos)
	case BlockPlaced:
		e.onBlockPlaced(ev.Pos, ev.Block)
	case WaterUpdateRequested:
		e.onUpdateRequested(ev.Pos)
	case ChunkLoaded:
		e.onChunkLoaded(ev.Coord)
	case ChunkUnloaded:
		e.onChunkUnloaded(ev.Coord)
	default:
		e.log.Warn("unknown water event", zap.Any("event", ev))
	}
}

// Tick runs one simulation step.
func (e *Engine) Tick() TickReport {
	defer profiling.Track("water.Tick")()
	e.tick++
	r := TickReport{Tick: e.tick}

	r.Events = e.drainEvents()
	r.Vertical = e.runVertical()
	r.SurfacesRebuilt = e.detectPendingSurfaces()
	r.BoundaryChanged = e.refreshBoundaries()
	e.runLateral(&r)
	e.sleep.EndTick()
	r.Sleeping = e.sleep.Asleep()

	e.stats.Ticks++
	if r.Work() {
		e.log.Debug("tick",
			zap.Uint64("tick", r.Tick),
			zap.Int("events", r.Events),
			zap.Int("vertical", r.Vertical),
			zap.Int("surfaces", r.SurfacesRebuilt),
			zap.Int("boundary_changed", r.BoundaryChanged),
			zap.Int("lateral_chunks", r.LateralChunks),
			zap.Int("lateral_updates", r.LateralUpdates),
			zap.Int("cross_chunk", r.CrossChunk),
			zap.Int("deferred", r.Deferred),
		)
	}
	return r
}

// Idle reports whether no work is queued.
func (e *Engine) Idle() bool {
	e.evMu.Lock()
	pending := len(e.events)
	e.evMu.Unlock()
	return pending == 0 && e.ctx.Vertical.Len() == 0 && e.ctx.Lateral.Len() == 0 &&
		e.ctx.Surface.Len() == 0 && e.ctx.Modified.Len() == 0 && len(e.lateralCarry) == 0
}

func (e *Engine) drainEvents() int {
	e.evMu.Lock()
	events := e.events
	e.events = nil
	e.evMu.Unlock()
	if len(events) == 0 {
		return 0
	}
	defer profiling.Track("water.Events")()
	for _, ev := range events {
		e.HandleEvent(ev)
	}
	return len(events)
}

// Surfaces returns the surfaces of coord as of the current water. A chunk
// still waiting for its rebuild is rebuilt first.
func (e *Engine) Surfaces(coord world.ChunkCoord) (*ChunkSurfaces, bool) {
	if !e.world.ChunkExists(coord) {
		return nil, false
	}
	if e.ctx.Surface.Has(coord) {
		e.ctx.Surface.Remove(coord)
		e.rebuildSurfaces(coord)
	}
	return e.surfacesFor(coord), true
}

func (e *Engine) surfacesFor(coord world.ChunkCoord) *ChunkSurfaces {
	if s, ok := e.surfaces[coord]; ok {
		return s
	}
	s := NewChunkSurfaces()
	if st, ok := e.world.WaterStorage(coord); ok {
		s.Rebuild(st, e.solidAbove(coord))
	}
	e.surfaces[coord] = s
	return s
}

func (e *Engine) detectPendingSurfaces() int {
	defer profiling.Track("water.Surfaces")()
	n := 0
	for _, coord := range e.ctx.Surface.Drain() {
		if e.rebuildSurfaces(coord) {
			n++
		}
	}
	return n
}

func (e *Engine) rebuildSurfaces(coord world.ChunkCoord) bool {
	st, ok := e.world.WaterStorage(coord)
	if !ok {
		return false
	}
	s, ok := e.surfaces[coord]
	if !ok {
		s = NewChunkSurfaces()
		e.surfaces[coord] = s
	}
	s.Rebuild(st, e.solidAbove(coord))
	return true
}

// solidAbove blocks a surface under a solid block, or under water held
// by the chunk above.
func (e *Engine) solidAbove(coord world.ChunkCoord) SolidAboveFunc {
	return func(above fluid.Pos) bool {
		gp := coord.Global(above)
		b, ok := e.world.Block(gp)
		if !ok {
			return false
		}
		if registry.IsSolid(b) {
			return true
		}
		if !world.InChunk(above) {
			return e.volumeAt(gp) > 0
		}
		return false
	}
}

func (e *Engine) refreshBoundaries() int {
	defer profiling.Track("water.Boundary")()
	for _, coord := range e.ctx.Modified.Drain() {
		st, ok := e.world.WaterStorage(coord)
		if !ok {
			continue
		}
		e.boundary.Refresh(coord, st, e.surfacesFor(coord))
	}
	changed := e.boundary.DrainDirty()
	for _, coord := range changed {
		for _, f := range [4]Face{FacePosX, FaceNegX, FacePosZ, FaceNegZ} {
			n := f.Neighbor(coord)
			if e.world.ChunkExists(n) {
				e.wake(n, "neighbor_boundary")
			}
		}
	}
	return len(changed)
}

func (e *Engine) onChunkLoaded(coord world.ChunkCoord) {
	st, ok := e.world.WaterStorage(coord)
	if !ok {
		return
	}
	delete(e.surfaces, coord)
	e.touch(coord)
	e.wake(coord, "loaded")

	// Cells that can fall, including into the chunk below.
	for _, p := range st.Positions() {
		gp := coord.Global(p)
		if e.canFall(gp) {
			e.ctx.Vertical.Push(gp)
		}
	}
	// The bottom layer of the chunk above may now fall into this one.
	up := FacePosY.Neighbor(coord)
	if ust, ok := e.world.WaterStorage(up); ok {
		ust.Each(func(p fluid.Pos, _ fluid.Cell) {
			if p.Y == 0 {
				e.ctx.Vertical.Push(up.Global(p))
			}
		})
		e.ctx.Surface.Add(up)
	}
	// The chunk below may have lost its surfaces under this one.
	if down := FaceNegY.Neighbor(coord); e.world.ChunkExists(down) {
		e.ctx.Surface.Add(down)
		e.ctx.Modified.Add(down)
	}
	for _, f := range [4]Face{FacePosX, FaceNegX, FacePosZ, FaceNegZ} {
		if n := f.Neighbor(coord); e.world.ChunkExists(n) {
			e.wake(n, "neighbor_loaded")
		}
	}
}

func (e *Engine) onChunkUnloaded(coord world.ChunkCoord) {
	delete(e.surfaces, coord)
	e.boundary.Remove(coord)
	e.sleep.Remove(coord)
	e.ctx.forget(coord)
	kept := e.lateralCarry[:0]
	for _, c := range e.lateralCarry {
		if c != coord {
			kept = append(kept, c)
		}
	}
	e.lateralCarry = kept
}

func (e *Engine) onUpdateRequested(p world.BlockPos) {
	if !e.world.ChunkExists(p.Chunk()) {
		return
	}
	e.ctx.Vertical.Push(p)
	e.touch(p.Chunk())
	e.wake(p.Chunk(), "update_requested")
}

// storageAt resolves the storage and local position of a global position.
func (e *Engine) storageAt(p world.BlockPos) (*fluid.Storage, fluid.Pos, bool) {
	st, ok := e.world.WaterStorage(p.Chunk())
	if !ok {
		return nil, fluid.Pos{}, false
	}
	return st, p.Local(), true
}

func (e *Engine) volumeAt(p world.BlockPos) float64 {
	st, local, ok := e.storageAt(p)
	if !ok {
		return 0
	}
	return st.Volume(local)
}

// solidAt reports whether p blocks water. Unloaded positions block.
func (e *Engine) solidAt(p world.BlockPos) bool {
	b, ok := e.world.Block(p)
	return !ok || registry.IsSolid(b)
}

// freeAt returns the volume p can still accept, or 0 when it cannot take water.
func (e *Engine) freeAt(p world.BlockPos) float64 {
	if e.solidAt(p) {
		return 0
	}
	free := fluid.MaxVolume - e.volumeAt(p)
	if free < fluid.MinVolume {
		return 0
	}
	return free
}

// canFall reports whether water at p has room directly below.
func (e *Engine) canFall(p world.BlockPos) bool {
	return e.volumeAt(p) > 0 && e.freeAt(p.Down()) > 0
}

// wet puts the water marker on an air block that now holds water.
func (e *Engine) wet(p world.BlockPos) {
	if b, ok := e.world.Block(p); ok && b == world.BlockTypeAir && e.volumeAt(p) > 0 {
		e.world.SetBlock(p, world.BlockTypeWater)
	}
}

// dry removes the water marker from a block that no longer holds water.
func (e *Engine) dry(p world.BlockPos) {
	if b, ok := e.world.Block(p); ok && b == world.BlockTypeWater && e.volumeAt(p) == 0 {
		e.world.SetBlock(p, world.BlockTypeAir)
	}
}

// drop counts a residue the store refused to keep.
func (e *Engine) drop(p world.BlockPos, amount float64, stage string) {
	if amount <= 0 {
		return
	}
	e.stats.Dropped += amount
	e.log.Debug("residue dropped",
		zap.String("stage", stage),
		zap.Stringer("pos", p),
		zap.Float64("volume", amount),
	)
}

// touch marks coord for broadcast and queues it for every derived stage.
func (e *Engine) touch(coord world.ChunkCoord) {
	if !e.world.ChunkExists(coord) {
		return
	}
	e.world.MarkChunkDirty(coord)
	e.ctx.Surface.Add(coord)
	e.ctx.Modified.Add(coord)
	e.ctx.Lateral.Add(coord)
}

// wake resets the sleep window of coord and queues it for lateral flow.
func (e *Engine) wake(coord world.ChunkCoord, reason string) {
	if !e.world.ChunkExists(coord) {
		return
	}
	e.sleep.Wake(coord, reason)
	e.ctx.Lateral.Add(coord)
}
