package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"voxelwater/internal/broadcast"
	"voxelwater/internal/config"
	"voxelwater/internal/fluid"
	"voxelwater/internal/logger"
	"voxelwater/internal/meshing"
	"voxelwater/internal/persistence"
	"voxelwater/internal/profiling"
	"voxelwater/internal/water"
	"voxelwater/internal/world"
)

// maintenanceEvery is the number of ticks between streaming and eviction passes.
const maintenanceEvery = 20

type server struct {
	cfg    *config.Config
	world  *world.World
	engine *water.Engine

	store *persistence.Store // nil when saving is disabled

	hub     *broadcast.Hub // nil when the viewer endpoint is disabled
	http    *http.Server
	pool    *meshing.WorkerPool
	results chan meshing.MeshResult
	// remesh holds chunks whose mesh job did not fit in the pool queue.
	remesh map[world.ChunkCoord]struct{}

	unsaved  map[world.ChunkCoord]struct{}
	lastSave time.Time

	done chan struct{}
	log  *zap.Logger
}

func newServer(cfg *config.Config) (*server, error) {
	s := &server{
		cfg:      cfg,
		remesh:   make(map[world.ChunkCoord]struct{}),
		unsaved:  make(map[world.ChunkCoord]struct{}),
		lastSave: time.Now(),
		done:     make(chan struct{}),
		log:      logger.Named("server"),
	}

	var gen world.TerrainGenerator
	switch cfg.World.Generator {
	case "flat":
		gen = world.NewFlatGenerator(cfg.World.GroundHeight, cfg.World.SeaLevel)
	default:
		gen = world.NewGenerator(cfg.World.Seed, cfg.World.SeaLevel)
	}
	s.world = world.New(gen)

	if cfg.Persistence.Path != "" {
		store, err := persistence.Open(cfg.Persistence.Path)
		if err != nil {
			return nil, fmt.Errorf("open water store: %w", err)
		}
		s.store = store
		s.world.OnChunkLoad(s.restoreChunk)
		s.world.OnChunkUnload(s.saveChunk)
	}

	s.engine = water.NewEngine(s.world, cfg.Water)

	if cfg.Broadcast.Addr != "" {
		s.hub = broadcast.NewHub(cfg.Broadcast.SendBuffer)
		s.pool = meshing.NewWorkerPool(cfg.Broadcast.MeshWorkers, 256)
		s.results = make(chan meshing.MeshResult, 256)

		mux := http.NewServeMux()
		mux.Handle("/water", s.hub)
		s.http = &http.Server{Addr: cfg.Broadcast.Addr, Handler: mux}
		go func() {
			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("viewer endpoint stopped", zap.Error(err))
			}
		}()
		s.log.Info("viewer endpoint listening", zap.String("addr", cfg.Broadcast.Addr))
	}

	return s, nil
}

// restoreChunk replaces generated water with the saved volumes, if any.
func (s *server) restoreChunk(c *world.Chunk) {
	st, err := s.store.LoadChunk(c.Coord())
	if errors.Is(err, persistence.ErrNotFound) {
		return
	}
	if errors.Is(err, persistence.ErrCorrupt) {
		s.log.Warn("discarding saved water", zap.Stringer("coord", c.Coord()), zap.Error(err))
		if err := s.store.DeleteChunk(c.Coord()); err != nil {
			s.log.Error("delete corrupt save", zap.Stringer("coord", c.Coord()), zap.Error(err))
		}
		return
	}
	if err != nil {
		s.log.Error("load saved water", zap.Stringer("coord", c.Coord()), zap.Error(err))
		return
	}
	c.RestoreWater(st)
}

func (s *server) saveChunk(c *world.Chunk) {
	delete(s.unsaved, c.Coord())
	if err := s.store.SaveChunk(c.Coord(), c.Water); err != nil {
		s.log.Error("save chunk water", zap.Stringer("coord", c.Coord()), zap.Error(err))
	}
}

func (s *server) loadRange() (radius, maxY int) {
	return config.GetChunkLoadRadius(), s.cfg.Simulation.ChunkHeight - 1
}

// run drives the tick loop until ctx is cancelled or the tick limit is reached.
func (s *server) run(ctx context.Context) {
	defer close(s.done)

	radius, maxY := s.loadRange()
	limit := uint64(s.cfg.Simulation.Ticks)

	if limit > 0 {
		// Batch mode: everything loaded up front, ticks run back to back.
		for _, coord := range s.world.LoadAroundSync(0, 0, radius, 0, maxY) {
			s.engine.HandleEvent(water.ChunkLoaded{Coord: coord})
		}
		s.log.Info("batch run", zap.Uint64("ticks", limit), zap.Int("chunks", s.world.Store().Len()))
		for s.engine.TickCount() < limit {
			if ctx.Err() != nil {
				return
			}
			s.step()
		}
		s.logStats()
		return
	}

	streamer := s.world.StartStreaming()
	queued := streamer.RequestAround(0, 0, radius, 0, maxY)
	s.log.Info("streaming chunks", zap.Int("queued", queued), zap.Int("radius", radius))

	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.step()
		if s.engine.TickCount()%maintenanceEvery == 0 {
			s.maintain(streamer)
		}
	}
}

func (s *server) step() {
	profiling.ResetTick()
	start := time.Now()

	for _, coord := range s.world.Update() {
		s.engine.HandleEvent(water.ChunkLoaded{Coord: coord})
	}

	rep := s.engine.Tick()
	s.publish(rep.Tick)

	if s.store != nil && s.cfg.Simulation.SaveInterval > 0 && time.Since(s.lastSave) >= s.cfg.Simulation.SaveInterval {
		s.saveDirty()
	}

	if elapsed := time.Since(start); elapsed > s.cfg.TickInterval() {
		s.log.Warn("tick overran",
			zap.Uint64("tick", rep.Tick),
			zap.Duration("elapsed", elapsed),
			zap.String("top", profiling.TopN(3)),
		)
	}
}

// maintain keeps the loaded area in line with the simulation distance.
func (s *server) maintain(streamer *world.ChunkStreamer) {
	radius, maxY := s.loadRange()
	if queued := streamer.RequestAround(0, 0, radius, 0, maxY); queued > 0 {
		s.log.Debug("chunks requested", zap.Int("queued", queued), zap.Int("pending", streamer.Pending()))
	}
	for _, coord := range s.world.EvictFarChunks(0, 0, config.GetChunkEvictRadius()) {
		s.engine.HandleEvent(water.ChunkUnloaded{Coord: coord})
	}
	s.logStats()
}

// publish meshes changed chunks and sends finished meshes to viewers.
func (s *server) publish(tick uint64) {
	changed := s.world.DrainDirty()
	for _, coord := range changed {
		s.unsaved[coord] = struct{}{}
	}
	if s.pool == nil {
		return
	}

	for _, coord := range changed {
		s.remesh[coord] = struct{}{}
	}
	for coord := range s.remesh {
		surfaces, ok := s.engine.Surfaces(coord)
		if !ok {
			delete(s.remesh, coord)
			continue
		}
		job := meshing.MeshJob{Coord: coord, Surfaces: surfaces.Clone(), Tick: tick, ResultChan: s.results}
		if !s.pool.SubmitJob(job) {
			break
		}
		delete(s.remesh, coord)
	}

	for {
		select {
		case res := <-s.results:
			s.send(res)
		default:
			return
		}
	}
}

func (s *server) send(res meshing.MeshResult) {
	st, ok := s.world.WaterStorage(res.Coord)
	if !ok {
		return
	}
	payload := persistence.EncodeChunkUpdate(persistence.ChunkUpdate{
		Coord: res.Coord,
		Tick:  res.Tick,
		Water: st,
		Mesh:  res.Vertices,
	})
	s.hub.Publish(payload)
}

func (s *server) saveDirty() {
	s.lastSave = time.Now()
	if len(s.unsaved) == 0 {
		return
	}
	chunks := make(map[world.ChunkCoord]*fluid.Storage, len(s.unsaved))
	for coord := range s.unsaved {
		if st, ok := s.world.WaterStorage(coord); ok {
			chunks[coord] = st
		}
	}
	clear(s.unsaved)
	n, err := s.store.SaveAll(chunks)
	if err != nil {
		s.log.Error("periodic save failed", zap.Error(err))
		return
	}
	s.log.Debug("saved water", zap.Int("chunks", n))
}

func (s *server) saveAll() {
	all := s.world.Store().GetAllChunks()
	chunks := make(map[world.ChunkCoord]*fluid.Storage, len(all))
	for _, cc := range all {
		chunks[cc.Coord] = cc.Chunk.Water
	}
	n, err := s.store.SaveAll(chunks)
	if err != nil {
		s.log.Error("final save failed", zap.Error(err))
		return
	}
	s.log.Info("saved water", zap.Int("chunks", n))
}

func (s *server) logStats() {
	st := s.engine.Stats()
	queued, viewers := 0, 0
	if s.pool != nil {
		queued = s.pool.GetQueueLength()
	}
	if s.hub != nil {
		viewers = s.hub.ClientCount()
	}
	s.log.Debug("simulation",
		zap.Uint64("tick", s.engine.TickCount()),
		zap.Int("mesh_queue", queued),
		zap.Int("viewers", viewers),
		zap.Int("chunks", s.world.Store().Len()),
		zap.Int("asleep", s.engine.Sleep().Asleep()),
		zap.Float64("total_water", s.world.TotalWater()),
		zap.Float64("overflow_lost", st.OverflowLost),
		zap.Float64("dropped", st.Dropped),
		zap.String("top", profiling.TopN(5)),
	)
}

// shutdown waits for the tick loop to stop, then saves and releases everything.
func (s *server) shutdown() {
	<-s.done

	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.http.Shutdown(ctx); err != nil {
			s.log.Warn("viewer endpoint shutdown", zap.Error(err))
		}
		cancel()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.pool != nil {
		s.pool.Shutdown()
	}
	s.world.Close()

	if s.store != nil {
		s.saveAll()
		if err := s.store.Close(); err != nil {
			s.log.Error("close water store", zap.Error(err))
		}
	}

	st := s.engine.Stats()
	s.log.Info("shutdown",
		zap.Uint64("ticks", st.Ticks),
		zap.Float64("transferred", st.TransferredVolume),
		zap.Float64("overflow_lost", st.OverflowLost),
	)
	logger.Sync()
}
