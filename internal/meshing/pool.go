package meshing

import (
	"context"
	"sync"

	"voxelwater/internal/profiling"
	"voxelwater/internal/water"
	"voxelwater/internal/world"
)

// MeshJob represents a meshing job request
type MeshJob struct {
	Coord world.ChunkCoord
	// Surfaces must be a snapshot (ChunkSurfaces.Clone); the engine keeps
	// mutating its own copy.
	Surfaces *water.ChunkSurfaces
	Tick     uint64
	// Result channel - will be sent the result when done
	ResultChan chan MeshResult
}

// MeshResult contains the result of a meshing operation
type MeshResult struct {
	Coord      world.ChunkCoord
	Tick       uint64
	Generation uint64
	Vertices   []float32
}

// WorkerPool manages goroutines for mesh generation
type WorkerPool struct {
	jobQueue chan MeshJob
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWorkerPool creates a new mesh worker pool
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	workers = max(workers, 1)

	pool := &WorkerPool{
		jobQueue: make(chan MeshJob, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	for range workers {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

// SubmitJob submits a mesh generation job to the pool
// Returns true if job was submitted successfully, false if queue is full
func (p *WorkerPool) SubmitJob(job MeshJob) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false // Queue is full
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			stop := profiling.Track("meshing.Water")
			result := MeshResult{
				Coord:    job.Coord,
				Tick:     job.Tick,
				Vertices: BuildWaterSurfaceMesh(job.Coord, job.Surfaces),
			}
			if job.Surfaces != nil {
				result.Generation = job.Surfaces.Generation
			}
			stop()

			select {
			case job.ResultChan <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// Shutdown stops the workers and waits for them. Queued jobs are dropped.
func (p *WorkerPool) Shutdown() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}

// GetQueueLength returns the current number of jobs in the queue
func (p *WorkerPool) GetQueueLength() int {
	return len(p.jobQueue)
}
