package water

import (
	"go.uber.org/zap"

	"voxelwater/internal/fluid"
	"voxelwater/internal/profiling"
	"voxelwater/internal/registry"
	"voxelwater/internal/world"
)

// RemoveBlock clears the block at p and lets the surrounding water react.
func (e *Engine) RemoveBlock(p world.BlockPos) bool {
	if !e.world.ChunkExists(p.Chunk()) {
		return false
	}
	e.onBlockRemoved(p)
	return true
}

// PlaceBlock puts b at p and displaces any water there.
func (e *Engine) PlaceBlock(p world.BlockPos, b world.BlockType) bool {
	if !e.world.ChunkExists(p.Chunk()) {
		return false
	}
	e.onBlockPlaced(p, b)
	return true
}

type donor struct {
	pos    world.BlockPos
	st     *fluid.Storage
	local  fluid.Pos
	volume float64
	give   float64
}

// onBlockRemoved equalizes the lateral neighbors of p into the new gap at once.
func (e *Engine) onBlockRemoved(p world.BlockPos) {
	defer profiling.Track("water.BlockRemoved")()
	st, local, ok := e.storageAt(p)
	if !ok {
		return
	}
	if b, _ := e.world.Block(p); b != world.BlockTypeAir && b != world.BlockTypeWater {
		e.world.RemoveBlock(p)
	}
	if up := p.Up(); e.volumeAt(up) > 0 {
		e.ctx.Vertical.Push(up)
	}

	var donors []donor
	total := st.Volume(local)
	for _, n := range p.Lateral() {
		if e.solidAt(n) {
			continue
		}
		nst, nl, ok := e.storageAt(n)
		if !ok {
			continue
		}
		v := nst.Volume(nl)
		if v == 0 {
			continue
		}
		donors = append(donors, donor{pos: n, st: nst, local: nl, volume: v})
		total += v
	}

	if len(donors) > 0 {
		target := total / float64(len(donors)+1)
		sum := 0.0
		for i := range donors {
			if donors[i].volume > target {
				donors[i].give = donors[i].volume - target
				sum += donors[i].give
			}
		}
		if capacity := fluid.MaxVolume - st.Volume(local); sum > capacity {
			scale := capacity / sum
			for i := range donors {
				donors[i].give *= scale
			}
		}

		got := 0.0
		for _, d := range donors {
			if d.give <= 0 {
				continue
			}
			got += d.st.RemoveVolume(d.local, d.give)
			e.dry(d.pos)
		}
		if got > 0 {
			e.drop(p, st.AddVolume(local, got), "inflow")
			e.wet(p)
			e.stats.InflowEvents++
		}
		for _, d := range donors {
			e.ctx.Vertical.Push(d.pos)
			e.touch(d.pos.Chunk())
			e.wake(d.pos.Chunk(), "block_removed")
		}
	}

	e.ctx.Vertical.Push(p)
	e.touchAround(p, "block_removed")
}

// onBlockPlaced handles a placement at p. Water blocks fill the cell, blocks
// that let water through leave it alone, and solid blocks push the water out.
func (e *Engine) onBlockPlaced(p world.BlockPos, b world.BlockType) {
	defer profiling.Track("water.BlockPlaced")()
	st, local, ok := e.storageAt(p)
	if !ok {
		return
	}

	switch {
	case b == world.BlockTypeWater:
		before := st.Volume(local)
		st.Set(local, fluid.MaxVolume)
		e.stats.SourceVolume += fluid.MaxVolume - before
		e.world.SetBlock(p, world.BlockTypeWater)
		e.ctx.Vertical.Push(p)
		e.touchAround(p, "water_placed")
		return
	case !registry.IsSolid(b):
		e.world.SetBlock(p, b)
		e.touchAround(p, "block_placed")
		return
	}

	vol := st.Remove(local)
	e.world.SetBlock(p, b)
	if vol > 0 {
		e.displace(p, vol)
	}
	if up := p.Up(); e.volumeAt(up) > 0 {
		e.ctx.Vertical.Push(up)
	}
	e.touchAround(p, "block_placed")
}

// displace places vol of water pushed out of p: straight up, then into the
// lateral neighbors by free capacity, then forced up the column. What is
// left after that is lost.
func (e *Engine) displace(p world.BlockPos, vol float64) {
	e.stats.Displacements++
	remaining := vol

	up := p.Up()
	if e.freeAt(up) > 0 {
		remaining = e.put(up, remaining)
	}

	if remaining > 0 {
		var free [4]float64
		totalFree := 0.0
		lateral := p.Lateral()
		for i, n := range lateral {
			free[i] = e.freeAt(n)
			totalFree += free[i]
		}
		if totalFree > 0 {
			share := min(remaining, totalFree)
			remaining -= share
			for i, n := range lateral {
				if free[i] == 0 {
					continue
				}
				remaining += e.put(n, share*free[i]/totalFree)
			}
		}
	}

	// Pressure: climb the column above p, passing over solid blocks.
	for i := 1; i <= e.params.MaxForcedRise && remaining > 0; i++ {
		q := p.Add(0, i, 0)
		if _, ok := e.world.Block(q); !ok {
			break
		}
		if e.freeAt(q) == 0 {
			continue
		}
		remaining = e.put(q, remaining)
	}

	if remaining > 0 {
		e.stats.OverflowLost += remaining
		e.log.Warn("displaced water lost",
			zap.Stringer("pos", p),
			zap.Float64("volume", vol),
			zap.Float64("lost", remaining),
		)
	}
}

// put adds amount at q and returns what did not fit.
func (e *Engine) put(q world.BlockPos, amount float64) float64 {
	st, local, ok := e.storageAt(q)
	if !ok {
		return amount
	}
	over := st.AddVolume(local, amount)
	if over < amount {
		e.wet(q)
		e.ctx.Vertical.Push(q)
		e.touch(q.Chunk())
		e.wake(q.Chunk(), "displaced")
	}
	return over
}

// touchAround queues the chunks of p and its six neighbors and wakes them.
func (e *Engine) touchAround(p world.BlockPos, reason string) {
	seen := make(map[world.ChunkCoord]struct{}, 3)
	for _, q := range [...]world.BlockPos{p, p.Up(), p.Down(), p.Add(1, 0, 0), p.Add(-1, 0, 0), p.Add(0, 0, 1), p.Add(0, 0, -1)} {
		c := q.Chunk()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		e.touch(c)
		e.wake(c, reason)
	}
}
