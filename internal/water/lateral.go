package water

import (
	"math"
	"sort"

	"voxelwater/internal/fluid"
	"voxelwater/internal/profiling"
	"voxelwater/internal/world"
)

// crossFlow is a lateral transfer whose destination is in another chunk.
type crossFlow struct {
	from, to world.BlockPos
	amount   float64
}

// flowAmount applies the shallow-water step to a height difference.
func (e *Engine) flowAmount(diff, sourceVol, capacity float64) float64 {
	flow := diff * e.params.FlowRate * (1 - e.params.FlowDamping)
	return math.Min(flow, math.Min(sourceVol*e.params.MaxFlowFraction, capacity))
}

// residueLimit is the volume below which a cell cannot produce a flow of
// MinVolume even toward an empty neighbor.
func (e *Engine) residueLimit() float64 {
	rate := math.Min(e.params.MaxFlowFraction, fluid.FullWaterHeight*e.params.FlowRate*(1-e.params.FlowDamping))
	return fluid.MinVolume / rate
}

// runLateral processes pending chunks until the cell budget is used up.
func (e *Engine) runLateral(r *TickReport) {
	defer profiling.Track("water.Lateral")()

	pending := e.lateralCarry
	e.lateralCarry = nil
	seen := make(map[world.ChunkCoord]struct{}, len(pending))
	for _, c := range pending {
		seen[c] = struct{}{}
	}
	for _, c := range e.ctx.Lateral.Drain() {
		if _, ok := seen[c]; !ok {
			pending = append(pending, c)
		}
	}

	var cross []crossFlow
	incomingCross := make(map[world.BlockPos]float64)
	used := 0
	for i, coord := range pending {
		st, ok := e.world.WaterStorage(coord)
		if !ok {
			continue
		}
		if e.sleep.IsAsleep(coord) {
			continue
		}
		surf := e.surfacesFor(coord)
		if used > 0 && used+surf.Len() > e.params.LateralBudget {
			e.lateralCarry = append(e.lateralCarry, pending[i:]...)
			r.Deferred = len(pending) - i
			break
		}
		used += surf.Len()
		r.LateralChunks++
		r.LateralCells += surf.Len()

		updates, moved, flows := e.lateralChunk(coord, st, surf, incomingCross)
		cross = append(cross, flows...)
		e.sleep.Record(coord, moved, updates)
		if updates > 0 {
			e.touch(coord)
		}
		r.LateralUpdates += updates
	}
	r.CrossChunk = e.applyCrossFlows(cross)
}

// lateralChunk records every intra-chunk flow of coord into an accumulator,
// applies it, and returns the flows leaving the chunk.
func (e *Engine) lateralChunk(coord world.ChunkCoord, st *fluid.Storage, surf *ChunkSurfaces, incomingCross map[world.BlockPos]float64) (updates int, moved float64, cross []crossFlow) {
	delta := make(map[fluid.Pos]float64)
	incoming := make(map[fluid.Pos]float64)

	for _, sc := range surf.Cells() {
		p := sc.Pos
		vol := st.Volume(p)
		if vol < fluid.MinVolume {
			continue
		}
		gp := coord.Global(p)
		height := float64(gp.Y) + vol*fluid.FullWaterHeight

		// A residue too small to flow moves whole to the lowest neighbor it
		// can drop from, so it cannot cap the column underneath forever.
		emitted := false
		residue := vol <= e.residueLimit()
		var drop world.BlockPos
		dropHeight := math.Inf(1)

		for i, gn := range gp.Lateral() {
			d := lateralOffsets[i]
			n := p.Add(d[0], 0, d[1])
			if e.solidAt(gn) {
				continue
			}
			local := world.InChunk(n)
			var nvol, capacity float64
			if local {
				nvol = st.Volume(n)
				capacity = fluid.MaxVolume - nvol - incoming[n]
			} else {
				v, ok := e.remoteVolume(n, gn)
				if !ok {
					continue
				}
				nvol = v
				capacity = fluid.MaxVolume - nvol - incomingCross[gn]
			}
			nheight := float64(gn.Y) + nvol*fluid.FullWaterHeight
			diff := height - nheight
			if residue && diff > 0 && nheight < dropHeight && capacity >= vol && e.freeAt(gn.Down()) > 0 {
				drop, dropHeight = gn, nheight
			}
			if diff <= e.params.MinHeightDiff {
				continue
			}
			flow := e.flowAmount(diff, vol, capacity)
			if flow < fluid.MinVolume {
				continue
			}
			emitted = true
			if local {
				delta[p] -= flow
				delta[n] += flow
				incoming[n] += flow
				continue
			}
			incomingCross[gn] += flow
			cross = append(cross, crossFlow{from: gp, to: gn, amount: flow})
		}

		if emitted || math.IsInf(dropHeight, 1) {
			continue
		}
		if n := drop.Local(); drop.Chunk() == coord {
			delta[p] -= vol
			delta[n] += vol
			incoming[n] += vol
		} else {
			incomingCross[drop] += vol
			cross = append(cross, crossFlow{from: gp, to: drop, amount: vol})
		}
	}

	positions := make([]fluid.Pos, 0, len(delta))
	for p := range delta {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Less(positions[j]) })

	// Debits first so a cell that both gives and receives never overflows.
	for _, p := range positions {
		d := delta[p]
		if d >= 0 {
			continue
		}
		gp := coord.Global(p)
		removed := st.RemoveVolume(p, -d)
		e.drop(gp, removed+d, "lateral")
		e.dry(gp)
		if up := gp.Up(); e.volumeAt(up) > 0 {
			e.ctx.Vertical.Push(up)
		}
		updates++
		moved += removed
	}
	for _, p := range positions {
		d := delta[p]
		if d <= 0 {
			continue
		}
		gp := coord.Global(p)
		e.drop(gp, st.AddVolume(p, d), "lateral")
		e.wet(gp)
		if e.canFall(gp) {
			e.ctx.Vertical.Push(gp)
		}
		updates++
		moved += d
	}
	e.stats.LateralUpdates += updates
	e.stats.TransferredVolume += moved / 2
	return updates, moved, cross
}

// remoteVolume reads the water at gn, which lies in the chunk next to the
// one being simulated. n is gn relative to that chunk. The boundary cache is
// used when it has an entry; otherwise the neighbor storage is read.
func (e *Engine) remoteVolume(n fluid.Pos, gn world.BlockPos) (float64, bool) {
	exit, ok := exitFace(n)
	if !ok {
		return 0, false
	}
	ncoord := gn.Chunk()
	if !e.world.ChunkExists(ncoord) {
		return 0, false
	}
	face := exit.Opposite()
	cell, found, cached := e.boundary.Lookup(ncoord, face, FaceCoordOf(face, gn.Local()))
	if cached {
		if found {
			return cell.Volume, true
		}
		return 0, true
	}
	return e.volumeAt(gn), true
}

// applyCrossFlows debits each source and then credits its destination.
// Whatever the destination cannot hold goes back to the source.
func (e *Engine) applyCrossFlows(flows []crossFlow) int {
	applied := 0
	for _, f := range flows {
		src, sl, ok := e.storageAt(f.from)
		if !ok {
			continue
		}
		dst, dl, ok := e.storageAt(f.to)
		if !ok {
			continue
		}
		removed := src.RemoveVolume(sl, f.amount)
		if removed == 0 {
			continue
		}
		if over := dst.AddVolume(dl, removed); over > 0 {
			e.drop(f.from, src.AddVolume(sl, over), "cross_chunk")
			removed -= over
		}
		if removed <= 0 {
			continue
		}
		e.dry(f.from)
		e.wet(f.to)
		if up := f.from.Up(); e.volumeAt(up) > 0 {
			e.ctx.Vertical.Push(up)
		}
		if e.canFall(f.to) {
			e.ctx.Vertical.Push(f.to)
		}

		from, to := f.from.Chunk(), f.to.Chunk()
		e.sleep.Record(from, removed, 1)
		e.touch(from)
		e.touch(to)
		e.wake(to, "inflow")
		e.sleep.Record(to, removed, 1)

		applied++
		e.stats.CrossChunkTransfers++
		e.stats.TransferredVolume += removed
	}
	return applied
}
