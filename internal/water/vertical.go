package water

import (
	"math"

	"voxelwater/internal/fluid"
	"voxelwater/internal/profiling"
)

// runVertical moves water straight down for up to VerticalBudget queued
// positions and returns the number of transfers.
func (e *Engine) runVertical() int {
	defer profiling.Track("water.Vertical")()
	transfers := 0
	for i := 0; i < e.params.VerticalBudget; i++ {
		p, ok := e.ctx.Vertical.Pop()
		if !ok {
			break
		}
		st, local, ok := e.storageAt(p)
		if !ok {
			continue
		}
		vol := st.Volume(local)
		if vol == 0 {
			continue
		}
		below := p.Down()
		if e.solidAt(below) {
			continue
		}
		bst, blocal, ok := e.storageAt(below)
		if !ok {
			continue
		}
		space := fluid.MaxVolume - bst.Volume(blocal)
		if space < fluid.MinVolume {
			continue
		}

		removed := st.RemoveVolume(local, math.Min(vol, space))
		if over := bst.AddVolume(blocal, removed); over > 0 {
			// The sweep took a residue that does not fit below.
			e.drop(p, st.AddVolume(local, over), "vertical")
			removed -= over
		}
		e.dry(p)
		e.wet(below)

		e.ctx.Vertical.Push(below)
		if st.Has(local) {
			e.ctx.Vertical.Push(p)
		}
		// Water resting on the source can follow it down.
		if up := p.Up(); e.volumeAt(up) > 0 {
			e.ctx.Vertical.Push(up)
		}

		e.touch(p.Chunk())
		e.wake(p.Chunk(), "vertical")
		if bc := below.Chunk(); bc != p.Chunk() {
			e.touch(bc)
			e.wake(bc, "vertical")
		}
		transfers++
		e.stats.VerticalTransfers++
		e.stats.TransferredVolume += removed
	}
	return transfers
}
