package position

import (
	"dex_trader/internal/core"
)

// ApplyUpdate folds one streamed position update into positions and returns the new list.
// positions is never mutated.
//
// Without a market filter, positions of markets outside active are ignored.
// An existing position with a non-positive quantity is closed, a positive one
// replaced in place. A new position with a positive quantity is prepended.
func ApplyUpdate(positions []core.Position, update core.PositionUpdate, filterMarketID string, active map[string]bool) []core.Position {
	pos := update.Position
	if pos == nil {
		return positions
	}
	if filterMarketID == "" && !active[pos.MarketID] {
		return positions
	}

	idx := -1
	for i := range positions {
		if positions[i].MarketID == pos.MarketID {
			idx = i
			break
		}
	}

	switch {
	case idx >= 0 && !pos.Quantity.IsPositive():
		out := make([]core.Position, 0, len(positions)-1)
		for _, p := range positions {
			if p.MarketID != pos.MarketID {
				out = append(out, p)
			}
		}
		return out
	case idx >= 0:
		out := make([]core.Position, len(positions))
		for i, p := range positions {
			if p.MarketID == pos.MarketID {
				out[i] = *pos
			} else {
				out[i] = p
			}
		}
		return out
	case pos.Quantity.IsPositive():
		out := make([]core.Position, 0, len(positions)+1)
		out = append(out, *pos)
		return append(out, positions...)
	}
	return positions
}
