package scanner

import (
	"fmt"
	"image"
)

// selectSlot moves the game cursor to the current slot. A scroll command
// is issued only when the target row is not visible; otherwise the
// in-window cell is clicked directly. Returns exhausted=true when a
// scroll revealed no new rows, meaning the bottom of the list.
func (c *Controller) selectSlot() (exhausted bool, err error) {
	grid := c.profile.Grid
	row := c.sess.row(grid.Cols)
	col := c.sess.col(grid.Cols)
	visRow := row - c.sess.topRow

	if visRow >= grid.VisibleRows {
		rows := visRow - grid.VisibleRows + 1
		moved, err := c.scrollRows(rows)
		if err != nil {
			return false, err
		}
		if !moved {
			return true, nil
		}
		c.sess.topRow += rows
		visRow = row - c.sess.topRow
	}

	if err := c.input.Click(c.profile.CellCenter(visRow, col)); err != nil {
		return false, fmt.Errorf("select slot %d: %w", c.sess.index, err)
	}
	return false, nil
}

// scrollRows scrolls the grid down by whole rows and reports whether the
// visible grid actually changed. An unchanged grid after a scroll command
// means no rows are left to reveal.
func (c *Controller) scrollRows(rows int) (moved bool, err error) {
	region := c.gridRect()
	before, err := c.captureRegion(region)
	if err != nil {
		return false, err
	}
	if err := c.input.Scroll(rows * c.profile.Grid.ScrollStep); err != nil {
		return false, fmt.Errorf("scroll %d rows: %w", rows, err)
	}
	after, err := c.captureRegion(region)
	if err != nil {
		return false, err
	}
	return meanAbsDiff(before.Image, after.Image) > c.cfg.PixelDiffLimit, nil
}

// gridRect covers the visible inventory grid.
func (c *Controller) gridRect() image.Rectangle {
	g := c.profile.Grid
	return image.Rect(
		g.Origin.X-g.StrideX/2,
		g.Origin.Y-g.StrideY/2,
		g.Origin.X+(g.Cols-1)*g.StrideX+g.StrideX/2,
		g.Origin.Y+(g.VisibleRows-1)*g.StrideY+g.StrideY/2,
	)
}
