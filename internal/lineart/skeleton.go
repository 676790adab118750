package lineart

import "image"

// Skeletonize thins every foreground region of mask to a one-pixel-wide
// centerline using Guo-Hall thinning. Connectivity is preserved, so
// two-pixel diagonals and 2x2 blobs keep at least one pixel; the result
// has the same size as mask and values in {0, 255}.
func Skeletonize(mask *image.Gray) *image.Gray {
	mask = zeroOrigin(mask)
	w, h := mask.Rect.Dx(), mask.Rect.Dy()

	// One pixel of padding keeps the neighbourhood lookups branch-free.
	pw := w + 2
	grid := make([]uint8, pw*(h+2))
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x, v := range row {
			if v != 0 {
				grid[(y+1)*pw+x+1] = 1
			}
		}
	}

	var doomed []int
	for {
		changed := false
		for pass := 0; pass < 2; pass++ {
			doomed = doomed[:0]
			for y := 1; y <= h; y++ {
				for x := 1; x <= w; x++ {
					i := y*pw + x
					if grid[i] == 0 {
						continue
					}
					if removable(grid, i, pw, pass) {
						doomed = append(doomed, i)
					}
				}
			}
			for _, i := range doomed {
				grid[i] = 0
			}
			changed = changed || len(doomed) > 0
		}
		if !changed {
			break
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if grid[(y+1)*pw+x+1] != 0 {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// removable applies the Guo-Hall deletion test for one sub-iteration.
func removable(grid []uint8, i, pw, pass int) bool {
	// x1..x8 counterclockwise from east.
	x := [8]uint8{
		grid[i+1],
		grid[i-pw+1],
		grid[i-pw],
		grid[i-pw-1],
		grid[i-1],
		grid[i+pw-1],
		grid[i+pw],
		grid[i+pw+1],
	}
	var crossings, n1, n2 int
	for k := 0; k < 4; k++ {
		odd, even, next := x[2*k], x[2*k+1], x[(2*k+2)%8]
		if odd == 0 && (even|next) != 0 {
			crossings++
		}
		n1 += int(odd | even)
		n2 += int(even | next)
	}
	if crossings != 1 {
		return false
	}
	if n := min(n1, n2); n < 2 || n > 3 {
		return false
	}
	if pass == 0 {
		return (x[1]|x[2]|(1-x[7]))&x[0] == 0
	}
	return (x[5]|x[6]|(1-x[3]))&x[4] == 0
}
