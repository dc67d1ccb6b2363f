package scroll

import "github.com/unkn0wn-root/httpoutline/internal/restfile"

// Align returns a y-offset that keeps the selection away from viewport edges.
// It behaves like a lightweight scrolloff: nudge just enough to keep a small buffer.
func Align(sel, off, h, total int) int {
	if h <= 0 || total <= 0 {
		return 0
	}
	if sel < 0 {
		sel = 0
	}
	if sel >= total {
		sel = total - 1
	}
	if h > total {
		h = total
	}
	maxOff := total - h
	if off < 0 {
		off = 0
	}
	if off > maxOff {
		off = maxOff
	}

	if sel >= total-1 {
		return maxOff
	}

	buf := h / 4
	if buf < 1 {
		buf = 1
	}
	top := off + buf
	bot := off + h - 1 - buf
	if sel < top {
		return clamp(sel-buf, 0, maxOff)
	}
	if sel > bot {
		shift := sel - bot
		return clamp(off+shift, 0, maxOff)
	}
	return off
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Reveal returns a y-offset that shows the 1-based inclusive line span of r
// with a small margin. The offset is unchanged when the span is already
// inside the margins. Spans taller than the window are shown from their
// first line.
func Reveal(r restfile.Range, off, h, total int) int {
	if h <= 0 || total <= 0 {
		return 0
	}
	start := clamp(r.Start.Line-1, 0, total-1)
	end := clamp(r.End.Line-1, start, total-1)
	if h > total {
		h = total
	}
	maxOff := total - h
	off = clamp(off, 0, maxOff)

	buf := h / 5
	if buf < 1 {
		buf = 1
	}
	top := off + buf
	bot := off + h - 1 - buf
	if start >= top && end <= bot {
		return off
	}
	if end-start+1 > h-2*buf {
		return clamp(start-buf, 0, maxOff)
	}
	if end > bot {
		return clamp(end-h+1+buf, 0, maxOff)
	}
	return clamp(start-buf, 0, maxOff)
}
