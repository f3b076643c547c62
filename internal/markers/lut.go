package markers

import "github.com/slidemarks/viewer/internal/gpu"

// buildLUT packs the style of every category of idx into a 4096x1 RGBA
// table. Alpha carries the shape selector plus one, or zero when hidden or
// unstyled.
func buildLUT(idx *CategoryIndex, styles StyleSource) []byte {
	pix := make([]byte, 4*gpu.LUTSize)
	if idx == nil || styles == nil {
		return pix
	}
	showAll := styles.ShowAll()
	for i := 0; i < idx.Len(); i++ {
		e, ok := styles.Style(idx.StyleKey(i))
		if !ok {
			continue
		}
		texel := pix[4*i : 4*i+4]
		texel[0], texel[1], texel[2] = e.Color.R, e.Color.G, e.Color.B
		if showAll || e.Visible {
			texel[3] = byte(clampShape(e.Shape) + 1)
		}
	}
	return pix
}

func clampShape(s int) int {
	if s < 0 {
		return 0
	}
	if s > gpu.MaxShape {
		return gpu.MaxShape
	}
	return s
}
