package usecase

import (
	"image"

	"helioscope/internal/feature/segmentation/domain/entity"
)

// neighbours4 は4近傍の座標オフセットです。
var neighbours4 = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// labelComponents は確率マップを閾値処理し、4連結成分ごとにマスクを生成します。
// minPixels未満の成分は破棄します。マスクIDは行優先で最初に現れた画素順に1から振られます。
func labelComponents(p *entity.ProbabilityMap, threshold float32, minPixels int) (masks []entity.RooftopMask, above, discarded int) {
	w, h := p.Width, p.Height
	visited := make([]bool, w*h)
	queue := make([]int, 0, 256)

	for start := range p.Values {
		if visited[start] || p.Values[start] < threshold {
			continue
		}

		// 幅優先探索で成分を収集
		visited[start] = true
		queue = append(queue[:0], start)
		pixels := make([]entity.Pixel, 0, 64)
		bounds := image.Rectangle{}
		for head := 0; head < len(queue); head++ {
			idx := queue[head]
			x, y := idx%w, idx/w
			pixels = append(pixels, entity.Pixel{X: x, Y: y})
			bounds = bounds.Union(image.Rect(x, y, x+1, y+1))

			for _, d := range neighbours4 {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				n := ny*w + nx
				if visited[n] || p.Values[n] < threshold {
					continue
				}
				visited[n] = true
				queue = append(queue, n)
			}
		}

		above += len(pixels)
		if len(pixels) < minPixels {
			discarded++
			continue
		}
		masks = append(masks, entity.RooftopMask{
			ID:     len(masks) + 1,
			Pixels: pixels,
			Bounds: bounds,
		})
	}
	return masks, above, discarded
}
