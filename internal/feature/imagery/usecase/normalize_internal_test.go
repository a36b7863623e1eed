package usecase

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 半透明のRGBA画像もNRGBA画像と同じ色に正規化されることを検証します。
func TestNormalizeRGB_RGBAMatchesNRGBA(t *testing.T) {
	pixels := []color.NRGBA{
		{R: 200, G: 100, B: 50, A: 255},
		{R: 200, G: 100, B: 50, A: 128},
		{R: 240, G: 240, B: 240, A: 64},
		{R: 10, G: 20, B: 30, A: 0},
	}
	nrgba := image.NewNRGBA(image.Rect(0, 0, len(pixels), 1))
	rgba := image.NewRGBA(image.Rect(0, 0, len(pixels), 1))
	for x, c := range pixels {
		nrgba.SetNRGBA(x, 0, c)
		rgba.Set(x, 0, c) // アルファ乗算済みで格納される
	}

	want := normalizeRGB(nrgba)
	got := normalizeRGB(rgba)

	require.Len(t, got, len(want))
	for i := range want {
		// 8bitで乗算済みにした際の丸め誤差のみ許容する
		assert.InDelta(t, want[i], got[i], 2, "channel %d", i)
	}
	assert.Equal(t, []uint8{200, 100, 50}, got[0:3])
	assert.InDelta(t, 200, got[3], 2)
}
