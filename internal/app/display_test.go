package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/gesture_arm/internal/bridge"
)

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) {
				n++
			}
		}
	}
	return n
}

func TestRenderDecision(t *testing.T) {
	waiting := renderDecision(bridge.Decision{}, false)
	require.Equal(t, displayWidth, waiting.Bounds().Dx())
	require.Equal(t, displayHeight, waiting.Bounds().Dy())
	require.Positive(t, litPixels(waiting))

	ok := renderDecision(bridge.Decision{Pitch: 45, Command: "L", Sent: true}, true)
	failed := renderDecision(bridge.Decision{Pitch: 45, Command: "L"}, true)
	require.Greater(t, litPixels(failed), litPixels(ok))
}

func TestRenderSplash(t *testing.T) {
	require.Positive(t, litPixels(renderSplash()))
}
