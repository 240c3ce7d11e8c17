package cpu

import (
	"image"
	"image/png"
	"os"

	"hackchain/pkg/grid"
	"hackchain/pkg/hack"
)

const wordsPerRow = hack.ScreenWidth / 16

// PixelSet reports whether screen pixel (x, y) is black. Each row is 32
// words; bit 0 of a word is its leftmost pixel.
func (c *CPU) PixelSet(x, y int) bool {
	if x < 0 || y < 0 || x >= hack.ScreenWidth || y >= hack.ScreenHeight {
		return false
	}
	word := c.RAM[int(hack.ScreenBase)+grid.Index(x/16, y, wordsPerRow)]
	return word&(1<<(x%16)) != 0
}

// GetFramebufferRGBA decodes the screen memory map into a 512×256 RGBA8888
// byte slice: set bits are black, clear bits white.
func (c *CPU) GetFramebufferRGBA() []byte {
	pixels := make([]byte, hack.ScreenWidth*hack.ScreenHeight*4)
	for w := 0; w < hack.ScreenWords; w++ {
		word := c.RAM[int(hack.ScreenBase)+w]
		col, y := grid.GetGridCoords(w, wordsPerRow)
		for bit := 0; bit < 16; bit++ {
			var v byte = 0xFF
			if word&(1<<bit) != 0 {
				v = 0x00
			}
			i := grid.Index(col*16+bit, y, hack.ScreenWidth) * 4
			pixels[i+0] = v
			pixels[i+1] = v
			pixels[i+2] = v
			pixels[i+3] = 0xFF
		}
	}
	return pixels
}

// GetFramebufferImage returns the screen as an *image.RGBA.
func (c *CPU) GetFramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    c.GetFramebufferRGBA(),
		Stride: hack.ScreenWidth * 4,
		Rect:   image.Rect(0, 0, hack.ScreenWidth, hack.ScreenHeight),
	}
}

// SaveScreenshot encodes the screen as a PNG and writes it to filename.
func (c *CPU) SaveScreenshot(filename string) error {
	img := c.GetFramebufferImage()
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
