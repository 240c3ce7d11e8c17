// Command desktop runs a Hack program in a window: the screen memory map is
// drawn every frame and host key presses reach the keyboard register.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"hackchain/pkg/cpu"
	"hackchain/pkg/diag"
	"hackchain/pkg/hack"
	"hackchain/pkg/peripherals"
	"hackchain/pkg/pipeline"
)

const statusHeight = 16

// keyCodes maps host keys without a printable character to Hack codes.
var keyCodes = map[ebiten.Key]uint16{
	ebiten.KeyEnter:     peripherals.KeyNewline,
	ebiten.KeyBackspace: peripherals.KeyBackspace,
	ebiten.KeyLeft:      peripherals.KeyLeft,
	ebiten.KeyUp:        peripherals.KeyUp,
	ebiten.KeyRight:     peripherals.KeyRight,
	ebiten.KeyDown:      peripherals.KeyDown,
	ebiten.KeyHome:      peripherals.KeyHome,
	ebiten.KeyEnd:       peripherals.KeyEnd,
	ebiten.KeyPageUp:    peripherals.KeyPageUp,
	ebiten.KeyPageDown:  peripherals.KeyPageDown,
	ebiten.KeyInsert:    peripherals.KeyInsert,
	ebiten.KeyDelete:    peripherals.KeyDelete,
	ebiten.KeyEscape:    peripherals.KeyEscape,
}

type Game struct {
	vm       *cpu.CPU
	keyboard *peripherals.Keyboard

	cyclesPerFrame uint64
	snapshotPath   string
	status         string

	screenImg *ebiten.Image // reused 512×256 canvas
	face      text.Face
}

func newGame(c *cpu.CPU, cyclesPerFrame uint64, snapshotPath string) *Game {
	return &Game{
		vm:             c,
		keyboard:       peripherals.NewKeyboard(c, peripherals.DefaultHold),
		cyclesPerFrame: cyclesPerFrame,
		snapshotPath:   snapshotPath,
		face:           text.NewGoXFace(basicfont.Face7x13),
	}
}

// heldKey returns the Hack code of a held non-printing key, or 0.
func heldKey() uint16 {
	for k, code := range keyCodes {
		if ebiten.IsKeyPressed(k) {
			return code
		}
	}
	return 0
}

func (g *Game) Update() error {
	for _, r := range ebiten.AppendInputChars(nil) {
		if r >= 32 && r < 127 {
			g.keyboard.Push(uint16(r))
		}
	}
	g.keyboard.SetPressed(heldKey())
	g.keyboard.Step()

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.status = g.hibernate()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		g.status = g.restore()
	}

	if !g.vm.Halted {
		g.vm.Run(g.cyclesPerFrame)
	}
	return nil
}

func (g *Game) hibernate() string {
	if err := g.vm.HibernateToFile(g.snapshotPath); err != nil {
		return fmt.Sprintf("hibernate failed: %v", err)
	}
	return "saved " + g.snapshotPath
}

func (g *Game) restore() string {
	if err := g.vm.RestoreFromFile(g.snapshotPath); err != nil {
		return fmt.Sprintf("restore failed: %v", err)
	}
	return "restored " + g.snapshotPath
}

// statusLine summarises the machine for the bar under the screen.
func (g *Game) statusLine() string {
	state := "running"
	if g.vm.Halted {
		state = "halted"
	}
	line := fmt.Sprintf("%s  PC=%d  cycles=%d  KBD=%d", state, g.vm.PC, g.vm.Cycles, g.vm.RAM[hack.KeyboardAddr])
	if g.status != "" {
		line += "  " + g.status
	}
	return line
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.screenImg == nil {
		g.screenImg = ebiten.NewImage(hack.ScreenWidth, hack.ScreenHeight)
	}
	g.screenImg.WritePixels(g.vm.GetFramebufferRGBA())
	screen.DrawImage(g.screenImg, nil)

	op := &text.DrawOptions{}
	op.GeoM.Translate(4, hack.ScreenHeight+2)
	op.ColorScale.ScaleWithColor(color.RGBA{0xC0, 0xC0, 0xC0, 0xFF})
	text.Draw(screen, g.statusLine(), g.face, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return hack.ScreenWidth, hack.ScreenHeight + statusHeight
}

// loadProgram builds path through every stage up to machine code, or
// restores a snapshot when resume is set.
func loadProgram(path, resume string) (*cpu.CPU, error) {
	c := cpu.NewCPU()
	if resume != "" {
		return c, c.RestoreFromFile(resume)
	}
	res, err := pipeline.Build(path, pipeline.Options{Link: true})
	if err != nil {
		return nil, err
	}
	if res.Words == nil {
		return nil, fmt.Errorf("%s does not form a single program", path)
	}
	return c, c.Load(res.Words)
}

func main() {
	cyclesPerFrame := flag.Uint64("cycles-per-frame", 200_000, "instructions executed per frame")
	snapshot := flag.String("snapshot", "hack_snapshot.zip", "file F5 hibernates to and F9 restores from")
	resume := flag.String("resume", "", "start from a snapshot instead of a program")
	flag.Parse()

	if flag.NArg() != 1 && *resume == "" {
		fmt.Fprintln(os.Stderr, "usage: desktop [flags] <program.jack|dir|.vm|.asm|.hack>")
		os.Exit(2)
	}

	vm, err := loadProgram(flag.Arg(0), *resume)
	if err != nil {
		diag.Report(os.Stderr, err)
		os.Exit(1)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(hack.ScreenWidth*2, (hack.ScreenHeight+statusHeight)*2)
	ebiten.SetWindowTitle("Hack Desktop")

	game := newGame(vm, *cyclesPerFrame, *snapshot)
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
