package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"bleurgh/pkg/compiler"
	"bleurgh/pkg/config"
	"bleurgh/pkg/grid"
	"bleurgh/pkg/utils"
)

const (
	screenWidth  = 640
	screenHeight = 480

	lineHeight = 14
	charWidth  = 7

	regCols     = 4
	regRows     = 3
	regColWidth = 150
)

var (
	colorText    = color.RGBA{0xC2, 0xC3, 0xC7, 0xFF}
	colorCurrent = color.RGBA{0xFF, 0xEC, 0x27, 0xFF}
	colorLabel   = color.RGBA{0x29, 0xAD, 0xFF, 0xFF}
	colorFault   = color.RGBA{0xFF, 0x00, 0x4D, 0xFF}
	colorBG      = color.RGBA{0x1D, 0x2B, 0x53, 0xFF}
)

type Game struct {
	view *viewer
	face text.Face
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.view.step()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.view.runToEnd()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.view.reset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	return nil
}

func (g *Game) drawText(screen *ebiten.Image, s string, x, y int, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, s, g.face, op)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colorBG)

	// Disassembly, scrolled so the current instruction stays on screen.
	cur := g.view.currentLine()
	rows := (screenHeight - 6*lineHeight) / lineHeight
	first := 0
	if cur >= rows {
		first = cur - rows + 1
	}
	y := lineHeight
	for i := first; i < len(g.view.lines) && i < first+rows; i++ {
		l := g.view.lines[i]
		if s, ok := g.view.symbolAt(l.Address); ok {
			g.drawText(screen, fmt.Sprintf("%s/%d:", s.Name, s.Arity), 0, y, colorLabel)
			y += lineHeight
		}
		clr := colorText
		marker := "  "
		if i == cur && !g.view.vm.Halted {
			clr = colorCurrent
			marker = "> "
		}
		g.drawText(screen, marker+l.String(), charWidth, y, clr)
		y += lineHeight
	}

	// Register frame.
	base := screenHeight - 5*lineHeight
	for i, r := range g.view.vm.Regs {
		x, row := grid.GetGridCoords(i, regCols)
		if row >= regRows {
			break
		}
		g.drawText(screen, fmt.Sprintf("R%-3d %.6g", i, r), x*regColWidth, base+row*lineHeight, colorText)
	}
	if n := len(g.view.vm.Regs); grid.Rows(n, regCols) > regRows {
		g.drawText(screen, fmt.Sprintf("+%d registers", n-regRows*regCols), screenWidth-20*charWidth, screenHeight-2*lineHeight, colorLabel)
	}

	clr := colorText
	if g.view.vm.Fault != nil {
		clr = colorFault
	}
	g.drawText(screen, g.view.status(), 0, screenHeight-2*lineHeight, clr)
	ebitenutil.DebugPrintAt(screen, "SPACE step  R run  BACKSPACE reset  ESC quit", 0, screenHeight-lineHeight)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	configPath := flag.String("config", "", "config file")
	entry := flag.String("entry", "", "function to run (default from config)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: desktop [flags] <input>")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *entry != "" {
		cfg.EntryPoint = *entry
	}

	fullPath, src, err := utils.ReadSource(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	logWriter, closeLog := config.OpenLogWriter(cfg.Log.File)
	defer closeLog()

	res, err := compiler.Compile(src, compiler.Options{File: fullPath, Logger: config.NewLogger(logWriter, cfg.Log)})
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}

	view, err := newViewer(res.Program, cfg.EntryPoint, cfg.Run.MaxSteps)
	if err != nil {
		log.Fatal(err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("bleurgh - " + fullPath)

	game := &Game{view: view, face: text.NewGoXFace(basicfont.Face7x13)}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
