package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"log/slog"
	"testing"
	"time"

	"artiscan/internal/capture"
	"artiscan/internal/config"
	"artiscan/internal/layout"
	"artiscan/internal/ocr"
	"artiscan/internal/store"
)

// panel scripts the detail-panel content shown for one inventory slot.
type panel struct {
	title, slot, mainName, mainValue string
	level, set, equipped             string
	subs                             [4]string
	stars                            int
	locked                           bool
}

func goodPanel(set string, level int) panel {
	return panel{
		title:     "Royal Flora",
		slot:      "Flower of Life",
		mainName:  "HP",
		mainValue: "4,780",
		level:     fmt.Sprintf("+%d", level),
		set:       set,
		stars:     5,
		subs:      [4]string{"CRIT Rate+3.9%", "ATK+4.7%", "", ""},
	}
}

// testProfile is a miniature screen so frames stay cheap to render.
func testProfile() *layout.Profile {
	return &layout.Profile{
		Width:  400,
		Height: 300,
		Fields: map[layout.Field]image.Rectangle{
			layout.FieldTitle:         image.Rect(200, 10, 390, 30),
			layout.FieldSlot:          image.Rect(200, 32, 390, 50),
			layout.FieldMainStatName:  image.Rect(200, 52, 300, 70),
			layout.FieldMainStatValue: image.Rect(300, 52, 390, 70),
			layout.FieldStars:         image.Rect(200, 72, 320, 90),
			layout.FieldLevel:         image.Rect(200, 92, 240, 110),
			layout.FieldLock:          image.Rect(360, 92, 380, 110),
			layout.FieldSubStat1:      image.Rect(200, 112, 390, 130),
			layout.FieldSubStat2:      image.Rect(200, 134, 390, 152),
			layout.FieldSubStat3:      image.Rect(200, 156, 390, 174),
			layout.FieldSubStat4:      image.Rect(200, 178, 390, 196),
			layout.FieldSetName:       image.Rect(200, 202, 390, 220),
			layout.FieldEquipped:      image.Rect(200, 222, 390, 240),
			layout.FieldCounter:       image.Rect(10, 10, 100, 28),
			layout.FieldPanel:         image.Rect(195, 5, 395, 295),
		},
		Grid: layout.Grid{
			Origin:      image.Point{X: 40, Y: 60},
			Cols:        2,
			VisibleRows: 2,
			StrideX:     60,
			StrideY:     60,
			ScrollStep:  60,
		},
	}
}

func testScanConfig() config.Scan {
	return config.Scan{
		StabilityFrames:   2,
		StabilityPoll:     time.Millisecond,
		StabilityAttempts: 6,
		PixelDiffLimit:    2.0,
		SlotRetries:       2,
		NoProgressLimit:   3,
		CaptureRetries:    2,
		MinRarity:         1,
		MaxRarity:         5,
		Workers:           4,
	}
}

// fakeGame plays both collaborators: it renders frames for the currently
// selected panel and tracks cursor movement from injected input.
type fakeGame struct {
	profile     *layout.Profile
	panels      []panel
	counterText string
	noiseAt     int  // selection index whose panel never settles, -1 = none
	scrollMoves bool // whether scrolling reveals new rows

	sel     int
	topRow  int
	clicks  int
	scrolls int
	tick    int
	capErr  error
}

func newFakeGame(panels []panel, counterText string) *fakeGame {
	return &fakeGame{
		profile:     testProfile(),
		panels:      panels,
		counterText: counterText,
		noiseAt:     -1,
		scrollMoves: true,
	}
}

func (g *fakeGame) render() *image.RGBA {
	g.tick++
	img := image.NewRGBA(image.Rect(0, 0, g.profile.Width, g.profile.Height))

	// Grid shade varies with the scroll position so the controller can
	// tell whether a scroll actually moved the list.
	shade := uint8(50)
	if g.scrollMoves {
		shade += uint8(30 * g.topRow)
	}
	gridRect := image.Rect(10, 30, 160, 270)
	draw.Draw(img, gridRect, image.NewUniform(color.RGBA{shade, shade, shade, 255}), image.Point{}, draw.Src)

	p := g.panels[g.sel]
	stars := g.profile.Fields[layout.FieldStars]
	for i := 0; i < p.stars; i++ {
		run := image.Rect(stars.Min.X+i*20, stars.Min.Y, stars.Min.X+i*20+10, stars.Max.Y)
		draw.Draw(img, run, image.NewUniform(color.RGBA{255, 200, 50, 255}), image.Point{}, draw.Src)
	}
	if p.locked {
		lock := g.profile.Fields[layout.FieldLock]
		draw.Draw(img, lock, image.NewUniform(color.RGBA{230, 230, 230, 255}), image.Point{}, draw.Src)
	}
	if g.sel == g.noiseAt {
		// Perpetual transition animation: the panel flips shade on every
		// capture, so no two consecutive frames ever match.
		noise := uint8(0)
		if g.tick%2 == 0 {
			noise = 255
		}
		panelRect := g.profile.Fields[layout.FieldPanel]
		draw.Draw(img, panelRect, image.NewUniform(color.RGBA{noise, noise, noise, 255}), image.Point{}, draw.Src)
	}
	return img
}

func (g *fakeGame) CaptureScreen() (*capture.Frame, error) {
	if g.capErr != nil {
		return nil, g.capErr
	}
	return &capture.Frame{Image: g.render(), Size: image.Point{X: g.profile.Width, Y: g.profile.Height}}, nil
}

func (g *fakeGame) CaptureRegion(r image.Rectangle) (*capture.Frame, error) {
	if g.capErr != nil {
		return nil, g.capErr
	}
	return &capture.Frame{Image: g.render().SubImage(r), Size: image.Point{X: g.profile.Width, Y: g.profile.Height}}, nil
}

func (g *fakeGame) Click(pt image.Point) error {
	g.clicks++
	grid := g.profile.Grid
	col := (pt.X - grid.Origin.X + grid.StrideX/2) / grid.StrideX
	visRow := (pt.Y - grid.Origin.Y + grid.StrideY/2) / grid.StrideY
	idx := (g.topRow+visRow)*grid.Cols + col
	if idx >= len(g.panels) {
		idx = len(g.panels) - 1
	}
	g.sel = idx
	return nil
}

func (g *fakeGame) Scroll(amount int) error {
	g.scrolls++
	if g.scrollMoves {
		g.topRow += amount / g.profile.Grid.ScrollStep
	}
	return nil
}

func (g *fakeGame) KeyPress(string) error { return nil }

// fakeReco maps a crop back to the scripted text by its rectangle. It
// stands in for the trained model, which the controller only sees through
// the Recognizer interface.
type fakeReco struct{ game *fakeGame }

func (f *fakeReco) Recognize(crop image.Image) (ocr.DecodedText, error) {
	b := crop.Bounds()
	p := f.game.panels[f.game.sel]
	var text string
	switch b {
	case f.game.profile.Fields[layout.FieldTitle]:
		text = p.title
	case f.game.profile.Fields[layout.FieldSlot]:
		text = p.slot
	case f.game.profile.Fields[layout.FieldMainStatName]:
		text = p.mainName
	case f.game.profile.Fields[layout.FieldMainStatValue]:
		text = p.mainValue
	case f.game.profile.Fields[layout.FieldLevel]:
		text = p.level
	case f.game.profile.Fields[layout.FieldSubStat1]:
		text = p.subs[0]
	case f.game.profile.Fields[layout.FieldSubStat2]:
		text = p.subs[1]
	case f.game.profile.Fields[layout.FieldSubStat3]:
		text = p.subs[2]
	case f.game.profile.Fields[layout.FieldSubStat4]:
		text = p.subs[3]
	case f.game.profile.Fields[layout.FieldSetName]:
		text = p.set
	case f.game.profile.Fields[layout.FieldEquipped]:
		text = p.equipped
	case f.game.profile.Fields[layout.FieldCounter]:
		text = f.game.counterText
	}
	if text == "" {
		return ocr.DecodedText{}, ocr.ErrEmptyRecognition
	}
	return ocr.DecodedText{Text: text}, nil
}

func newTestController(game *fakeGame, cfg config.Scan) *Controller {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, game.profile, game, game, &fakeReco{game: game}, store.New(), logger)
}

func TestScanFiveDistinctPanels(t *testing.T) {
	panels := make([]panel, 5)
	sets := []string{"Archaic Petra", "Crimson Witch of Flames", "Viridescent Venerer", "Noblesse Oblige", "Blizzard Strayer"}
	for i := range panels {
		panels[i] = goodPanel(sets[i], 20)
	}
	game := newFakeGame(panels, "5/1500")
	c := newTestController(game, testScanConfig())

	sum := c.Run(context.Background())
	if sum.Err != nil {
		t.Fatalf("scan failed: %v", sum.Err)
	}
	if sum.Recorded != 5 || sum.Skipped != 0 || sum.Expected != 5 {
		t.Fatalf("summary = %+v", sum)
	}
	snap := c.Results().Snapshot()
	if len(snap) != 5 {
		t.Fatalf("store has %d records", len(snap))
	}
	for i, r := range snap {
		if r.SetName != sets[i] {
			t.Errorf("record %d set = %q, want %q", i, r.SetName, sets[i])
		}
		if r.Title != "Royal Flora" {
			t.Errorf("record %d title = %q", i, r.Title)
		}
		if r.Rarity != 5 || r.Level != 20 || len(r.SubStats) != 2 {
			t.Errorf("record %d content wrong: %+v", i, r)
		}
	}
}

func TestNeverStabilizingSlotSkipped(t *testing.T) {
	panels := make([]panel, 5)
	sets := []string{"a1", "a2", "a3", "a4", "a5"}
	for i := range panels {
		panels[i] = goodPanel(sets[i], 20)
	}
	game := newFakeGame(panels, "5/1500")
	game.noiseAt = 2 // third panel never settles
	c := newTestController(game, testScanConfig())

	sum := c.Run(context.Background())
	if sum.Err != nil {
		t.Fatalf("scan failed: %v", sum.Err)
	}
	if sum.Recorded != 4 || sum.Skipped != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	for _, r := range c.Results().Snapshot() {
		if r.SetName == "a3" {
			t.Fatal("unstable slot must not be recorded")
		}
	}
}

func TestNoProgressAborts(t *testing.T) {
	panels := make([]panel, 6)
	for i := range panels {
		panels[i] = goodPanel("Same Set", 20) // identical fingerprints
	}
	game := newFakeGame(panels, "6/1500")
	c := newTestController(game, testScanConfig())

	sum := c.Run(context.Background())
	if !errors.Is(sum.Err, ErrNoProgress) {
		t.Fatalf("err = %v, want ErrNoProgress", sum.Err)
	}
	// Partial results survive the abort.
	if sum.Recorded != 1 || c.Results().Len() != 1 {
		t.Fatalf("summary = %+v, store len %d", sum, c.Results().Len())
	}
}

func TestScrollsForHiddenRows(t *testing.T) {
	panels := make([]panel, 6) // 2x2 visible window, 3 rows total
	for i := range panels {
		panels[i] = goodPanel("Set", 20)
		panels[i].level = "+1" // vary content so fingerprints differ
		panels[i].mainValue = []string{"100", "200", "300", "400", "500", "600"}[i]
	}
	game := newFakeGame(panels, "6/1500")
	c := newTestController(game, testScanConfig())

	sum := c.Run(context.Background())
	if sum.Err != nil {
		t.Fatalf("scan failed: %v", sum.Err)
	}
	if sum.Recorded != 6 {
		t.Fatalf("summary = %+v", sum)
	}
	if game.scrolls == 0 {
		t.Fatal("hidden rows must trigger a scroll")
	}
}

func TestScrollExhaustionCompletes(t *testing.T) {
	panels := make([]panel, 4)
	for i := range panels {
		panels[i] = goodPanel("Set", 20)
		panels[i].mainValue = []string{"100", "200", "300", "400"}[i]
	}
	game := newFakeGame(panels, "garbled") // counter unreadable
	game.scrollMoves = false
	c := newTestController(game, testScanConfig())

	sum := c.Run(context.Background())
	if sum.Err != nil {
		t.Fatalf("scan failed: %v", sum.Err)
	}
	if sum.Recorded != 4 || sum.Expected != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

// A partial last row with an unreadable counter ends the scan cleanly:
// clicking the empty cell leaves the selection on the last item, and with
// no expected total that repeat reads as the end of the list.
func TestPartialLastRowCompletes(t *testing.T) {
	panels := make([]panel, 3) // 2x2 window, second row half filled
	for i := range panels {
		panels[i] = goodPanel("Set", 20)
		panels[i].mainValue = []string{"100", "200", "300"}[i]
	}
	game := newFakeGame(panels, "garbled")
	game.scrollMoves = false
	c := newTestController(game, testScanConfig())

	sum := c.Run(context.Background())
	if sum.Err != nil {
		t.Fatalf("scan failed: %v", sum.Err)
	}
	if sum.Recorded != 3 || sum.Skipped != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestMinRarityStopsEarly(t *testing.T) {
	panels := []panel{goodPanel("s1", 20), goodPanel("s2", 20), goodPanel("s3", 20)}
	panels[1].stars = 3
	panels[1].level = "+12"
	cfg := testScanConfig()
	cfg.MinRarity = 4
	game := newFakeGame(panels, "3/1500")
	c := newTestController(game, cfg)

	sum := c.Run(context.Background())
	if sum.Err != nil {
		t.Fatalf("scan failed: %v", sum.Err)
	}
	if sum.Recorded != 1 {
		t.Fatalf("rarity-sorted early stop expected after 1 record, got %+v", sum)
	}
}

func TestCaptureFailureAborts(t *testing.T) {
	panels := []panel{goodPanel("s1", 20)}
	game := newFakeGame(panels, "1/1500")
	game.capErr = capture.ErrCaptureUnavailable
	c := newTestController(game, testScanConfig())

	sum := c.Run(context.Background())
	if !errors.Is(sum.Err, capture.ErrCaptureUnavailable) {
		t.Fatalf("err = %v, want ErrCaptureUnavailable", sum.Err)
	}
}

// A retry bound of zero must still surface an error instead of a nil
// frame, so the run aborts rather than panicking on the first deref.
func TestZeroCaptureRetriesAborts(t *testing.T) {
	game := newFakeGame([]panel{goodPanel("s1", 20)}, "1/1500")
	cfg := testScanConfig()
	cfg.CaptureRetries = 0
	c := newTestController(game, cfg)

	frame, err := c.captureRegion(image.Rect(0, 0, 10, 10))
	if err == nil {
		t.Fatal("captureRegion must not return a nil frame with a nil error")
	}
	if frame != nil {
		t.Fatalf("frame = %v, want nil", frame)
	}

	sum := c.Run(context.Background())
	if !errors.Is(sum.Err, capture.ErrCaptureUnavailable) {
		t.Fatalf("err = %v, want ErrCaptureUnavailable", sum.Err)
	}
}

func TestCancelBetweenCycles(t *testing.T) {
	panels := make([]panel, 3)
	for i := range panels {
		panels[i] = goodPanel("Set", 20)
		panels[i].mainValue = []string{"100", "200", "300"}[i]
	}
	game := newFakeGame(panels, "3/1500")
	c := newTestController(game, testScanConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum := c.Run(ctx)
	if !errors.Is(sum.Err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", sum.Err)
	}
	if sum.Recorded != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestLockedPanelRecorded(t *testing.T) {
	p := goodPanel("Set", 20)
	p.locked = true
	p.equipped = "Equipped: Hu Tao"
	game := newFakeGame([]panel{p}, "1/1500")
	c := newTestController(game, testScanConfig())

	sum := c.Run(context.Background())
	if sum.Err != nil || sum.Recorded != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	r := c.Results().Snapshot()[0]
	if !r.Locked || r.EquippedBy != "Hu Tao" {
		t.Fatalf("record = %+v", r)
	}
}

// Record validation failures (main stat repeated in substats here) burn
// the slot's retries and then skip it without stalling the scan.
func TestMalformedSlotSkipped(t *testing.T) {
	panels := []panel{goodPanel("s1", 20), goodPanel("s2", 20)}
	panels[0].subs[0] = "Luck+3.9%" // not in the stat vocabulary
	panels[1].mainValue = "999"
	game := newFakeGame(panels, "2/1500")
	c := newTestController(game, testScanConfig())

	sum := c.Run(context.Background())
	if sum.Err != nil {
		t.Fatalf("scan failed: %v", sum.Err)
	}
	if sum.Recorded != 1 || sum.Skipped != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if snap := c.Results().Snapshot(); snap[0].SetName != "s2" {
		t.Fatalf("wrong record kept: %+v", snap[0])
	}
}
