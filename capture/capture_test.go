package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"slices"
	"testing"
	"time"
)

// fakeElement models one scrollable/toggleable element on the fake page.
type fakeElement struct {
	height       int
	scrollHeight int
	scrollTop    int
	visible      bool
}

// fakeDriver simulates a page of pageH pixels rendered behind a vw x vh
// viewport. Screenshots render the whole page with each pixel row labelled
// by its absolute position, so tests can tell exactly which band a capture
// contains.
type fakeDriver struct {
	pageW, pageH  int
	vw, vh        int
	pos           int
	mobile        bool
	elements      map[string]*fakeElement
	toggleFail    map[string]error
	screenshotErr error

	screenshots int
	toggled     []string
}

func newFakeDriver(pageH, vw, vh int) *fakeDriver {
	return &fakeDriver{
		pageW:    vw,
		pageH:    pageH,
		vw:       vw,
		vh:       vh,
		elements: map[string]*fakeElement{},
	}
}

func (d *fakeDriver) maxScroll() int {
	if m := d.pageH - d.vh; m > 0 {
		return m
	}
	return 0
}

func (d *fakeDriver) render() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, d.pageW, d.pageH))
	for y := 0; y < d.pageH; y++ {
		fillRow(img, y, 'P', y)
	}
	return img
}

func (d *fakeDriver) Screenshot(context.Context) ([]byte, error) {
	if d.screenshotErr != nil {
		return nil, d.screenshotErr
	}
	d.screenshots++
	img := image.Image(d.render())
	if d.mobile {
		// Mobile raw screenshots cover only the visible band.
		img = crop(img, image.Rect(0, d.pos, d.vw, d.pos+d.vh))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *fakeDriver) ScrollTo(_ context.Context, y int) error {
	if y < 0 {
		y = 0
	}
	if m := d.maxScroll(); y > m {
		y = m
	}
	d.pos = y
	return nil
}

func (d *fakeDriver) ScrollToBottom(context.Context) error {
	d.pos = d.maxScroll()
	return nil
}

func (d *fakeDriver) ScrollPosition(context.Context) (int, error) { return d.pos, nil }

func (d *fakeDriver) ViewportSize(context.Context) (int, int, error) { return d.vw, d.vh, nil }

func (d *fakeDriver) SetVisible(_ context.Context, selector string, visible bool) (ToggleState, error) {
	if err := d.toggleFail[selector]; err != nil {
		return 0, err
	}
	el, ok := d.elements[selector]
	if !ok {
		return ToggleSkippedMissing, nil
	}
	if el.visible == visible {
		return ToggleSkippedUnchanged, nil
	}
	el.visible = visible
	d.toggled = append(d.toggled, selector)
	return ToggleApplied, nil
}

func (d *fakeDriver) element(selector string) (*fakeElement, error) {
	el, ok := d.elements[selector]
	if !ok {
		return nil, errors.New("no such element")
	}
	return el, nil
}

func (d *fakeDriver) ScrollElementToTop(_ context.Context, selector string) error {
	el, err := d.element(selector)
	if err != nil {
		return err
	}
	el.scrollTop = 0
	return nil
}

func (d *fakeDriver) ScrollElementBy(_ context.Context, selector string, delta int) error {
	el, err := d.element(selector)
	if err != nil {
		return err
	}
	el.scrollTop += delta
	if m := el.scrollHeight - el.height; el.scrollTop > m {
		el.scrollTop = m
	}
	if el.scrollTop < 0 {
		el.scrollTop = 0
	}
	return nil
}

func (d *fakeDriver) ElementHeight(_ context.Context, selector string) (int, error) {
	el, err := d.element(selector)
	if err != nil {
		return 0, err
	}
	return el.height, nil
}

func (d *fakeDriver) ElementAtBottom(_ context.Context, selector string) (bool, error) {
	el, err := d.element(selector)
	if err != nil {
		return false, err
	}
	return el.scrollTop+el.height >= el.scrollHeight, nil
}

func (d *fakeDriver) WaitStable(context.Context, time.Duration) error { return nil }

func (d *fakeDriver) Mobile() bool { return d.mobile }

// rowLabel decodes the absolute page row a captured pixel row came from.
func rowLabel(img image.Image, y int) int {
	n := toNRGBA(img)
	off := n.PixOffset(0, y)
	return int(n.Pix[off+1]) | int(n.Pix[off+2])<<8
}

func TestPage_SingleFullPage(t *testing.T) {
	d := newFakeDriver(3000, 200, 800)
	c := New(d, Config{})

	images, err := c.Page(context.Background(), PageOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 1 {
		t.Fatalf("images: got %d, want 1", len(images))
	}
	if b := images[0].Bounds(); b.Dy() != 3000 {
		t.Fatalf("height: got %d, want full page 3000", b.Dy())
	}
}

func TestPage_ViewportOnly(t *testing.T) {
	d := newFakeDriver(3000, 200, 800)
	d.pos = 500
	c := New(d, Config{})

	images, err := c.Page(context.Background(), PageOptions{ViewportOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	b := images[0].Bounds()
	if b.Dx() != 200 || b.Dy() != 800 {
		t.Fatalf("size: got %dx%d, want 200x800", b.Dx(), b.Dy())
	}
	if got := rowLabel(images[0], 0); got != 500 {
		t.Fatalf("first row: got page row %d, want 500", got)
	}
}

func TestPage_ViewportOnlyMobileUncropped(t *testing.T) {
	d := newFakeDriver(3000, 200, 800)
	d.mobile = true
	d.pos = 500
	c := New(d, Config{})

	images, err := c.Page(context.Background(), PageOptions{ViewportOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	// The raw mobile screenshot passes through unmodified.
	if b := images[0].Bounds(); b.Dy() != 800 {
		t.Fatalf("height: got %d, want 800", b.Dy())
	}
	if got := rowLabel(images[0], 0); got != 500 {
		t.Fatalf("first row: got page row %d, want 500", got)
	}
}

func TestPage_Paginated(t *testing.T) {
	// Viewport 800, page 3000, padding 100: positions 0, 700, 1400, 2100,
	// then the clamped advance to 2200, after which the position repeats
	// and the loop ends.
	d := newFakeDriver(3000, 200, 800)
	c := New(d, Config{Paginated: true})

	images, err := c.Page(context.Background(), PageOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 5 {
		t.Fatalf("pages: got %d, want 5", len(images))
	}
	wantTops := []int{0, 700, 1400, 2100, 2200}
	for i, img := range images {
		if b := img.Bounds(); b.Dy() != 800 {
			t.Fatalf("page %d height: got %d, want 800", i, b.Dy())
		}
		if got := rowLabel(img, 0); got != wantTops[i] {
			t.Errorf("page %d top: got page row %d, want %d", i, got, wantTops[i])
		}
	}
}

func TestPage_PaginatedPaddingOverride(t *testing.T) {
	d := newFakeDriver(1600, 100, 800)
	c := New(d, Config{Paginated: true})

	// Padding 400 advances 400 pixels per step: 0, 400, 800, then the
	// clamp holds at 800 and the loop ends.
	images, err := c.Page(context.Background(), PageOptions{ScrollPadding: 400})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 3 {
		t.Fatalf("pages: got %d, want 3", len(images))
	}
}

func TestPage_StickyHeaderAndFooterStitched(t *testing.T) {
	d := newFakeDriver(3000, 200, 800)
	d.elements["#header"] = &fakeElement{visible: true}
	d.elements["#footer"] = &fakeElement{visible: true}
	c := New(d, Config{
		HeaderSelectors: []string{"#header"},
		FooterSelectors: []string{"#footer"},
	})

	images, err := c.Page(context.Background(), PageOptions{})
	if err != nil {
		t.Fatal(err)
	}
	// The header capture is the 0-800 band; the footer capture is the
	// whole page, whose rows 700-799 repeat the header's trailing block.
	// The seam lands at page row 800, so the result is the full page.
	if b := images[0].Bounds(); b.Dy() != 3000 {
		t.Fatalf("stitched height: got %d, want 3000", b.Dy())
	}
	if got := rowLabel(images[0], 800); got != 800 {
		t.Fatalf("row 800: got page row %d, want 800", got)
	}
	// Two captures: one with footers hidden, one with headers hidden.
	if d.screenshots != 2 {
		t.Errorf("screenshots: got %d, want 2", d.screenshots)
	}
	// Footers toggle around the first capture, headers around the second,
	// and both elements end up shown again.
	wantToggles := []string{"#footer", "#footer", "#header", "#header"}
	if !slices.Equal(d.toggled, wantToggles) {
		t.Errorf("toggles: got %v, want %v", d.toggled, wantToggles)
	}
	for sel, el := range d.elements {
		if !el.visible {
			t.Errorf("%s left hidden after capture", sel)
		}
	}
}

func TestPage_StickyHeaderOnlyScrollsToTop(t *testing.T) {
	d := newFakeDriver(3000, 200, 800)
	d.pos = 1200
	c := New(d, Config{HeaderSelectors: []string{"#header"}})

	if _, err := c.Page(context.Background(), PageOptions{}); err != nil {
		t.Fatal(err)
	}
	if d.pos != 0 {
		t.Fatalf("scroll position: got %d, want 0", d.pos)
	}
}

func TestPage_StickyFooterOnlyScrollsToBottom(t *testing.T) {
	d := newFakeDriver(3000, 200, 800)
	c := New(d, Config{FooterSelectors: []string{"#footer"}})

	if _, err := c.Page(context.Background(), PageOptions{}); err != nil {
		t.Fatal(err)
	}
	if d.pos != 2200 {
		t.Fatalf("scroll position: got %d, want 2200", d.pos)
	}
}

func TestSweep_ToleratesMissingAndUnchanged(t *testing.T) {
	d := newFakeDriver(1000, 100, 400)
	d.elements["#a"] = &fakeElement{visible: true}
	d.elements["#c"] = &fakeElement{visible: false}
	c := New(d, Config{})

	outcomes, err := c.hideAll(context.Background(), []string{"#a", "#b", "#c"})
	if err != nil {
		t.Fatal(err)
	}
	want := []ToggleState{ToggleApplied, ToggleSkippedMissing, ToggleSkippedUnchanged}
	if len(outcomes) != len(want) {
		t.Fatalf("outcomes: got %d, want %d", len(outcomes), len(want))
	}
	for i, o := range outcomes {
		if o.State != want[i] {
			t.Errorf("outcome %d (%s): got %s, want %s", i, o.Selector, o.State, want[i])
		}
	}
}

func TestSweep_HardFailureAborts(t *testing.T) {
	d := newFakeDriver(1000, 100, 400)
	d.elements["#a"] = &fakeElement{visible: true}
	d.elements["#c"] = &fakeElement{visible: true}
	d.toggleFail = map[string]error{"#b": errors.New("page crashed")}
	c := New(d, Config{})

	_, err := c.hideAll(context.Background(), []string{"#a", "#b", "#c"})
	var ierr *InteractionError
	if !errors.As(err, &ierr) {
		t.Fatalf("error: got %v, want InteractionError", err)
	}
	if ierr.Selector != "#b" {
		t.Errorf("selector: got %q, want %q", ierr.Selector, "#b")
	}
	if !d.elements["#c"].visible {
		t.Error("sweep continued past the failing selector")
	}
}

func TestScrollingElement_CaptureCount(t *testing.T) {
	// Element 300 high with 1000 of content, padding 100: scrollTop
	// advances 0, 200, 400, 600, 700 (clamped), which reports at-bottom.
	d := newFakeDriver(1000, 100, 400)
	d.elements["#feed"] = &fakeElement{height: 300, scrollHeight: 1000}
	c := New(d, Config{})

	images, err := c.ScrollingElement(context.Background(), "#feed", ElementOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 5 {
		t.Fatalf("images: got %d, want 5", len(images))
	}
	if el := d.elements["#feed"]; el.scrollTop != 700 {
		t.Fatalf("final scrollTop: got %d, want 700", el.scrollTop)
	}
}

func TestScrollingElement_FullPagePerStep(t *testing.T) {
	// With FullPage set, every scroll step captures the whole document
	// rather than the viewport band.
	d := newFakeDriver(1000, 100, 400)
	d.elements["#feed"] = &fakeElement{height: 300, scrollHeight: 1000}
	c := New(d, Config{})

	images, err := c.ScrollingElement(context.Background(), "#feed", ElementOptions{FullPage: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 5 {
		t.Fatalf("images: got %d, want 5", len(images))
	}
	for i, img := range images {
		if b := img.Bounds(); b.Dy() != 1000 {
			t.Errorf("image %d height: got %d, want full page 1000", i, b.Dy())
		}
	}
}

func TestScrollingElement_SingleCaptureWhenAlreadyShort(t *testing.T) {
	d := newFakeDriver(1000, 100, 400)
	d.elements["#box"] = &fakeElement{height: 300, scrollHeight: 300}
	c := New(d, Config{})

	images, err := c.ScrollingElement(context.Background(), "#box", ElementOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 1 {
		t.Fatalf("images: got %d, want 1", len(images))
	}
}

func TestScrollingElement_MissingElement(t *testing.T) {
	d := newFakeDriver(1000, 100, 400)
	c := New(d, Config{})

	_, err := c.ScrollingElement(context.Background(), "#nope", ElementOptions{})
	var ierr *InteractionError
	if !errors.As(err, &ierr) {
		t.Fatalf("error: got %v, want InteractionError", err)
	}
	if ierr.Selector != "#nope" {
		t.Errorf("selector: got %q, want %q", ierr.Selector, "#nope")
	}
}

func TestPage_ScreenshotFailureAborts(t *testing.T) {
	d := newFakeDriver(3000, 200, 800)
	d.screenshotErr = errors.New("target closed")
	c := New(d, Config{Paginated: true})

	images, err := c.Page(context.Background(), PageOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if images != nil {
		t.Fatalf("partial sequence returned: %d images", len(images))
	}
	var ierr *InteractionError
	if !errors.As(err, &ierr) {
		t.Fatalf("error: got %v, want InteractionError", err)
	}
	if ierr.Op != "screenshot" {
		t.Errorf("op: got %q, want %q", ierr.Op, "screenshot")
	}
}
