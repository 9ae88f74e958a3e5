package renderer

import (
	"fmt"
	"image"
	"testing"
	"unicode/utf8"

	"github.com/ByLCY/certify/layout"
)

type recordingTarget struct {
	ops []string
}

func (r *recordingTarget) DrawImage(x, y float64, img image.Image) {
	r.ops = append(r.ops, fmt.Sprintf("image %dx%d @%g,%g", img.Bounds().Dx(), img.Bounds().Dy(), x, y))
}

func (r *recordingTarget) DrawText(x, y float64, text string, emphasized bool) {
	weight := "regular"
	if emphasized {
		weight = "bold"
	}
	r.ops = append(r.ops, fmt.Sprintf("text %s %q @%g,%g", weight, text, x, y))
}

func (r *recordingTarget) Rasterize() *image.RGBA { return nil }

type fixedMeasurer struct{}

func (fixedMeasurer) MeasureFunc(string, float64) (layout.MeasureFunc, error) {
	return func(text string, _ bool) float64 { return 10 * float64(utf8.RuneCountInString(text)) }, nil
}

func TestComposeDrawsTemplateFirstThenTokens(t *testing.T) {
	req := layout.RenderRequest{
		Image: image.NewRGBA(image.Rect(0, 0, 400, 200)),
		Tokens: []layout.Token{
			{Text: "to"},
			{Text: "Ada", Emphasized: true},
		},
		Anchor:   layout.Anchor{X: 0.5, Y: 0.5},
		FontSize: 10,
	}
	plan, err := layout.NewPlan(req, fixedMeasurer{})
	if err != nil {
		t.Fatal(err)
	}
	target := &recordingTarget{}
	if err := Compose(target, req, plan); err != nil {
		t.Fatalf("Compose error: %v", err)
	}

	// 行宽 70px，居中于 x=200：起点 165
	want := []string{
		"image 400x200 @0,0",
		`text regular "to" @165,100`,
		`text bold "Ada" @195,100`,
	}
	if len(target.ops) != len(want) {
		t.Fatalf("unexpected ops: %v", target.ops)
	}
	for i := range want {
		if target.ops[i] != want[i] {
			t.Fatalf("op %d = %s, want %s", i, target.ops[i], want[i])
		}
	}
}

func TestComposeDrawsQRCodeAfterTemplate(t *testing.T) {
	req := layout.RenderRequest{
		Image:    image.NewRGBA(image.Rect(0, 0, 400, 400)),
		Anchor:   layout.Anchor{X: 0.5, Y: 0.5},
		FontSize: 10,
		QR: &layout.QRRequest{
			Content: "IPC-TM-1001",
			Overlay: layout.QROverlay{Anchor: layout.Anchor{X: 0.5, Y: 0.5}, Size: 100},
		},
	}
	plan, err := layout.NewPlan(req, fixedMeasurer{})
	if err != nil {
		t.Fatal(err)
	}
	target := &recordingTarget{}
	if err := Compose(target, req, plan); err != nil {
		t.Fatalf("Compose error: %v", err)
	}
	if len(target.ops) != 2 || target.ops[1] != "image 100x100 @150,150" {
		t.Fatalf("unexpected ops: %v", target.ops)
	}
}

func TestComposeRejectsMissingImage(t *testing.T) {
	if err := Compose(&recordingTarget{}, layout.RenderRequest{}, &layout.Plan{}); err == nil {
		t.Fatalf("expected error without template image")
	}
	if _, err := QRImage("x", 0); err == nil {
		t.Fatalf("expected error for zero QR size")
	}
}
