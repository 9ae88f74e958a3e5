package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/certify/dsl"
)

func buildFromDSL(t *testing.T, text string) (map[string]Template, error) {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	return BuildTemplates(doc)
}

func TestBuildTemplatesAppliesProperties(t *testing.T) {
	templates, err := buildFromDSL(t, `
template poster {
  image: "assets/poster.png"
  anchor: 50% 0.6
  font: "Go Mono" 40px
  color: #336699
  maxWidth: 80%
  lineHeight: 1.4x
  qr: 90% 88% 120px
  text {
    "This is to certify that"
    bold name
    "has presented"
    bold title
  }
}
`)
	if err != nil {
		t.Fatalf("BuildTemplates error: %v", err)
	}
	got, ok := templates["poster"]
	if !ok {
		t.Fatalf("poster template missing: %+v", templates)
	}
	want := Template{
		Type:       "poster",
		Image:      "assets/poster.png",
		Anchor:     Anchor{X: 0.5, Y: 0.6},
		FontFamily: "Go Mono",
		FontSize:   40,
		Color:      Color{R: 0x33, G: 0x66, B: 0x99, A: 255},
		MaxWidth:   0.8,
		LineHeight: 1.4,
		Fragments: []Fragment{
			{Text: "This is to certify that"},
			{Field: "name"},
			{Text: "has presented"},
			{Field: "title"},
		},
		QR: &QROverlay{Anchor: Anchor{X: 0.9, Y: 0.88}, Size: 120},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("template mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTemplatesDefaults(t *testing.T) {
	templates, err := buildFromDSL(t, `template participation { image: "p.png"; text { bold name } }`)
	if err != nil {
		t.Fatalf("BuildTemplates error: %v", err)
	}
	tpl := templates["participation"]
	if tpl.FontFamily != DefaultFontFamily || tpl.FontSize != DefaultFontSize {
		t.Fatalf("font defaults not applied: %+v", tpl)
	}
	if tpl.LineHeight != DefaultLineHeight || tpl.MaxWidth != DefaultMaxWidth {
		t.Fatalf("layout defaults not applied: %+v", tpl)
	}
	if tpl.Anchor != (Anchor{X: 0.5, Y: 0.5}) || tpl.Color != DefaultColor || tpl.QR != nil {
		t.Fatalf("unexpected defaults: %+v", tpl)
	}
}

func TestBuildTemplatesRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing image":  `template a { text { "x" } }`,
		"missing text":   `template a { image: "a.png" }`,
		"two text":       `template a { image: "a.png"; text { "x" }; text { "y" } }`,
		"unknown prop":   `template a { image: "a.png"; border: 2px; text { "x" } }`,
		"bad anchor":     `template a { image: "a.png"; anchor: 50%; text { "x" } }`,
		"anchor too big": `template a { image: "a.png"; anchor: 150% 50%; text { "x" } }`,
		"bad color":      `template a { image: "a.png"; color: red; text { "x" } }`,
		"bad size":       `template a { image: "a.png"; size: 40%; text { "x" } }`,
		"duplicate":      `template a { image: "a.png"; text { "x" } } template a { image: "b.png"; text { "y" } }`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := buildFromDSL(t, text); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.cert")
	content := "template participation {\n  image: \"p.png\"\n  text { \"Hello\"; bold name }\n}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	templates, err := LoadTemplates(path)
	if err != nil {
		t.Fatalf("LoadTemplates error: %v", err)
	}
	if len(templates["participation"].Fragments) != 2 {
		t.Fatalf("unexpected fragments: %+v", templates["participation"])
	}
	if _, err := LoadTemplates(filepath.Join(t.TempDir(), "missing.cert")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
