package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"qrgen/internal/models"
)

func u32(v uint32) *uint32 { return &v }

func TestFingerprintOf_Deterministic(t *testing.T) {
	req := models.RenderRequest{Text: "hello", TargetWidth: 300}
	assert.Equal(t, FingerprintOf(req, ""), FingerprintOf(req, ""))
	assert.Len(t, FingerprintOf(req, "").String(), 64)
}

func TestFingerprintOf_EveryFieldMatters(t *testing.T) {
	base := models.RenderRequest{
		Text:        "hello",
		TargetWidth: 300,
		Logo:        &models.LogoSpec{SourceURL: "https://example.com/a.png", TargetWidth: 50},
	}

	variants := map[string]models.RenderRequest{
		"no logo": {Text: "hello", TargetWidth: 300},
		"text":    {Text: "hello!", TargetWidth: 300, Logo: base.Logo},
		"width":   {Text: "hello", TargetWidth: 301, Logo: base.Logo},
		"logo url": {Text: "hello", TargetWidth: 300, Logo: &models.LogoSpec{
			SourceURL: "https://example.com/b.png", TargetWidth: 50,
		}},
		"logo width": {Text: "hello", TargetWidth: 300, Logo: &models.LogoSpec{
			SourceURL: "https://example.com/a.png", TargetWidth: 51,
		}},
		"logo height": {Text: "hello", TargetWidth: 300, Logo: &models.LogoSpec{
			SourceURL: "https://example.com/a.png", TargetWidth: 50, TargetHeight: u32(50),
		}},
	}

	want := FingerprintOf(base, "")
	for name, v := range variants {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, want, FingerprintOf(v, ""))
		})
	}
}

func TestFingerprintOf_HeightValueNotPointer(t *testing.T) {
	a := models.RenderRequest{Text: "x", TargetWidth: 10, Logo: &models.LogoSpec{
		SourceURL: "https://example.com/a.png", TargetWidth: 5, TargetHeight: u32(7),
	}}
	b := models.RenderRequest{Text: "x", TargetWidth: 10, Logo: &models.LogoSpec{
		SourceURL: "https://example.com/a.png", TargetWidth: 5, TargetHeight: u32(7),
	}}
	assert.Equal(t, FingerprintOf(a, ""), FingerprintOf(b, ""))
}

func TestFingerprintOf_InvalidUTF8Distinct(t *testing.T) {
	a := models.RenderRequest{Text: "id-\xff", TargetWidth: 10}
	b := models.RenderRequest{Text: "id-\xfe", TargetWidth: 10}
	c := models.RenderRequest{Text: "id-\ufffd", TargetWidth: 10}
	assert.NotEqual(t, FingerprintOf(a, ""), FingerprintOf(b, ""))
	assert.NotEqual(t, FingerprintOf(a, ""), FingerprintOf(c, ""))

	la := models.RenderRequest{Text: "x", TargetWidth: 10, Logo: &models.LogoSpec{SourceURL: "https://e.com/\xff", TargetWidth: 5}}
	lb := models.RenderRequest{Text: "x", TargetWidth: 10, Logo: &models.LogoSpec{SourceURL: "https://e.com/\xfe", TargetWidth: 5}}
	assert.NotEqual(t, FingerprintOf(la, ""), FingerprintOf(lb, ""))
}

func TestFingerprintOf_FieldBoundaries(t *testing.T) {
	a := models.RenderRequest{Text: "ab", TargetWidth: 10, Logo: &models.LogoSpec{SourceURL: "c", TargetWidth: 5}}
	b := models.RenderRequest{Text: "a", TargetWidth: 10, Logo: &models.LogoSpec{SourceURL: "bc", TargetWidth: 5}}
	assert.NotEqual(t, FingerprintOf(a, ""), FingerprintOf(b, ""))
}

func TestFingerprintOf_VariantMatters(t *testing.T) {
	req := models.RenderRequest{Text: "hello", TargetWidth: 300}
	assert.NotEqual(t, FingerprintOf(req, "medium"), FingerprintOf(req, "highest"))
	assert.Equal(t, FingerprintOf(req, "medium"), FingerprintOf(req, "medium"))
}
