package imgutil

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
)

// Effect は簡易フォールバックで使う色味の名前です。
type Effect string

const (
	EffectVintage   Effect = "vintage"
	EffectCyberpunk Effect = "cyberpunk"
	EffectSunset    Effect = "sunset"
	EffectForest    Effect = "forest"
	EffectSpace     Effect = "space"
	EffectBeach     Effect = "beach"
	EffectStorm     Effect = "storm"
)

// tints はエフェクトごとの重ね塗り色です (NRGBA, アルファは不透明度)。
var tints = map[Effect]color.NRGBA{
	EffectVintage:   {R: 139, G: 69, B: 19, A: alpha(0.3)},
	EffectCyberpunk: {R: 128, G: 0, B: 128, A: alpha(0.2)},
	EffectSunset:    {R: 255, G: 140, B: 0, A: alpha(0.2)},
	EffectForest:    {R: 34, G: 139, B: 34, A: alpha(0.2)},
	EffectSpace:     {R: 0, G: 0, B: 139, A: alpha(0.3)},
	EffectBeach:     {R: 173, G: 216, B: 230, A: alpha(0.2)},
	EffectStorm:     {R: 105, G: 105, B: 105, A: alpha(0.3)},
}

// defaultTint は未知のエフェクト名に使う控えめな色味です。
var defaultTint = color.NRGBA{R: 100, G: 100, B: 200, A: alpha(0.1)}

func alpha(opacity float64) uint8 {
	return uint8(opacity*255 + 0.5)
}

// TintFor はエフェクト名に対応する色を返します。
func TintFor(effect Effect) color.NRGBA {
	if c, ok := tints[Effect(strings.ToLower(string(effect)))]; ok {
		return c
	}
	return defaultTint
}

// ApplyEffect は元画像を Compose と同じ配置でキャンバスに描き、色味を重ねて PNG で返します。
// リモート編集が使えない場合の端末内フォールバック用です。
func ApplyEffect(src []byte, ratio string, effect Effect) ([]byte, error) {
	img, err := Decode(src)
	if err != nil {
		return nil, err
	}
	canvas := ComposeImage(img, ratio)
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(TintFor(effect)), image.Point{}, draw.Over)
	return encodePNG(canvas)
}
