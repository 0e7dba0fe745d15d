package imgutil

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// CanvasSize はキャンバスのピクセルサイズです。
type CanvasSize struct {
	Width  int
	Height int
}

// DefaultCanvasSize は未知のアスペクト比に使うサイズです。
var DefaultCanvasSize = CanvasSize{Width: 1024, Height: 1024}

// canvasSizes はアスペクト比ごとの正規キャンバスサイズです。
var canvasSizes = map[string]CanvasSize{
	"1:1":  {Width: 1024, Height: 1024},
	"16:9": {Width: 1920, Height: 1080},
	"9:16": {Width: 1080, Height: 1920},
	"4:3":  {Width: 1920, Height: 1440},
	"3:4":  {Width: 1440, Height: 1920},
}

// CanvasSizeFor はアスペクト比 ("W:H") に対応するキャンバスサイズを返します。
func CanvasSizeFor(ratio string) CanvasSize {
	if size, ok := canvasSizes[ratio]; ok {
		return size
	}
	return DefaultCanvasSize
}

// Compose は元画像をアスペクト比に合わせたキャンバスへ中央配置し、PNG で返します。
// 元画像は縦横比を保ったままキャンバス全体を覆うように拡縮され、はみ出た端は切り取られます。
// 背景の白はリモートモデルが置き換える前提のプレースホルダーです。
func Compose(src []byte, ratio string) ([]byte, error) {
	img, err := Decode(src)
	if err != nil {
		return nil, err
	}
	return encodePNG(ComposeImage(img, ratio))
}

// ComposeImage はデコード済み画像に対して Compose と同じ配置を行います。
func ComposeImage(img image.Image, ratio string) *image.RGBA {
	size := CanvasSizeFor(ratio)
	canvas := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	sb := img.Bounds()
	dr := coverRect(sb.Dx(), sb.Dy(), size.Width, size.Height)
	draw.BiLinear.Scale(canvas, dr, img, sb, draw.Over, nil)
	return canvas
}

// coverRect は (sw, sh) の画像で (cw, ch) を覆う描画矩形を返します。
// 画像のほうが横長なら高さに、そうでなければ幅に合わせます。
func coverRect(sw, sh, cw, ch int) image.Rectangle {
	if sw <= 0 || sh <= 0 {
		return image.Rect(0, 0, cw, ch)
	}
	var w, h int
	if sw*ch > cw*sh {
		h = ch
		w = sw * ch / sh
	} else {
		w = cw
		h = sh * cw / sw
	}
	x := (cw - w) / 2
	y := (ch - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
