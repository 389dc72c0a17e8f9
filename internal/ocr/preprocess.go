package ocr

import (
	"image"
	"image/draw"
	"math"
)

const (
	bilateralDiameter   = 11
	bilateralSigmaColor = 17.0
	bilateralSigmaSpace = 17.0
)

// Preprocess converts img to grayscale, smooths it with an edge preserving
// bilateral filter and expands it back to three identical color channels.
func Preprocess(img image.Image) *image.RGBA {
	gray := toGray(img)
	smoothed := bilateralFilter(gray, bilateralDiameter, bilateralSigmaColor, bilateralSigmaSpace)
	return grayToRGBA(smoothed)
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

func grayToRGBA(gray *image.Gray) *image.RGBA {
	b := gray.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := gray.Pix[gray.PixOffset(x, y)]
			i := out.PixOffset(x, y)
			out.Pix[i+0] = v
			out.Pix[i+1] = v
			out.Pix[i+2] = v
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

type offset struct {
	dx, dy int
	weight float64
}

// bilateralFilter follows OpenCV's bilateralFilter for 8-bit single channel
// input: a circular window of radius diameter/2, gaussian spatial and range
// kernels, reflect-101 borders.
func bilateralFilter(src *image.Gray, diameter int, sigmaColor, sigmaSpace float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)
	if w == 0 || h == 0 {
		return dst
	}

	radius := diameter / 2
	if radius < 1 {
		radius = 1
	}
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	colorCoeff := -0.5 / (sigmaColor * sigmaColor)

	var window []offset
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r := math.Sqrt(float64(dx*dx + dy*dy))
			if r > float64(radius) {
				continue
			}
			window = append(window, offset{dx: dx, dy: dy, weight: math.Exp(r * r * spaceCoeff)})
		}
	}

	var colorWeight [256]float64
	for i := range colorWeight {
		colorWeight[i] = math.Exp(float64(i*i) * colorCoeff)
	}

	at := func(x, y int) int {
		return int(src.Pix[(reflect101(y, h))*src.Stride+reflect101(x, w)])
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := at(x, y)
			var sum, wsum float64
			for _, o := range window {
				v := at(x+o.dx, y+o.dy)
				diff := v - center
				if diff < 0 {
					diff = -diff
				}
				weight := o.weight * colorWeight[diff]
				sum += float64(v) * weight
				wsum += weight
			}
			dst.Pix[y*dst.Stride+x] = uint8(math.Round(sum / wsum))
		}
	}
	return dst
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
