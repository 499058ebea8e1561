// Command sampletest prints the color sample of every channel around given
// points of a plate photograph.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	pimage "plate-scanner/internal/image"
	"plate-scanner/internal/sampler"
	"plate-scanner/pkg/geometry"
)

func main() {
	imagePath := flag.String("image", "", "Path to plate image (TIFF, PNG, or JPEG)")
	points := flag.String("points", "", "Points to sample: x,y;x,y;...")
	radius := flag.Int("radius", sampler.DefaultCalibrationRadius, "Sampling radius in pixels")
	flag.Parse()

	if *imagePath == "" || *points == "" {
		fmt.Println("Usage: sampletest -image <path> -points x,y[;x,y...] [-radius 4]")
		os.Exit(1)
	}

	var pts []geometry.Point2D
	for _, field := range strings.Split(*points, ";") {
		xy := strings.Split(strings.TrimSpace(field), ",")
		if len(xy) != 2 {
			fmt.Fprintf(os.Stderr, "Invalid point %q\n", field)
			os.Exit(1)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if errX != nil || errY != nil {
			fmt.Fprintf(os.Stderr, "Invalid point %q\n", field)
			os.Exit(1)
		}
		pts = append(pts, geometry.NewPoint2D(x, y))
	}

	buf, err := pimage.Load(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	defer buf.Close()

	fmt.Printf("Loaded image: %dx%d pixels (xxhash %016x)\n", buf.Width(), buf.Height(), buf.Hash)
	fmt.Printf("Radius: %d px (median blur %d)\n\n", *radius, pimage.MedianKernel)

	fmt.Printf("%-16s", "Point")
	for _, ch := range sampler.Channels {
		fmt.Printf(" %8s", ch)
	}
	fmt.Println()
	fmt.Println(strings.Repeat("-", 16+9*len(sampler.Channels)))

	for _, r := range sampler.Points(buf, pts, *radius) {
		fmt.Printf("%-16s", fmt.Sprintf("(%.1f,%.1f)", r.Point.X, r.Point.Y))
		if !r.OK {
			fmt.Println(" outside image")
			continue
		}
		for _, ch := range sampler.Channels {
			fmt.Printf(" %8.2f", r.Sample.Value(ch))
		}
		fmt.Println()
	}
}
