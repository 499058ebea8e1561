package main

import (
	"fmt"
	"strconv"
	"strings"

	"plate-scanner/internal/app"
	"plate-scanner/internal/grid"
	"plate-scanner/pkg/geometry"
)

// parsePoint parses "x,y".
func parsePoint(s string) (geometry.Point2D, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geometry.Point2D{}, fmt.Errorf("invalid point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geometry.Point2D{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geometry.Point2D{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return geometry.NewPoint2D(x, y), nil
}

// parsePoints parses every --point value. A value may hold several points
// separated by semicolons or spaces.
func parsePoints(values []string) ([]geometry.Point2D, error) {
	var pts []geometry.Point2D
	for _, v := range values {
		for _, field := range strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == ' ' }) {
			p, err := parsePoint(field)
			if err != nil {
				return nil, err
			}
			pts = append(pts, p)
		}
	}
	return pts, nil
}

// addPoints feeds points to the session, mapping them through the display
// viewport first when display is set.
func addPoints(s *app.Session, pts []geometry.Point2D, display bool) error {
	for _, p := range pts {
		var err error
		if display {
			_, err = s.AddPoint(p)
		} else {
			_, err = s.AddRealPoint(p)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// lastAnchors returns the final three points as A1, the end of row A and H1.
// Earlier points are ignored, so a mispicked triple can be corrected by
// appending a new one.
func lastAnchors(pts []geometry.Point2D) (grid.Anchors, error) {
	if len(pts) < 3 {
		return grid.Anchors{}, fmt.Errorf("need three anchors, got %d", len(pts))
	}
	p := pts[len(pts)-3:]
	return grid.Anchors{A1: p[0], RowEnd: p[1], ColumnEnd: p[2]}, nil
}
