package main

import (
	"testing"

	"plate-scanner/internal/grid"
	"plate-scanner/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		want    geometry.Point2D
		wantErr bool
	}{
		{"100,200", geometry.NewPoint2D(100, 200), false},
		{" 10.5 , 3 ", geometry.NewPoint2D(10.5, 3), false},
		{"-4,0", geometry.NewPoint2D(-4, 0), false},
		{"100", geometry.Point2D{}, true},
		{"1,2,3", geometry.Point2D{}, true},
		{"a,2", geometry.Point2D{}, true},
		{"1,b", geometry.Point2D{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePoint(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePoints(t *testing.T) {
	pts, err := parsePoints([]string{"1,2;3,4", "5,6 7,8"})
	require.NoError(t, err)
	assert.Equal(t, []geometry.Point2D{{X: 1, Y: 2}, {X: 3, Y: 4}, {X: 5, Y: 6}, {X: 7, Y: 8}}, pts)

	_, err = parsePoints([]string{"1,2;oops"})
	assert.Error(t, err)
}

func TestLastAnchors(t *testing.T) {
	pts := []geometry.Point2D{{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 120, Y: 10}, {X: 10, Y: 80}}

	a, err := lastAnchors(pts)
	require.NoError(t, err)
	assert.Equal(t, grid.Anchors{A1: pts[1], RowEnd: pts[2], ColumnEnd: pts[3]}, a)

	_, err = lastAnchors(pts[:2])
	assert.Error(t, err)
}
