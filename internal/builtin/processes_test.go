package builtin

import (
	"testing"

	"github.com/joeblew999/geopyramid/internal/features"
	"github.com/joeblew999/geopyramid/internal/pyramid"
	"github.com/joeblew999/geopyramid/internal/rasterio"
	"github.com/joeblew999/geopyramid/internal/task"
)

func TestLookupUnknownProcessErrors(t *testing.T) {
	if _, err := Lookup("does-not-exist"); err == nil {
		t.Fatalf("expected an error for an unregistered process name")
	}
}

func TestFillProducesUniformArray(t *testing.T) {
	p, err := pyramid.New(pyramid.Mercator, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mp := &task.MapcheteProcess{Tile: pyramid.Tile{Pyramid: p, Zoom: 4, Row: 1, Col: 2}}

	out, err := Fill(mp, map[string]any{"value": 9.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := out.(rasterio.Array)
	if !ok {
		t.Fatalf("expected a rasterio.Array, got %T", out)
	}
	if arr.Width != 256 || arr.Height != 256 {
		t.Fatalf("expected a 256x256 tile, got %dx%d", arr.Width, arr.Height)
	}
	for i, v := range arr.Data {
		if v != 9.0 || arr.Mask[i] {
			t.Fatalf("expected every pixel to be unmasked value 9, got %v masked=%v at %d", v, arr.Mask[i], i)
		}
	}
}

type stubRasterSource struct {
	arr rasterio.Array
}

func (s stubRasterSource) SetPreprocessingTaskResult(string, any) {}
func (s stubRasterSource) Read(pyramid.Tile) (rasterio.Array, error) {
	return s.arr, nil
}

func TestPassthroughReadsFromBoundInput(t *testing.T) {
	want := rasterio.NewArray(2, 2)
	want.Data[0] = 42
	mp := &task.MapcheteProcess{
		Input: map[string]task.InputBinding{"dem": stubRasterSource{arr: want}},
	}

	out, err := Passthrough(mp, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := out.(rasterio.Array)
	if !ok {
		t.Fatalf("expected a rasterio.Array, got %T", out)
	}
	if arr.Data[0] != 42 {
		t.Fatalf("expected passthrough data, got %+v", arr)
	}
}

func TestPassthroughWithNoReadableInputReturnsEmpty(t *testing.T) {
	mp := &task.MapcheteProcess{}
	out, err := Passthrough(mp, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != task.Empty {
		t.Fatalf("expected the empty sentinel, got %+v", out)
	}
}

type stubVectorSource struct {
	feats []features.Feature
}

func (s stubVectorSource) SetPreprocessingTaskResult(string, any) {}
func (s stubVectorSource) Read(pyramid.Tile) ([]features.Feature, error) {
	return s.feats, nil
}

func TestVectorPassthroughReadsFromBoundInput(t *testing.T) {
	want := []features.Feature{{ID: "a"}}
	mp := &task.MapcheteProcess{
		Input: map[string]task.InputBinding{"layer": stubVectorSource{feats: want}},
	}

	out, err := VectorPassthrough(mp, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	feats, ok := out.([]features.Feature)
	if !ok || len(feats) != 1 || feats[0].ID != "a" {
		t.Fatalf("expected passthrough features, got %+v", out)
	}
}

func TestVectorPassthroughWithNoReadableInputReturnsEmpty(t *testing.T) {
	mp := &task.MapcheteProcess{}
	out, err := VectorPassthrough(mp, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != task.Empty {
		t.Fatalf("expected the empty sentinel, got %+v", out)
	}
}
