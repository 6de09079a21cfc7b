package mcerrors

import (
	"errors"
	"testing"
)

func TestIOErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &IOError{Path: "/tmp/x.geojson", Err: cause}

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to unwrap to cause")
	}
	if err.Error() == "" {
		t.Fatalf("expected non-empty message")
	}
}

func TestReprojectionFailedUnwrap(t *testing.T) {
	cause := errors.New("proj_create_crs_to_crs failed")
	err := &ReprojectionFailed{Src: "EPSG:4326", Dst: "EPSG:3857", Cause: cause}

	var target *ReprojectionFailed
	if !errors.As(err, &target) {
		t.Fatalf("expected errors.As to match *ReprojectionFailed")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected unwrap to reach cause")
	}
}

func TestProcessExceptionCarriesCause(t *testing.T) {
	cause := errors.New("division by zero")
	err := &ProcessException{TaskID: "tile_task_4-2-3", Cause: cause}

	if !errors.Is(err, cause) {
		t.Fatalf("ProcessException must unwrap to its cause")
	}
}

func TestDistinctKindsAreNotConfusable(t *testing.T) {
	var nodata error = &NodataTile{Reason: "outside process area"}
	var cancelled error = &Cancelled{TaskID: "t1"}

	var nd *NodataTile
	if errors.As(cancelled, &nd) {
		t.Fatalf("Cancelled must not match NodataTile")
	}
	var c *Cancelled
	if errors.As(nodata, &c) {
		t.Fatalf("NodataTile must not match Cancelled")
	}
}
