package geo

import (
	"errors"
	"math"
	"strings"
	"testing"

	"transport-route-service/internal/domain"
)

var googleSample = []domain.GeoPoint{
	{Lat: 38.5, Lon: -120.2},
	{Lat: 40.7, Lon: -120.95},
	{Lat: 43.252, Lon: -126.453},
}

const googleSampleEncoded = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestEncodeKnownVector(t *testing.T) {
	if got := Encode(googleSample); got != googleSampleEncoded {
		t.Fatalf("Encode = %q, want %q", got, googleSampleEncoded)
	}
}

func TestDecodeKnownVector(t *testing.T) {
	got, err := Decode(googleSampleEncoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertPointsClose(t, got, googleSample, 1e-9)
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no points, got %d", len(got))
	}
	if Encode(nil) != "" {
		t.Fatal("encoding no points must yield an empty string")
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := map[string]string{
		"unterminated continuation": "_p~iF~ps|",
		"latitude only":             "_p~iF",
		"byte below alphabet":       "_p~iF ps|U",
		"byte above alphabet":       "_p~iF\x7fps|U",
		"overflow":                  "~~~~~~~~~~~~~~~~~~~~?",
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(in)
			if !errors.Is(err, domain.ErrMalformedGeometry) {
				t.Fatalf("err = %v, want ErrMalformedGeometry", err)
			}
		})
	}
}

func TestDecodeOutOfRange(t *testing.T) {
	// Three 60 degree latitude steps walk past the pole.
	in := strings.Repeat(Encode([]domain.GeoPoint{{Lat: 60}}), 3)

	_, err := Decode(in)
	if !errors.Is(err, domain.ErrMalformedGeometry) {
		t.Fatalf("err = %v, want ErrMalformedGeometry", err)
	}
	if errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("decode error must not classify as an invalid request: %v", err)
	}

	if _, err := Decode(Encode([]domain.GeoPoint{{Lat: 90, Lon: -180}})); err != nil {
		t.Fatalf("boundary point rejected: %v", err)
	}
}

func FuzzPolylineRoundTrip(f *testing.F) {
	f.Add(48.8566, 2.3522, 45.7640, 4.8357)
	f.Add(-90.0, -180.0, 90.0, 180.0)
	f.Add(0.0, 0.0, 0.0, 0.0)

	f.Fuzz(func(t *testing.T, lat1, lon1, lat2, lon2 float64) {
		in := []domain.GeoPoint{
			{Lat: clamp(lat1, 90), Lon: clamp(lon1, 180)},
			{Lat: clamp(lat2, 90), Lon: clamp(lon2, 180)},
			{Lat: clamp(lat1+lat2, 90), Lon: clamp(lon1-lon2, 180)},
		}

		out, err := Decode(Encode(in))
		if err != nil {
			t.Fatalf("round trip failed: %v", err)
		}
		assertPointsClose(t, out, in, 1.5e-5)
	})
}

// clamp folds arbitrary fuzz input into [-limit, limit].
func clamp(v, limit float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Mod(v, limit)
}

func assertPointsClose(t *testing.T, got, want []domain.GeoPoint, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i].Lat-want[i].Lat) > tol || math.Abs(got[i].Lon-want[i].Lon) > tol {
			t.Fatalf("point %d = %v, want %v (tol %g)", i, got[i], want[i], tol)
		}
	}
}
