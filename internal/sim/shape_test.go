package sim

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/san-kum/dropsim/internal/physics"
)

func TestShapeSpecValidate(t *testing.T) {
	tests := []struct {
		name  string
		spec  ShapeSpec
		field string
	}{
		{"sphere ok", Sphere(0.5), ""},
		{"box ok", Box(1, 2, 3), ""},
		{"zero radius", Sphere(0), "radius"},
		{"zero width", Box(0, 1, 1), "width"},
		{"zero height", Box(1, 0, 1), "height"},
		{"zero depth", Box(1, 1, 0), "depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, cfgErr.Field)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected message to name %s, got %q", tt.field, err.Error())
			}
		})
	}
}

func TestShapeSpecPhysics(t *testing.T) {
	box, ok := Box(1, 2, 4).shape().(*physics.Box)
	if !ok {
		t.Fatal("expected box shape")
	}
	if box.HalfExtents[0] != 0.5 || box.HalfExtents[1] != 1 || box.HalfExtents[2] != 2 {
		t.Errorf("unexpected half extents %v", box.HalfExtents)
	}
	sphere, ok := Sphere(0.3).shape().(*physics.Sphere)
	if !ok || sphere.Radius != 0.3 {
		t.Errorf("unexpected sphere %+v", sphere)
	}
}

func TestRandomDraws(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		s := RandomSphere(rng, 0.5)
		if err := s.Validate(); err != nil {
			t.Fatalf("random sphere rejected: %v", err)
		}
		if s.Radius > 0.5 {
			t.Errorf("radius %f above max", s.Radius)
		}
		b := RandomBox(rng, 1)
		if err := b.Validate(); err != nil {
			t.Fatalf("random box rejected: %v", err)
		}
		p := RandomPosition(rng, 3, 3)
		if p[1] != 3 {
			t.Errorf("expected height 3, got %f", p[1])
		}
		if p[0] < -1.5 || p[0] >= 1.5 || p[2] < -1.5 || p[2] >= 1.5 {
			t.Errorf("position %v outside spread", p)
		}
	}
}

func TestDrawNudgesZero(t *testing.T) {
	rng := rand.New(zeroSource{})
	if s := RandomSphere(rng, 0.5); s.Radius != MinDimension {
		t.Errorf("expected radius %f, got %f", MinDimension, s.Radius)
	}
}

type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}
