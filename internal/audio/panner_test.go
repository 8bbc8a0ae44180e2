package audio

import (
	"math"
	"testing"

	"github.com/voiceflowcms/nav-gateway/internal/world"
)

func TestPanner_CenterEqualPower(t *testing.T) {
	left, right := NewPanner(world.Vector3{Y: 1}).Gains()

	if math.Abs(left-right) > 0.0001 {
		t.Errorf("Expected equal gains dead ahead, got L=%f R=%f", left, right)
	}
	want := math.Sqrt2 / 2
	if math.Abs(left-want) > 0.0001 {
		t.Errorf("Expected equal-power gain %f, got %f", want, left)
	}
}

func TestPanner_RightSourcePansRight(t *testing.T) {
	left, right := NewPanner(world.Vector3{X: 1}).Gains()
	if right <= left {
		t.Errorf("Expected right gain to dominate for a source at +X, got L=%f R=%f", left, right)
	}

	left, right = NewPanner(world.Vector3{X: -1}).Gains()
	if left <= right {
		t.Errorf("Expected left gain to dominate for a source at -X, got L=%f R=%f", left, right)
	}
}

func TestPanner_DistanceAttenuation(t *testing.T) {
	near, _ := NewPanner(world.Vector3{Y: 2}).Gains()
	far, _ := NewPanner(world.Vector3{Y: 10}).Gains()

	if far >= near {
		t.Errorf("Expected gain to fall with distance, near=%f far=%f", near, far)
	}
}

func TestPanner_WithinReferenceDistanceFullGain(t *testing.T) {
	left, right := NewPanner(world.Vector3{Y: 0.5}).Gains()
	total := left*left + right*right
	if math.Abs(total-1.0) > 0.0001 {
		t.Errorf("Expected unit power inside reference distance, got %f", total)
	}
}

func TestPanner_DirectlyAbovePansCenter(t *testing.T) {
	left, right := NewPanner(world.Vector3{Z: 3}).Gains()
	if math.Abs(left-right) > 0.0001 {
		t.Errorf("Expected centered pan for overhead source, got L=%f R=%f", left, right)
	}
	if left >= 0.707107 {
		t.Errorf("Expected overhead source attenuated by distance, got %f", left)
	}
}
