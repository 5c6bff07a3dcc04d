package object

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"marbles/internal/physics"
	"marbles/internal/vmath"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func vec3AlmostEqual(a, b vmath.Vec3, tol float64) bool {
	for i := 0; i < 3; i++ {
		if !almostEqual(a[i], b[i], tol) {
			return false
		}
	}
	return true
}

type recordingPainter struct {
	spheres []sphereCall
}

type sphereCall struct {
	pos       vmath.Vec3
	radius    float64
	color     Color
	shininess float64
}

func (p *recordingPainter) DrawSphere(pos vmath.Vec3, _ mgl64.Mat3, radius float64, c Color, shininess float64) {
	p.spheres = append(p.spheres, sphereCall{pos, radius, c, shininess})
}

func newObject(t *testing.T, w *physics.World, k Kind) *Object {
	t.Helper()
	o, err := New(w, k)
	if err != nil {
		t.Fatalf("New(%v): %v", k, err)
	}
	return o
}

func TestNewKinds(t *testing.T) {
	tests := []struct {
		kind   Kind
		radius float64
		color  Color
	}{
		{Marble, MarbleRadius, Color{0.8, 0.8, 0.8, 1}},
		{Tolley, TolleyRadius, Color{1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			w := physics.NewWorld()
			o := newObject(t, w, tt.kind)
			if o.Radius() != tt.radius {
				t.Errorf("Radius() = %v, want %v", o.Radius(), tt.radius)
			}
			if o.Color() != tt.color {
				t.Errorf("Color() = %v, want %v", o.Color(), tt.color)
			}
			if !o.IsDynamic() || !o.InPlay() || o.Destroyed() {
				t.Errorf("new object flags: dynamic=%v inPlay=%v destroyed=%v", o.IsDynamic(), o.InPlay(), o.Destroyed())
			}
			want := physics.SphereMass(massDensity, tt.radius/2).Mass
			if got := w.Mass(o.Body()); !almostEqual(got, want, 1e-12) {
				t.Errorf("mass = %v, want %v", got, want)
			}
		})
	}

	if _, err := New(physics.NewWorld(), Kind(7)); err == nil {
		t.Error("New with unknown kind succeeded")
	}
}

func TestDestroyedIsIdempotent(t *testing.T) {
	w := physics.NewWorld()
	o := newObject(t, w, Marble)
	o.SetPos(vmath.Vec3{1, 2, 3})
	o.Destroy()

	if !o.Destroyed() {
		t.Fatal("Destroyed() = false after Destroy")
	}
	if w.BodyCount() != 0 {
		t.Errorf("BodyCount() = %d after Destroy", w.BodyCount())
	}

	// none of these may panic or resurrect the body
	o.Destroy()
	o.SetPos(vmath.Vec3{4, 5, 6})
	o.SetVel(vmath.Vec3{1, 0, 0})
	o.AddForce(vmath.Vec3{1, 0, 0})
	o.AddTorque(vmath.Vec3{1, 0, 0})
	o.DisableBody()
	o.EnableGravity()
	o.Update()
	if err := o.SetRadius(2); err != nil {
		t.Errorf("SetRadius after destroy = %v", err)
	}

	if w.BodyCount() != 0 {
		t.Errorf("body resurrected: BodyCount() = %d", w.BodyCount())
	}
	if p := o.Pos(); p != (vmath.Vec3{4, 5, 6}) {
		t.Errorf("Pos() after destroy = %v, want cached (4,5,6)", p)
	}
	var p recordingPainter
	o.Draw(&p)
	if len(p.spheres) != 0 {
		t.Errorf("destroyed object drew %d spheres", len(p.spheres))
	}
}

func TestRingExit(t *testing.T) {
	tests := []struct {
		name       string
		kind       Kind
		pos        vmath.Vec3
		wantInPlay bool
		wantTorque float64 // per unit angular velocity
		wantForce  float64 // per unit linear velocity, x axis
		wantColor  Color
	}{
		{"marble inside", Marble, vmath.Vec3{3, MarbleRadius, 4}, true, -0.05, 0, Color{0.8, 0.8, 0.8, 1}},
		{"marble outside", Marble, vmath.Vec3{15, MarbleRadius, 15}, false, -0.1, 0, Color{0.8, 0, 0, 1}},
		{"tolley inside", Tolley, vmath.Vec3{0, TolleyRadius, 5}, true, -0.5, -1.5, Color{1, 1, 1, 1}},
		{"tolley outside", Tolley, vmath.Vec3{-20, TolleyRadius, 50}, true, -0.3, -3.0, Color{1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := physics.NewWorld()
			o := newObject(t, w, tt.kind)
			o.SetPos(tt.pos)
			_ = w.SetAngularVel(o.Body(), vmath.Vec3{1, 0, 0})
			o.SetVel(vmath.Vec3{1, 0, 0})

			o.Update()

			if o.InPlay() != tt.wantInPlay {
				t.Errorf("InPlay() = %v, want %v", o.InPlay(), tt.wantInPlay)
			}
			if got := w.Torque(o.Body()); !almostEqual(got[0], tt.wantTorque, 1e-12) {
				t.Errorf("damping torque = %v, want %v", got, tt.wantTorque)
			}
			if got := w.Force(o.Body()); !almostEqual(got[0], tt.wantForce, 1e-12) {
				t.Errorf("damping force = %v, want %v", got, tt.wantForce)
			}
			if o.Color() != tt.wantColor {
				t.Errorf("Color() = %v, want %v", o.Color(), tt.wantColor)
			}
		})
	}
}

func TestUpdateSkipsDampingInAir(t *testing.T) {
	w := physics.NewWorld()
	o := newObject(t, w, Tolley)
	o.SetPos(vmath.Vec3{0, 3, 0})
	o.SetVel(vmath.Vec3{2, 0, 0})
	o.Update()
	if f := w.Force(o.Body()); f != vmath.Zero {
		t.Errorf("airborne object damped: force = %v", f)
	}
}

func TestVelIsSquaredSpeed(t *testing.T) {
	w := physics.NewWorld()
	o := newObject(t, w, Marble)
	o.SetVel(vmath.Vec3{3, 0, 4})
	if got := o.Vel(); !almostEqual(got, 25, 1e-12) {
		t.Errorf("Vel() = %v, want 25", got)
	}
	if got := o.LinearVel(); got != (vmath.Vec3{3, 0, 4}) {
		t.Errorf("LinearVel() = %v", got)
	}
}

func TestDraw(t *testing.T) {
	w := physics.NewWorld()
	o := newObject(t, w, Marble)
	o.SetPos(vmath.Vec3{1, 0.5, -1})
	o.SetColor(0.1, 0.2, 0.3)

	var p recordingPainter
	o.Draw(&p)
	if len(p.spheres) != 1 {
		t.Fatalf("Draw made %d calls, want 1", len(p.spheres))
	}
	got := p.spheres[0]
	want := sphereCall{vmath.Vec3{1, 0.5, -1}, MarbleRadius, Color{0.1, 0.2, 0.3, 1}, Shininess}
	if got != want {
		t.Errorf("DrawSphere(%+v), want %+v", got, want)
	}
}

func TestSetRadiusRemasses(t *testing.T) {
	w := physics.NewWorld()
	o := newObject(t, w, Marble)
	if err := o.SetRadius(1); err != nil {
		t.Fatalf("SetRadius: %v", err)
	}
	want := physics.SphereMass(resizeDensity, 1).Mass
	if got := w.Mass(o.Body()); !almostEqual(got, want, 1e-9) {
		t.Errorf("mass after resize = %v, want %v", got, want)
	}
	if o.Size() != (vmath.Vec3{2, 2, 2}) {
		t.Errorf("Size() = %v", o.Size())
	}
	if err := o.SetRadius(0); err == nil {
		t.Error("SetRadius(0) succeeded")
	}
}

func TestBodyToggles(t *testing.T) {
	w := physics.NewWorld()
	o := newObject(t, w, Marble)

	o.DisableBody()
	if o.IsDynamic() || w.BodyEnabled(o.Body()) {
		t.Error("DisableBody left the object dynamic")
	}
	o.EnableBody()
	if !o.IsDynamic() || !w.BodyEnabled(o.Body()) {
		t.Error("EnableBody did not restore the object")
	}

	o.DisableGravity()
	if w.GravityMode(o.Body()) {
		t.Error("DisableGravity left gravity on")
	}
	o.EnableGravity()
	if !w.GravityMode(o.Body()) {
		t.Error("EnableGravity left gravity off")
	}
}
