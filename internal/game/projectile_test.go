package game

import (
	"math"
	"testing"
)

func TestNewProjectileFullChargeScalesSpeedRangeAndDamage(t *testing.T) {
	base := NewProjectile("p1", "owner", FactionRust, 0, math.Pi/2, 0, 20, 3.0, 0, 0.9, 60)
	full := NewProjectile("p2", "owner", FactionRust, 0, math.Pi/2, 0, 20, 3.0, 1, 0.9, 60)

	if full.AngularSpeed != base.AngularSpeed*chargeSpeedMult {
		t.Errorf("full-charge AngularSpeed = %v, want %v", full.AngularSpeed, base.AngularSpeed*chargeSpeedMult)
	}
	wantTicks := int(math.Round(60 * chargeRangeMult))
	if full.MaxTicks != wantTicks {
		t.Errorf("full-charge MaxTicks = %d, want %d", full.MaxTicks, wantTicks)
	}
	if full.Damage != 60 {
		t.Errorf("full-charge Damage = %v, want 60 (20 * maxChargeMult 3.0)", full.Damage)
	}
	if base.Damage != 20 {
		t.Errorf("unchanged Damage = %v, want 20", base.Damage)
	}
}

func TestNewProjectileHalfChargeInterpolates(t *testing.T) {
	half := NewProjectile("p3", "owner", FactionRust, 0, math.Pi/2, 0, 20, 3.0, 0.5, 1.0, 60)
	wantSpeed := 1.0 * (1 + 0.5*(chargeSpeedMult-1))
	if math.Abs(half.AngularSpeed-wantSpeed) > 1e-9 {
		t.Errorf("half-charge AngularSpeed = %v, want %v", half.AngularSpeed, wantSpeed)
	}
	wantDamage := 20 * (1 + 0.5*(3.0-1))
	if math.Abs(half.Damage-wantDamage) > 1e-9 {
		t.Errorf("half-charge Damage = %v, want %v", half.Damage, wantDamage)
	}
}

func TestNewProjectileClampsOutOfRangeChargeFraction(t *testing.T) {
	over := NewProjectile("p4", "owner", FactionRust, 0, math.Pi/2, 0, 20, 3.0, 5, 1.0, 60)
	full := NewProjectile("p5", "owner", FactionRust, 0, math.Pi/2, 0, 20, 3.0, 1, 1.0, 60)
	if over.Damage != full.Damage {
		t.Errorf("chargeFraction > 1 should clamp to full charge: got %v, want %v", over.Damage, full.Damage)
	}
	under := NewProjectile("p6", "owner", FactionRust, 0, math.Pi/2, 0, 20, 3.0, -2, 1.0, 60)
	unchargedNone := NewProjectile("p7", "owner", FactionRust, 0, math.Pi/2, 0, 20, 3.0, 0, 1.0, 60)
	if under.Damage != unchargedNone.Damage {
		t.Errorf("negative chargeFraction should clamp to zero: got %v, want %v", under.Damage, unchargedNone.Damage)
	}
}

func TestProjectileAdvanceExpiresAtMaxTicks(t *testing.T) {
	pr := NewProjectile("p8", "owner", FactionRust, 0, math.Pi/2, 0, 20, 1.0, 0, 1.0, 3)
	for i := 0; i < 3; i++ {
		if pr.Advance(1.0) {
			t.Fatalf("projectile expired early at tick %d", i)
		}
	}
	if !pr.Advance(1.0) {
		t.Fatal("projectile should expire once TicksAlive exceeds MaxTicks")
	}
}

func TestProjectileHitTestDetectsOverlapAlongTravel(t *testing.T) {
	pr := NewProjectile("p9", "owner", FactionRust, 0, math.Pi/2, 0, 20, 1.0, 0, 1.0, 60)
	if !pr.HitTest(0, math.Pi/2, 5, 1000) {
		t.Error("a target at the projectile's own position should register a hit")
	}
	if pr.HitTest(2.0, math.Pi/2, 5, 1000) {
		t.Error("a target far along theta should not register a hit")
	}
}
