package game

import "testing"

func testEconomyConfig() EconomyConfig {
	return EconomyConfig{
		DamageValue:   1.0,
		KillBonus:     50,
		CommanderMult: 10.0,
		TicCrypto:     1,
		HoldingCrypto: 5,
		BaseCost:      100,
		Growth:        1.35,
		DebtFloor:     -500,
		FireBaseCost:  5,
		MaxTipAmount:  5000,
	}
}

func TestFireCostScalesWithChargePower(t *testing.T) {
	e := NewEconomyEngine(testEconomyConfig())
	cases := []struct {
		power float64
		want  int
	}{
		{0, 5},
		{0.4, 6},
		{1, 6},
		{9.1, 15},
		{10, 15},
		{-3, 5},
	}
	for _, c := range cases {
		if got := e.FireCost(c.power); got != c.want {
			t.Errorf("FireCost(%v) = %d, want %d", c.power, got, c.want)
		}
	}
}

func TestCanAffordFireRespectsDebtFloor(t *testing.T) {
	e := NewEconomyEngine(testEconomyConfig())
	e.Register("t1")
	if !e.CanAffordFire("t1", 5) {
		t.Error("a tank at balance 0 should afford a cost within the debt floor")
	}
	e.ChargeFireCost("t1", 500)
	if bal, _ := e.Balance("t1"); bal != -500 {
		t.Fatalf("balance after charging into debt floor = %d, want -500", bal)
	}
	if e.CanAffordFire("t1", 5) {
		t.Error("a tank already at the debt floor should not afford another shot")
	}
}

func TestAwardDamageAppliesCommanderMultiplier(t *testing.T) {
	e := NewEconomyEngine(testEconomyConfig())
	e.Register("t1")
	e.SetCommander("t1", true)
	bal := e.AwardDamage("t1", 20)
	if bal != 200 {
		t.Errorf("commander damage award = %d, want 200 (20 * 1.0 * 10x)", bal)
	}
}

func TestTipRefusesBelowDebtFloor(t *testing.T) {
	e := NewEconomyEngine(testEconomyConfig())
	e.Register("from")
	e.Register("to")
	if e.Tip("from", "to", 600) {
		t.Error("tip exceeding debt floor headroom should be refused")
	}
	if bal, _ := e.Balance("to"); bal != 0 {
		t.Errorf("recipient balance after refused tip = %d, want 0", bal)
	}
}

func TestTipRejectsOverMaxAmount(t *testing.T) {
	e := NewEconomyEngine(testEconomyConfig())
	e.Register("from")
	e.AwardDamage("from", 10000)
	if e.Tip("from", "to", 5001) {
		t.Error("tip over MaxTipAmount should be rejected")
	}
}
