package game

import (
	"math"
	"sync"
)

// EconomyConfig mirrors the subset of config.EconomyConfig the engine needs,
// duplicated here so internal/game does not import internal/config directly.
type EconomyConfig struct {
	DamageValue   float64
	KillBonus     int
	CommanderMult float64
	TicCrypto     int
	HoldingCrypto int
	BaseCost      float64
	Growth        float64
	DebtFloor     int
	FireBaseCost  int
	MaxTipAmount  int
}

// Ledger is one tank's crypto balance and level progression.
type Ledger struct {
	TankID  string
	Balance int
	Level   int
	IsCmdr  bool
}

// EconomyEngine tracks every tank's crypto balance and applies the award
// rules for damage, kills, tic contribution, cluster holding and tips.
// Mutex-guarded map-of-structs, the same shape as the teacher's team
// registry, since balances are touched from both the tick loop and the
// websocket command handlers.
type EconomyEngine struct {
	mu      sync.Mutex
	cfg     EconomyConfig
	ledgers map[string]*Ledger
}

// NewEconomyEngine constructs an economy engine with the given tuning.
func NewEconomyEngine(cfg EconomyConfig) *EconomyEngine {
	return &EconomyEngine{
		cfg:     cfg,
		ledgers: make(map[string]*Ledger),
	}
}

// Register creates a ledger entry for a newly joined tank, starting at a
// balance of zero.
func (e *EconomyEngine) Register(tankID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.ledgers[tankID]; !ok {
		e.ledgers[tankID] = &Ledger{TankID: tankID}
	}
}

// Remove drops a tank's ledger when it disconnects permanently.
func (e *EconomyEngine) Remove(tankID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.ledgers, tankID)
}

// SetCommander flags whether a tank currently holds commander rank, which
// multiplies the crypto it earns from damage and kills.
func (e *EconomyEngine) SetCommander(tankID string, isCmdr bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.ledgers[tankID]; ok {
		l.IsCmdr = isCmdr
	}
}

func (e *EconomyEngine) credit(tankID string, amount int) int {
	l, ok := e.ledgers[tankID]
	if !ok {
		l = &Ledger{TankID: tankID}
		e.ledgers[tankID] = l
	}
	l.Balance += amount
	if l.Balance < e.cfg.DebtFloor {
		l.Balance = e.cfg.DebtFloor
	}
	l.Level = levelForBalance(l.Balance, e.cfg.BaseCost, e.cfg.Growth)
	return l.Balance
}

// AwardDamage credits crypto for damage dealt, applying the commander
// multiplier when the attacker holds commander rank.
func (e *EconomyEngine) AwardDamage(attackerID string, damage float64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	amount := int(math.Round(damage * e.cfg.DamageValue))
	if l, ok := e.ledgers[attackerID]; ok && l.IsCmdr {
		amount = int(math.Round(float64(amount) * e.cfg.CommanderMult))
	}
	return e.credit(attackerID, amount)
}

// AwardKill credits the flat kill bonus, applying the commander multiplier.
func (e *EconomyEngine) AwardKill(attackerID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	amount := e.cfg.KillBonus
	if l, ok := e.ledgers[attackerID]; ok && l.IsCmdr {
		amount = int(math.Round(float64(amount) * e.cfg.CommanderMult))
	}
	return e.credit(attackerID, amount)
}

// AwardTic credits a tank for moving a cluster's tic counter this second.
func (e *EconomyEngine) AwardTic(tankID string, amount int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.credit(tankID, amount)
}

// AwardHolding credits every tank in the given faction's commander chain
// for sustained cluster ownership; called once per holding interval by the
// game room, not once per tick.
func (e *EconomyEngine) AwardHolding(tankID string, clustersHeld int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.credit(tankID, e.cfg.HoldingCrypto*clustersHeld)
}

// Tip transfers crypto between two tanks, capped at MaxTipAmount and
// refused if the sender cannot cover it without going below the debt
// floor. Returns false if the tip could not be applied.
func (e *EconomyEngine) Tip(fromID, toID string, amount int) bool {
	if amount <= 0 || amount > e.cfg.MaxTipAmount {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	from, ok := e.ledgers[fromID]
	if !ok || from.Balance-amount < e.cfg.DebtFloor {
		return false
	}
	from.Balance -= amount
	from.Level = levelForBalance(from.Balance, e.cfg.BaseCost, e.cfg.Growth)
	e.credit(toID, amount)
	return true
}

// FireCost returns the crypto cost of firing at the given charge power
// (0..10): base cost plus one crypto per whole unit of charge.
func (e *EconomyEngine) FireCost(power float64) int {
	if power < 0 {
		power = 0
	}
	return e.cfg.FireBaseCost + int(math.Ceil(power))
}

// CanAffordFire reports whether the tank has enough crypto to pay cost,
// regardless of debt floor (firing is allowed to run a tank into debt up
// to the floor).
func (e *EconomyEngine) CanAffordFire(tankID string, cost int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.ledgers[tankID]
	if !ok {
		return e.cfg.DebtFloor+cost >= 0
	}
	return l.Balance-cost >= e.cfg.DebtFloor
}

// ChargeFireCost debits the given cost for firing a shot.
func (e *EconomyEngine) ChargeFireCost(tankID string, cost int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.credit(tankID, -cost)
}

// Balance returns the current balance and level for a tank.
func (e *EconomyEngine) Balance(tankID string) (balance, level int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.ledgers[tankID]
	if !ok {
		return 0, 0
	}
	return l.Balance, l.Level
}

// TicCryptoForCluster returns the base tic award, independent of cluster
// size; kept as a method so capture.go does not need to read EconomyConfig
// directly.
func (e *EconomyEngine) TicCryptoForCluster(tileCount int) int {
	return e.cfg.TicCrypto
}

// levelForBalance applies the exponential level curve: level L requires
// balance >= baseCost * growth^L, floored at level 0 for non-positive
// balances.
func levelForBalance(balance int, baseCost, growth float64) int {
	if balance <= 0 || baseCost <= 0 {
		return 0
	}
	level := int(math.Log(float64(balance)/baseCost)/math.Log(growth)) + 1
	if level < 0 {
		level = 0
	}
	for level > 0 && float64(balance) < baseCost*math.Pow(growth, float64(level)) {
		level--
	}
	return level
}
