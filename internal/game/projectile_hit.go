package game

// HitCandidate is a tank eligible to be hit this tick, supplied by the
// spatial grid's wrap-aware neighbor query.
type HitCandidate struct {
	ID      string
	Faction Faction
	Theta   float64
	Phi     float64
	Radius  float64
	Alive   bool
}

// HitResult records one projectile resolving against one tank.
type HitResult struct {
	ProjectileID string
	OwnerID      string
	TargetID     string
	Damage       float64
	Lethal       bool
}

// ResolveProjectileHits tests every live projectile against its candidate
// set (already narrowed by the spatial grid to the handful of tanks in
// neighboring cells) and returns the hits to apply, plus the surviving
// projectiles. A projectile is consumed by its first hit; friendly fire is
// excluded.
func ResolveProjectileHits(projectiles []*Projectile, candidatesFor func(pr *Projectile) []HitCandidate, worldRadius float64, applyDamage func(targetID string, dmg float64) bool) ([]HitResult, []*Projectile) {
	var results []HitResult
	survivors := make([]*Projectile, 0, len(projectiles))

	for _, pr := range projectiles {
		hit := false
		for _, c := range candidatesFor(pr) {
			if !c.Alive || c.Faction == pr.Faction || c.ID == pr.OwnerID {
				continue
			}
			if !pr.HitTest(c.Theta, c.Phi, c.Radius, worldRadius) {
				continue
			}
			lethal := applyDamage(c.ID, pr.Damage)
			results = append(results, HitResult{
				ProjectileID: pr.ID,
				OwnerID:      pr.OwnerID,
				TargetID:     c.ID,
				Damage:       pr.Damage,
				Lethal:       lethal,
			})
			hit = true
			break
		}
		if !hit {
			survivors = append(survivors, pr)
		}
	}

	return results, survivors
}
