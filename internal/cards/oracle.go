package cards

// Oracle decides set validity. Implementations must be pure: the same inputs
// always produce the same answer.
type Oracle interface {
	// IsValidSet reports whether the three cards form a set.
	IsValidSet(a, b, c Card) bool

	// FindSets returns up to limit sets found in pool, in pool order.
	// A limit <= 0 returns every set.
	FindSets(pool []Card, limit int) [][3]Card
}

// FeatureOracle implements Oracle for cards whose features are the
// base-featureSize digits of their identifier.
type FeatureOracle struct {
	featureCount int // Number of features per card
	featureSize  int // Number of values each feature can take
}

// NewFeatureOracle creates an oracle for the given card geometry.
// The classic game uses NewFeatureOracle(4, 3).
func NewFeatureOracle(featureCount, featureSize int) *FeatureOracle {
	return &FeatureOracle{
		featureCount: featureCount,
		featureSize:  featureSize,
	}
}

// Features decodes a card into its feature values, least significant first.
func (o *FeatureOracle) Features(c Card) []int {
	out := make([]int, o.featureCount)
	v := int(c)
	for i := range out {
		out[i] = v % o.featureSize
		v /= o.featureSize
	}
	return out
}

// IsValidSet reports whether every feature is all-same or all-different
// across the three cards. Repeated cards never form a set.
func (o *FeatureOracle) IsValidSet(a, b, c Card) bool {
	if a == b || b == c || a == c {
		return false
	}
	va, vb, vc := int(a), int(b), int(c)
	for i := 0; i < o.featureCount; i++ {
		fa, fb, fc := va%o.featureSize, vb%o.featureSize, vc%o.featureSize
		allSame := fa == fb && fb == fc
		allDiff := fa != fb && fb != fc && fa != fc
		if !allSame && !allDiff {
			return false
		}
		va, vb, vc = va/o.featureSize, vb/o.featureSize, vc/o.featureSize
	}
	return true
}

// FindSets scans every triple of pool in index order and collects sets
// until limit is reached.
func (o *FeatureOracle) FindSets(pool []Card, limit int) [][3]Card {
	var found [][3]Card
	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			for k := j + 1; k < len(pool); k++ {
				if !o.IsValidSet(pool[i], pool[j], pool[k]) {
					continue
				}
				found = append(found, [3]Card{pool[i], pool[j], pool[k]})
				if limit > 0 && len(found) >= limit {
					return found
				}
			}
		}
	}
	return found
}
