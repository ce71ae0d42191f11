package skin

// Levels is the number of nested classifiers in a Bank.
const Levels = 6

// levelValues maps a bank level to the gray value of the confidence map.
var levelValues = [Levels + 1]uint8{0, 100, 130, 160, 190, 220, 250}

// LevelValue returns the confidence byte for level n (0 for non-skin).
func LevelValue(n int) uint8 {
	if n < 0 {
		n = 0
	}
	if n > Levels {
		n = Levels
	}
	return levelValues[n]
}

// LevelSensitivities returns the sensitivities of the bank levels for S,
// innermost first. The last level always equals S.
func LevelSensitivities(s float64) [Levels]float64 {
	base := 50.0
	if s < base {
		base = s
	}
	var out [Levels]float64
	for k := 1; k <= Levels; k++ {
		out[k-1] = base + float64(k)*(s-base)/Levels
	}
	return out
}

// Bank is a graded set of classifiers sharing one colour fit. Its outermost
// level behaves exactly like a single Classifier trained at S.
type Bank struct {
	sensitivity float64
	levels      [Levels]*Classifier
}

// NewBank creates an untrained bank at sensitivity s.
func NewBank(s float64) *Bank {
	b := &Bank{sensitivity: s}
	sens := LevelSensitivities(s)
	for i := range b.levels {
		b.levels[i] = NewClassifier(sens[i])
	}
	return b
}

// Sensitivity returns S.
func (b *Bank) Sensitivity() float64 {
	return b.sensitivity
}

// SetSensitivity changes S and invalidates the bank when it differs.
func (b *Bank) SetSensitivity(s float64) {
	if s == b.sensitivity {
		return
	}
	b.sensitivity = s
	sens := LevelSensitivities(s)
	for i, c := range b.levels {
		c.SetSensitivity(sens[i])
		c.Invalidate()
	}
}

// Trained reports whether every level is trained.
func (b *Bank) Trained() bool {
	for _, c := range b.levels {
		if !c.Trained() {
			return false
		}
	}
	return true
}

// Invalidate discards training on every level.
func (b *Bank) Invalidate() {
	for _, c := range b.levels {
		c.Invalidate()
	}
}

// Train fits the colour model once and derives all levels from it.
func (b *Bank) Train(samples []Color, sensitivity, weight, epsilon float64) bool {
	b.sensitivity = sensitivity
	sens := LevelSensitivities(sensitivity)
	for i, c := range b.levels {
		c.Invalidate()
		c.sensitivity = sens[i]
	}
	if sensitivity <= 0 {
		return false
	}

	m, err := fit(samples, weight, epsilon)
	if err != nil {
		return false
	}
	for _, c := range b.levels {
		c.apply(m, samples)
	}
	return true
}

// Classify reports whether col is accepted by the outermost level.
func (b *Bank) Classify(col Color) bool {
	return b.levels[Levels-1].Classify(col)
}

// Level returns how many levels, counted from the outermost inwards, accept col.
func (b *Bank) Level(col Color) int {
	n := 0
	for k := Levels - 1; k >= 0; k-- {
		if !b.levels[k].Classify(col) {
			break
		}
		n++
	}
	return n
}
