package skin

import "testing"

func TestLevelSensitivities(t *testing.T) {
	tests := []struct {
		s     float64
		first float64
		last  float64
	}{
		{100, 50 + 50.0/6, 100},
		{170, 70, 170},
		{50, 50, 50},
		{20, 20, 20},
	}

	for _, tt := range tests {
		got := LevelSensitivities(tt.s)
		if got[0] != tt.first || got[Levels-1] != tt.last {
			t.Errorf("LevelSensitivities(%v) = %v, want first %v last %v", tt.s, got, tt.first, tt.last)
		}
		for i := 1; i < Levels; i++ {
			if got[i] < got[i-1] {
				t.Errorf("LevelSensitivities(%v) not ascending: %v", tt.s, got)
			}
		}
	}
}

func TestBank_OutermostMatchesClassifier(t *testing.T) {
	samples := skinTones()
	bank := NewBank(DefaultSensitivity)
	if !bank.Train(samples, DefaultSensitivity, DefaultWeight, DefaultEpsilon) {
		t.Fatal("Bank.Train() failed")
	}
	single := NewClassifier(DefaultSensitivity)
	single.Train(samples, DefaultSensitivity, DefaultWeight, DefaultEpsilon)

	for r := 0; r < 256; r += 4 {
		for g := 0; g < 256; g += 4 {
			for b := 0; b < 256; b += 4 {
				col := Color{R: uint8(r), G: uint8(g), B: uint8(b)}
				if bank.Classify(col) != single.Classify(col) {
					t.Fatalf("bank and classifier disagree on %v", col)
				}
			}
		}
	}
}

func TestBank_Level(t *testing.T) {
	bank := NewBank(DefaultSensitivity)
	if got := bank.Level(Color{R: 200, G: 140, B: 110}); got != 0 {
		t.Errorf("untrained Level() = %d, want 0", got)
	}

	samples := skinTones()
	bank.Train(samples, DefaultSensitivity, DefaultWeight, DefaultEpsilon)

	for _, col := range samples {
		if got := bank.Level(col); got != Levels {
			t.Fatalf("Level(%v) = %d, want %d for a training colour", col, got, Levels)
		}
	}
	if got := bank.Level(Color{B: 255}); got != 0 {
		t.Errorf("Level(blue) = %d, want 0", got)
	}
}

func TestBank_SetSensitivity(t *testing.T) {
	bank := NewBank(DefaultSensitivity)
	bank.Train(skinTones(), DefaultSensitivity, DefaultWeight, DefaultEpsilon)
	if !bank.Trained() {
		t.Fatal("bank not trained")
	}

	bank.SetSensitivity(DefaultSensitivity)
	if !bank.Trained() {
		t.Error("same sensitivity should keep training")
	}
	bank.SetSensitivity(120)
	if bank.Trained() {
		t.Error("new sensitivity should invalidate the bank")
	}
	if bank.Sensitivity() != 120 {
		t.Errorf("Sensitivity() = %v, want 120", bank.Sensitivity())
	}
}

func TestLevelValue(t *testing.T) {
	if LevelValue(0) != 0 || LevelValue(Levels) != 250 || LevelValue(99) != 250 || LevelValue(-1) != 0 {
		t.Error("LevelValue() out of range handling")
	}
	for n := 1; n <= Levels; n++ {
		if LevelValue(n) <= LevelValue(n-1) {
			t.Errorf("LevelValue(%d) not increasing", n)
		}
	}
}
