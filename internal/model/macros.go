package model

import "fmt"

// Macros represents nutrition totals for a meal or a day.
type Macros struct {
	Calories int `json:"kcal"`
	ProteinG int `json:"protein_g"`
	CarbsG   int `json:"carbs_g"`
	FatG     int `json:"fat_g"`
}

// Add returns m + other.
func (m Macros) Add(other Macros) Macros {
	return Macros{
		Calories: m.Calories + other.Calories,
		ProteinG: m.ProteinG + other.ProteinG,
		CarbsG:   m.CarbsG + other.CarbsG,
		FatG:     m.FatG + other.FatG,
	}
}

// Neg returns the negated macros, used for undo deltas.
func (m Macros) Neg() Macros {
	return Macros{
		Calories: -m.Calories,
		ProteinG: -m.ProteinG,
		CarbsG:   -m.CarbsG,
		FatG:     -m.FatG,
	}
}

// Scale returns m multiplied by qty.
func (m Macros) Scale(qty int) Macros {
	return Macros{
		Calories: m.Calories * qty,
		ProteinG: m.ProteinG * qty,
		CarbsG:   m.CarbsG * qty,
		FatG:     m.FatG * qty,
	}
}

// IsZero reports whether every metric is zero.
func (m Macros) IsZero() bool {
	return m.Calories == 0 && m.ProteinG == 0 && m.CarbsG == 0 && m.FatG == 0
}

// String renders the reply-friendly single line form.
func (m Macros) String() string {
	return fmt.Sprintf("%d kcal, P %dg, C %dg, F %dg", m.Calories, m.ProteinG, m.CarbsG, m.FatG)
}

// FoodItem is one item returned by the nutrition lookup collaborator.
type FoodItem struct {
	Name   string  `json:"name"`
	Qty    float64 `json:"qty"`
	Unit   string  `json:"unit"`
	Macros Macros  `json:"macros"`
}
