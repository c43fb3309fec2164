// Package scoring turns relation records into role-aware scores and ranks a
// player's pool by them.
package scoring

import (
	"math"

	"bestpick/internal/relation"
)

// points scales a score from (-0.5, 0.5) to an integer point range
const points = 100

// scale[my][their] is how strongly the counterpart's lane affects my lane.
// Rows and columns follow relation.Roles.
var scale = [5][5]float64{
	//   top   jungle middle bottom support
	{1.00, 0.50, 0.33, 0.25, 0.25}, // top
	{0.35, 1.00, 0.50, 0.25, 0.35}, // jungle
	{0.10, 0.35, 1.00, 0.10, 0.25}, // middle
	{0.10, 0.50, 0.33, 1.00, 1.00}, // bottom
	{0.30, 0.65, 0.50, 1.00, 1.00}, // support
}

// Scale returns the weight of a relation between my role and the counterpart's.
// Invalid roles weigh 0.
func Scale(my, their relation.Role) float64 {
	i, j := my.Index(), their.Index()
	if i < 0 || j < 0 {
		return 0
	}
	return scale[i][j]
}

// Sigmoid is the logistic function
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Score converts a delta into a zero-centered integer score weighted by the
// role pair. A delta of 0 always scores 0.
func Score(my, their relation.Role, delta float64) int {
	s := Scale(my, their)
	return int(math.Round((Sigmoid(delta) - 0.5) * s * points))
}
