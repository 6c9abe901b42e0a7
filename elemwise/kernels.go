// Copyright 2023 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package elemwise

import "math"

// Sin32 is the periodic benchmark kernel: single-precision sine.
func Sin32(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

// Sigmoid64 is the saturating benchmark kernel: the double-precision
// logistic function 1/(1+e^-x).
func Sigmoid64(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
