package factor

// Multiply folds the pointwise product over factors from left to right
func Multiply(factors []*Factor) (*Factor, error) {
	if len(factors) == 0 {
		return nil, ErrNoFactors
	}
	result := factors[0]
	for _, f := range factors[1:] {
		result = result.Product(f)
	}
	return result, nil
}

// Eliminate multiplies every factor mentioning name, sums name out of the
// product and returns it together with the untouched factors. The list is
// returned as is when no factor mentions name.
func Eliminate(factors []*Factor, name string) []*Factor {
	var mentioning, rest []*Factor
	for _, f := range factors {
		if f.Contains(name) {
			mentioning = append(mentioning, f)
		} else {
			rest = append(rest, f)
		}
	}
	if len(mentioning) == 0 {
		return factors
	}

	product, _ := Multiply(mentioning)
	return append(rest, product.SumOut(name))
}

// MaxSize returns the largest cell count among factors
func MaxSize(factors []*Factor) int {
	largest := 0
	for _, f := range factors {
		if f.Size() > largest {
			largest = f.Size()
		}
	}
	return largest
}
