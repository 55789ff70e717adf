package utils

// Reduce left-folds f over s starting from initializer.
func Reduce[S ~[]E, E any, A any](s S, initializer A, f func(A, E) A) A {
	acc := initializer
	for _, item := range s {
		acc = f(acc, item)
	}
	return acc
}
