// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Package name implements the HFS+ catalog's Unicode-aware name
// ordering and name hash (§4.7, C7 of the design): canonical (NFD)
// decomposition, optional case folding, codepoint-order comparison, and
// the 32-bit name hash used to prune candidate keys before an expensive
// full comparison.
//
// Grounded on libfshfs's libfshfs_name.h / tests/fshfs_test_name.c
// (the teacher implements only classic HFS, which has no Unicode
// comparator at all — name.go is the part of this library with no
// direct teacher analogue, so it leans on the original C source and the
// wider pack's golang.org/x/text usage instead).
package name

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var foldCaser = cases.Fold()

// Decompose applies HFS+ canonical (NFD-style) decomposition to s.
func Decompose(s string) string {
	return norm.NFD.String(s)
}

// Fold applies Unicode case folding to s. Folding is idempotent (P5):
// Fold(Fold(s)) == Fold(s).
func Fold(s string) string {
	return foldCaser.String(s)
}

func normalize(s string, caseFold bool) string {
	d := Decompose(s)
	if caseFold {
		d = Fold(d)
	}
	return d
}
