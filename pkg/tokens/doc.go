// Package tokens implements the containment test that drives the phrase
// hierarchy.
//
// # Overview
//
// A phrase is identified by a sorted sequence of discrete tokens. One phrase
// is more general than another when its tokens form a strict sub-multiset of
// the other's tokens: "red shoes" (red, shoes) is more general than
// "cheap red shoes" (cheap, red, shoes).
//
// [Contains] answers that question for two sorted sequences with a single
// two-pointer merge, and [Compare] classifies a pair into one of the four
// [Relation] values:
//
//	tokens.Compare([]int{1}, []int{1, 2})    // RelationContains
//	tokens.Compare([]int{1, 2}, []int{1})    // RelationContained
//	tokens.Compare([]int{1, 2}, []int{1, 2}) // RelationEqual
//	tokens.Compare([]int{1, 3}, []int{1, 2}) // RelationUnrelated
//
// # Sortedness
//
// Every function in this package assumes sorted input. The package never
// sorts implicitly; ingestion code calls [Sorted] once when a phrase enters
// the system and [IsSorted] can be used to validate external data.
package tokens
