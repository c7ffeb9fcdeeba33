package binding

import "strconv"

// indexOutcome classifies a property-style key against a list of a
// given length. notAnIndex and outOfRange are control outcomes, not
// errors: one tells the caller to defer the key to other property
// handling, the other to produce an empty result (reads) or report a
// bounds error (writes).
type indexOutcome int

const (
	indexOK indexOutcome = iota
	notAnIndex
	outOfRange
)

// lengthKey is the synthetic read-only property exposed on every list.
const lengthKey = "length"

// resolveIndex translates a property-style key into a bounds-checked
// offset. The length key never resolves to an offset. Keys that do not
// parse as base-10 integers are notAnIndex; negative or >= length
// parses are outOfRange.
func resolveIndex(key string, length int) (int, indexOutcome) {
	if key == lengthKey {
		return 0, notAnIndex
	}
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, notAnIndex
	}
	if n < 0 || n >= length {
		return 0, outOfRange
	}
	return n, indexOK
}
