package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + DWordMask) & ^DWordMask
}

// EvenWords rounds n bytes up to an even number of words, which keeps every
// block boundary double-word aligned after growth.
func EvenWords(n int) int {
	words := (n + WordSize - 1) / WordSize
	if words%2 != 0 {
		words++
	}
	return words * WordSize
}

// IsAligned reports whether off is a multiple of the double-word alignment.
func IsAligned(off int) bool {
	return off&DWordMask == 0
}
