package plate

// Class is the character class expected at one position of a plate.
type Class int

const (
	Letter Class = iota
	Digit
)

func (c Class) String() string {
	if c == Digit {
		return "digit"
	}
	return "letter"
}

// Length is the number of characters in a Mercosul plate.
const Length = 7

// mercosul is the LLLNLNN layout. Matching and correction both read it,
// so there is a single definition of what each position expects.
var mercosul = [Length]Class{Letter, Letter, Letter, Digit, Letter, Digit, Digit}

// Pattern returns a copy of the per-position layout.
func Pattern() [Length]Class {
	return mercosul
}

// Common OCR misreads between the two classes.
var (
	digitToLetter = map[byte]byte{'0': 'O', '1': 'I', '8': 'B', '5': 'S', '2': 'Z'}
	letterToDigit = map[byte]byte{'O': '0', 'I': '1', 'B': '8', 'S': '5', 'Z': '2'}
)

func isLetter(b byte) bool { return b >= 'A' && b <= 'Z' }
func isDigit(b byte) bool  { return b >= '0' && b <= '9' }

func (c Class) accepts(b byte) bool {
	if c == Digit {
		return isDigit(b)
	}
	return isLetter(b)
}

// Matches reports whether candidate is exactly a Mercosul plate.
func Matches(candidate string) bool {
	if len(candidate) != Length {
		return false
	}
	for i, class := range mercosul {
		if !class.accepts(candidate[i]) {
			return false
		}
	}
	return true
}

// Correct swaps look-alike characters that sit in a position of the other
// class. It is a single pass: each position is judged on its own and the
// output is never corrected again. Characters without a mapping are kept.
func Correct(candidate string) string {
	if len(candidate) != Length {
		return candidate
	}
	out := []byte(candidate)
	for i, class := range mercosul {
		c := out[i]
		switch {
		case class == Letter && isDigit(c):
			if l, ok := digitToLetter[c]; ok {
				out[i] = l
			}
		case class == Digit && isLetter(c):
			if d, ok := letterToDigit[c]; ok {
				out[i] = d
			}
		}
	}
	return string(out)
}
