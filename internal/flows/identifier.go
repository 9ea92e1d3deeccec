package flows

import (
	"math"
	"math/rand"
	"strconv"
)

const (
	runtimeIdentifierRangeConstant = 4294967295
	hexadecimalRadixConstant       = 16
	hexadecimalDigitsConstant      = "0123456789abcdef"
	fractionSeparatorConstant      = "."
)

// IdentifierGenerator produces node identifiers.
type IdentifierGenerator func() string

// NewIdentifier produces an identifier the way the Node-RED editor does.
func NewIdentifier() string {
	return RuntimeIdentifier(rand.Float64())
}

// RuntimeIdentifier maps a random fraction in [0, 1) to the identifier Node-RED
// derives from it: (1 + fraction*0xFFFFFFFF) rendered in base 16, fractional
// digits included, with the shortest-round-trip digit generation JavaScript
// engines use for Number.prototype.toString(16).
func RuntimeIdentifier(randomFraction float64) string {
	return formatHexadecimal(1 + randomFraction*runtimeIdentifierRangeConstant)
}

func formatHexadecimal(value float64) string {
	integerPart := math.Floor(value)
	fraction := value - integerPart

	delta := 0.5 * (math.Nextafter(value, math.Inf(1)) - value)
	delta = math.Max(math.Nextafter(0, 1), delta)

	fractionDigits := make([]int, 0, 16)
	if fraction >= delta {
		for {
			fraction *= hexadecimalRadixConstant
			delta *= hexadecimalRadixConstant
			digit := int(fraction)
			fractionDigits = append(fractionDigits, digit)
			fraction -= float64(digit)

			if fraction > 0.5 || (fraction == 0.5 && digit&1 == 1) {
				if fraction+delta > 1 {
					fractionDigits, integerPart = roundFractionDigitsUp(fractionDigits, integerPart)
					break
				}
			}

			if fraction < delta {
				break
			}
		}
	}

	formatted := strconv.FormatUint(uint64(integerPart), hexadecimalRadixConstant)
	if len(fractionDigits) == 0 {
		return formatted
	}

	encodedDigits := make([]byte, len(fractionDigits))
	for digitIndex, digit := range fractionDigits {
		encodedDigits[digitIndex] = hexadecimalDigitsConstant[digit]
	}
	return formatted + fractionSeparatorConstant + string(encodedDigits)
}

// roundFractionDigitsUp propagates a carry through the fractional digits,
// dropping trailing digits that overflow and spilling into the integer part.
func roundFractionDigitsUp(fractionDigits []int, integerPart float64) ([]int, float64) {
	for len(fractionDigits) > 0 {
		lastIndex := len(fractionDigits) - 1
		lastDigit := fractionDigits[lastIndex]
		fractionDigits = fractionDigits[:lastIndex]
		if lastDigit+1 < hexadecimalRadixConstant {
			return append(fractionDigits, lastDigit+1), integerPart
		}
	}
	return fractionDigits, integerPart + 1
}
