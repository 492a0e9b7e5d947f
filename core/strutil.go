package core

const (
	maxInt32 = 1<<31 - 1
	minInt32 = -1 << 31
)

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	// Count digits
	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	// Add space for negative sign
	if negative {
		digits++
	}

	// Build string from right to left
	buf := make([]byte, digits)
	pos := digits - 1

	for n > 0 {
		buf[pos] = byte('0' + n%10)
		n /= 10
		pos--
	}

	if negative {
		buf[0] = '-'
	}

	return string(buf)
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}

	return string(buf[pos:])
}

// parseInt parses a base-10 integer with an optional sign. Magnitudes beyond
// the int32 range saturate.
//
// Strict mode requires the whole string to be a number. Lenient mode follows
// strtol: leading whitespace is skipped, trailing garbage is ignored and a
// string without digits parses as 0.
func parseInt(s string, lenient bool) (int32, bool) {
	i := 0
	if lenient {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
	}

	negative := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		negative = s[i] == '-'
		i++
	}

	start := i
	var value int64
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		if value <= maxInt32+1 {
			value = value*10 + int64(s[i]-'0')
		}
		i++
	}

	if i == start {
		// No digits found
		return 0, lenient
	}
	if i != len(s) && !lenient {
		return 0, false
	}

	if negative {
		value = -value
	}
	if value > maxInt32 {
		value = maxInt32
	} else if value < minInt32 {
		value = minInt32
	}

	return int32(value), true
}

// isSpace matches the C locale's isspace
func isSpace(c byte) bool {
	return c == ' ' || (c >= '\t' && c <= '\r')
}
