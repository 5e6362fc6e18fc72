package statement

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Index is the dotted position of a statement in a method body.
//
//	"0", "1"      top-level statements
//	"1.0.2"       third statement of the first block of statement 1
//	"1.1.0"       first statement of the else block of statement 1
//	"3'"          the replacement of statement 3
type Index string

const replacedMark = "'"

// Top returns the index of the pos-th top-level statement.
func Top(pos int) Index { return Index(strconv.Itoa(pos)) }

// Sub returns the index of the pos-th statement of the block-th sub-block.
func (i Index) Sub(block, pos int) Index {
	return Index(fmt.Sprintf("%s.%d.%d", i, block, pos))
}

// Replaced returns the index of the statement that replaces i.
func (i Index) Replaced() Index { return i + replacedMark }

// Depth is the number of nested blocks around the statement.
func (i Index) Depth() int { return strings.Count(string(i), ".") / 2 }

func (i Index) String() string { return string(i) }

// replacedComponent stands for the replacement mark in an encoded index.
const replacedComponent = math.MaxUint16

// Encode packs the index as a list of uint16 components; replacement marks
// become [math.MaxUint16]. Positions beyond the uint16 range are rejected.
func (i Index) Encode() ([]uint16, error) {
	if i == "" {
		return nil, nil
	}
	var out []uint16
	for _, part := range strings.Split(string(i), ".") {
		digits := strings.TrimRight(part, replacedMark)
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil, fmt.Errorf("statement index %q: %w", i, err)
		}
		c, err := safecast.Conv[uint16](n)
		if err != nil || c == replacedComponent {
			return nil, fmt.Errorf("statement index %q: position %d out of range", i, n)
		}
		out = append(out, c)
		for range len(part) - len(digits) {
			out = append(out, replacedComponent)
		}
	}
	return out, nil
}

// DecodeIndex reverses [Index.Encode].
func DecodeIndex(parts []uint16) Index {
	var b strings.Builder
	for k, c := range parts {
		if c == replacedComponent {
			b.WriteString(replacedMark)
			continue
		}
		if k > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(int(c)))
	}
	return Index(b.String())
}
