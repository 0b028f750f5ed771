package descriptor

import (
	"fmt"
	"strings"
)

// inputCharset is the full character set a descriptor (absent its
// checksum) is allowed to contain, ordered so that a character's index
// decomposes into a 6-bit "class" and 5-bit "value" for the checksum
// polymod, per BIP-380.
const inputCharset = "0123456789()[],'/*abcdefgh@:$%{}IJKLMNOPQRSTUVWXYZ&+-.;<=>?!^_|~ijklmnopqrstuvwxyzABCDEFGH`#\"\\ "

const checksumCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var checksumGenerator = [5]uint64{
	0xf5dee51989, 0xa9fdca3312, 0x1bab10e32d, 0x3706b1677a, 0x644d626ffd,
}

func polymod(symbols []int) uint64 {
	var chk uint64 = 1
	for _, v := range symbols {
		top := chk >> 35
		chk = (chk&0x7ffffffff)<<5 ^ uint64(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 != 0 {
				chk ^= checksumGenerator[i]
			}
		}
	}
	return chk
}

// descsumCreate computes the 8-character BIP-380 checksum of a
// descriptor string (without any "#checksum" suffix already present).
func descsumCreate(s string) (string, error) {
	symbols := make([]int, 0, len(s)+8)
	cls, clsCount := 0, 0
	for _, r := range s {
		pos := strings.IndexRune(inputCharset, r)
		if pos < 0 {
			return "", fmt.Errorf("descriptor: character %q is not valid in a descriptor", r)
		}
		symbols = append(symbols, pos&31)
		cls = cls*3 + (pos >> 5)
		clsCount++
		if clsCount == 3 {
			symbols = append(symbols, cls)
			cls, clsCount = 0, 0
		}
	}
	if clsCount > 0 {
		symbols = append(symbols, cls)
	}
	for i := 0; i < 8; i++ {
		symbols = append(symbols, 0)
	}
	checksum := polymod(symbols) ^ 1

	var b strings.Builder
	for j := 0; j < 8; j++ {
		b.WriteByte(checksumCharset[(checksum>>uint(5*(7-j)))&31])
	}
	return b.String(), nil
}

// descsumCheck reports whether s (without its checksum) together with
// checksum forms a valid BIP-380 checksummed descriptor.
func descsumCheck(s, checksum string) (bool, error) {
	want, err := descsumCreate(s)
	if err != nil {
		return false, err
	}
	return want == checksum, nil
}

// AppendChecksum returns s with its BIP-380 checksum appended.
func AppendChecksum(s string) (string, error) {
	sum, err := descsumCreate(s)
	if err != nil {
		return "", err
	}
	return s + "#" + sum, nil
}
