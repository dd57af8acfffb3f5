// Package radix50 implements the three-character-per-16-bit-word encoding
// RT-11 uses for filenames, extensions, and the home block's system version
// field.
package radix50

import (
	"strings"

	pdpfserrors "github.com/porkrind/pdpfs/errors"
)

// Alphabet is the 40-symbol radix-50 character set, in index order.
const Alphabet = " ABCDEFGHIJKLMNOPQRSTUVWXYZ$.?0123456789"

func charIndex(c byte) (int, bool) {
	i := strings.IndexByte(Alphabet, c)
	return i, i >= 0
}

// EncodeWord packs exactly three radix-50 characters into one 16-bit word.
// Lowercase letters are upcased first. A character outside Alphabet is
// NameInvalid.
func EncodeWord(s string) (uint16, error) {
	if len(s) != 3 {
		return 0, pdpfserrors.New(pdpfserrors.NameInvalid, "radix-50 word must be exactly 3 characters, got %q", s)
	}
	s = strings.ToUpper(s)
	w := 0
	for i := 0; i < 3; i++ {
		idx, ok := charIndex(s[i])
		if !ok {
			return 0, pdpfserrors.New(pdpfserrors.NameInvalid, "character %q is not representable in radix-50", s[i])
		}
		w = w*40 + idx
	}
	return uint16(w), nil
}

// maxValidWord is the largest value EncodeWord can ever produce: 39*1600 +
// 39*40 + 39. Values above this cannot represent three real radix-50
// characters; the design notes call this "impossible on read" and require
// decoding to '?' while reporting Corruption.
const maxValidWord = 39*1600 + 39*40 + 39

// DecodeWord unpacks one 16-bit radix-50 word into three characters.
func DecodeWord(w uint16) (string, error) {
	if w > maxValidWord {
		return "???", pdpfserrors.New(pdpfserrors.Corruption, "radix-50 word %#06x exceeds the largest encodable value", w)
	}
	v := int(w)
	d2 := v % 40
	v /= 40
	d1 := v % 40
	v /= 40
	d0 := v % 40

	var sb strings.Builder
	sb.WriteByte(Alphabet[d0])
	sb.WriteByte(Alphabet[d1])
	sb.WriteByte(Alphabet[d2])
	return sb.String(), nil
}

// EncodeName splits "NAME.EXT" (name <=6 chars, extension <=3 chars) into
// the three radix-50 words RT-11 stores for a directory entry: two for the
// (space-padded) name, one for the (space-padded) extension.
func EncodeName(name, ext string) ([3]uint16, error) {
	var words [3]uint16
	if len(name) > 6 || len(name) < 1 {
		return words, pdpfserrors.New(pdpfserrors.NameInvalid, "filename %q must be 1-6 characters", name)
	}
	if len(ext) > 3 {
		return words, pdpfserrors.New(pdpfserrors.NameInvalid, "extension %q must be at most 3 characters", ext)
	}
	paddedName := strings.ToUpper(name) + strings.Repeat(" ", 6-len(name))
	paddedExt := strings.ToUpper(ext) + strings.Repeat(" ", 3-len(ext))

	w0, err := EncodeWord(paddedName[0:3])
	if err != nil {
		return words, err
	}
	w1, err := EncodeWord(paddedName[3:6])
	if err != nil {
		return words, err
	}
	w2, err := EncodeWord(paddedExt)
	if err != nil {
		return words, err
	}
	return [3]uint16{w0, w1, w2}, nil
}

// DecodeName reverses EncodeName, returning the trimmed, uppercase
// "NAME.EXT" string. A decode error from any of the three words is
// surfaced as Corruption.
func DecodeName(words [3]uint16) (string, error) {
	n0, err := DecodeWord(words[0])
	if err != nil {
		return "", err
	}
	n1, err := DecodeWord(words[1])
	if err != nil {
		return "", err
	}
	ext, err := DecodeWord(words[2])
	if err != nil {
		return "", err
	}
	name := strings.TrimRight(n0+n1, " ")
	ext = strings.TrimRight(ext, " ")
	return name + "." + ext, nil
}
