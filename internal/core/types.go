package core

import "strconv"

// Key is one component of a cassette key sequence. Sequences are
// heterogeneous: string names (decorator kinds, test identifiers,
// argument names) and integer argument positions may be mixed freely.
type Key struct {
	str   string
	num   int
	isNum bool
}

// S builds a string key component.
func S(s string) Key {
	return Key{str: s}
}

// I builds an integer key component, used for positional arguments.
func I(i int) Key {
	return Key{num: i, isNum: true}
}

// IsInt reports whether the component is an integer position.
func (k Key) IsInt() bool {
	return k.isNum
}

// String returns the canonical text form of the component. Integer
// positions format as decimal, so I(2).String() == "2".
func (k Key) String() string {
	if k.isNum {
		return strconv.Itoa(k.num)
	}
	return k.str
}

// KeyStrings converts a key sequence to its canonical string forms.
func KeyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
