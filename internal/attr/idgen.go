// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package attr

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"strconv"
	"sync/atomic"
)

// IDLen is the standard length of stanza identifiers in bytes.
const IDLen = 16

// Generator returns fresh stanza identifiers.
type Generator func() string

// RandomID generates a new random identifier of length IDLen. If the OS's
// entropy pool isn't initialized, or we can't generate random numbers for some
// other reason, panic.
func RandomID() string {
	return randomID(IDLen, rand.Reader)
}

// Sequential returns a Generator that yields prefix1, prefix2, and so on.
// It is safe for concurrent use and is mostly useful in tests where stable
// identifiers make wire output predictable.
func Sequential(prefix string) Generator {
	var n uint64
	return func() string {
		return prefix + strconv.FormatUint(atomic.AddUint64(&n, 1), 10)
	}
}

func randomID(n int, r io.Reader) string {
	b := make([]byte, (n/2)+(n&1))
	if _, err := io.ReadFull(r, b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)[:n]
}
