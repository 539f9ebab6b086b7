package store

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	idSuffixLen = 9
	base36      = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateID returns prefix + base-36 millisecond timestamp + a random
// base-36 suffix. Ids sort roughly by creation time. They are not secrets.
func GenerateID(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 9 + idSuffixLen)
	b.WriteString(prefix)
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 36))
	for i := 0; i < idSuffixLen; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}

// SheetPrefix is the id prefix used for a sheet: its first letter, upper-cased.
func SheetPrefix(sheet string) string {
	if sheet == "" {
		return ""
	}
	return strings.ToUpper(sheet[:1])
}
