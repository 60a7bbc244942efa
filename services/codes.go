package services

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

const shortCodeAlphabet = "23456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// codeSource is shared by all callers; *rand.Rand is not safe for
// concurrent use on its own.
var codeSource = struct {
	sync.Mutex
	r *rand.Rand
}{r: rand.New(rand.NewSource(uint64(time.Now().UnixNano())))}

func newShortCode(n int) string {
	codeSource.Lock()
	defer codeSource.Unlock()

	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(shortCodeAlphabet[codeSource.r.Intn(len(shortCodeAlphabet))])
	}
	return b.String()
}

// newIntakeToken is the unguessable path segment of a receiver's intake form.
func newIntakeToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newTemporaryPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
