package storage

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const keyPrefix = "ads"

var extensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,6}$`)

// KeyGenerator derives date-partitioned object keys of the form
// ads/<yyyy>/<mm>/<dd>/<uuid><ext>.
type KeyGenerator struct {
	now   func() time.Time
	newID func() string
}

// NewKeyGenerator returns a generator backed by the wall clock and random UUIDs.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now, newID: uuid.NewString}
}

// Generate returns a fresh key for a file with the given original name.
func (g *KeyGenerator) Generate(filename string) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteByte('/')
	b.WriteString(g.now().UTC().Format("2006/01/02"))
	b.WriteByte('/')
	b.WriteString(g.newID())
	b.WriteString(ExtractExtension(filename))
	return b.String()
}

// ExtractExtension returns the lower-cased extension of filename including the
// dot, or "" when there is none or it is not 1-6 alphanumerics.
func ExtractExtension(filename string) string {
	cleaned := strings.TrimSpace(filename)
	dot := strings.LastIndexByte(cleaned, '.')
	if dot < 0 {
		return ""
	}
	ext := cleaned[dot:]
	if !extensionPattern.MatchString(ext) {
		return ""
	}
	return strings.ToLower(ext)
}
