package envelope

import (
	"fmt"
	"regexp"
	"strings"
)

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// DocumentHash is a lowercase hex-encoded sha256 digest of a stored document.
type DocumentHash struct {
	value string
}

func NewDocumentHash(raw string) (DocumentHash, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if !sha256Hex.MatchString(v) {
		return DocumentHash{}, NewError(CodeValidation, "NewDocumentHash",
			fmt.Sprintf("not a sha256 hex digest: %q", raw), nil)
	}
	return DocumentHash{value: v}, nil
}

func (h DocumentHash) IsZero() bool          { return h.value == "" }
func (h DocumentHash) String() string        { return h.value }
func (h DocumentHash) Equals(o DocumentHash) bool { return h.value == o.value }
