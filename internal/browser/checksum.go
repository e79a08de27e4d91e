package browser

import (
	"crypto/md5" //nolint:gosec // matches Chromium's bookmark file checksum, not used for security
	"encoding/hex"
	"hash"

	"golang.org/x/text/encoding/unicode"
)

// utf16le encodes titles the way Chromium feeds them into the checksum: as
// the raw bytes of a little-endian UTF-16 string without BOM.
var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// checksum computes the MD5 digest Chromium stores alongside the bookmark
// roots. Chromium discards a file whose checksum does not match and falls
// back to its backup, so every write must recompute it.
func checksum(file *chromiumFile) string {
	h := md5.New() //nolint:gosec // see import comment

	for _, r := range file.Roots.list() {
		checksumNode(h, r)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func checksumNode(h hash.Hash, n *chromiumNode) {
	h.Write([]byte(n.ID))
	h.Write(encodeTitle(n.Name))

	if n.Type == chromiumTypeURL {
		h.Write([]byte(chromiumTypeURL))
		h.Write([]byte(n.URL))

		return
	}

	h.Write([]byte(chromiumTypeFolder))

	for _, c := range n.Children {
		checksumNode(h, c)
	}
}

func encodeTitle(title string) []byte {
	b, err := utf16le.NewEncoder().Bytes([]byte(title))
	if err != nil {
		// Invalid UTF-8 cannot come from a decoded JSON string; hash the raw
		// bytes rather than fail the write.
		return []byte(title)
	}

	return b
}
