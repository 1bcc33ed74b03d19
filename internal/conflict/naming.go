package conflict

import (
	"fmt"
	"path"
	"strings"
)

// placeholderName is used when neither the live object nor the bookkeeping
// can supply a name for the fork.
const placeholderName = "Untitled"

// dedupName decorates name with a " (n)" suffix before the extension until
// it collides with nothing in taken. "Drawing.dwg" becomes "Drawing (1).dwg",
// then "Drawing (2).dwg", and so on.
func dedupName(name string, taken map[string]bool) string {
	if !taken[name] {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if !taken[candidate] {
			return candidate
		}
	}
}
