package engine

// MaxNameLength is the longest workspace variable name the engine accepts.
const MaxNameLength = 63

// ValidName reports whether name is a workspace identifier: an ASCII letter
// followed by letters, digits or underscores.
func ValidName(name string) bool {
	if name == "" || len(name) > MaxNameLength {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c == '_' || (c >= '0' && c <= '9')):
		default:
			return false
		}
	}
	return true
}
