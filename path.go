package tdms

import "strings"

// parsePath decodes a TDMS object path of the form `/'group'/'channel'` into
// its group and channel components. The root object uses the literal path
// "/". A single quote inside a name is escaped as a doubled quote ('').
func parsePath(path string) (group, channel string, err error) {
	if path == "/" {
		return "", "", nil
	}

	if len(path) < 2 || path[0] != '/' || path[1] != '\'' {
		return "", "", ErrInvalidPath
	}

	var components []string

	i := 0
	for i < len(path) {
		if path[i] != '/' || i+1 >= len(path) || path[i+1] != '\'' {
			return "", "", ErrInvalidPath
		}

		i += 2 // skip "/'"

		var b strings.Builder
		closed := false
		for i < len(path) {
			if path[i] == '\'' {
				if i+1 < len(path) && path[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				i++ // skip closing quote
				closed = true
				break
			}
			b.WriteByte(path[i])
			i++
		}

		if !closed {
			return "", "", ErrInvalidPath
		}

		components = append(components, b.String())

		if i >= len(path) {
			break
		}
	}

	switch len(components) {
	case 1:
		return components[0], "", nil
	case 2:
		return components[0], components[1], nil
	default:
		return "", "", ErrInvalidPath
	}
}

// buildPath is the inverse of parsePath: it encodes a group and channel name
// into the quoted TDMS object path representation. An empty group names the
// root object "/"; an empty channel with a non-empty group names the group
// object.
func buildPath(group, channel string) string {
	if group == "" {
		return "/"
	}

	var b strings.Builder
	b.WriteString("/'")
	b.WriteString(escapePathComponent(group))
	b.WriteByte('\'')

	if channel != "" {
		b.WriteString("/'")
		b.WriteString(escapePathComponent(channel))
		b.WriteByte('\'')
	}

	return b.String()
}

func escapePathComponent(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
