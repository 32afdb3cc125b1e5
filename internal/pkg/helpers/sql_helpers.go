package helpers

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern wraps a user search term for ILIKE, escaping wildcards.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}

// Int64Ptr returns nil for zero ids
func Int64Ptr(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
