package operation

import (
	"regexp"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// Anonymous is the name given to operations without a keyword and identifier
const Anonymous = "Anonymous"

var namePattern = regexp.MustCompile(`(?:query|mutation|subscription)\s+(\w+)`)

// ExtractName returns the identifier following the first operation keyword
func ExtractName(text string) string {
	matches := namePattern.FindStringSubmatch(text)
	if len(matches) > 1 {
		return matches[1]
	}
	return Anonymous
}

// CacheKey builds the response cache key for an operation. Only queries are cacheable.
func CacheKey(kind models.OperationKind, text string) (string, bool) {
	if kind != models.KindQuery {
		return "", false
	}
	return string(kind) + ":" + ExtractName(text), true
}
