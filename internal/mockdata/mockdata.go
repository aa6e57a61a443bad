// Package mockdata returns the canned payloads the simulated data sources respond with.
package mockdata

import (
	"strconv"
	"time"
)

// Generate returns the response body for an operation name. Requested fields
// and arguments are ignored.
func Generate(operationName string) map[string]interface{} {
	switch operationName {
	case "GetUser":
		return map[string]interface{}{
			"getUser": map[string]interface{}{
				"id":    "123",
				"name":  "John Doe",
				"email": "john@example.com",
				"posts": []interface{}{
					map[string]interface{}{"id": "1", "title": "First Post", "content": "Hello World!"},
					map[string]interface{}{"id": "2", "title": "Second Post", "content": "GraphQL is awesome!"},
				},
			},
		}
	case "CreatePost":
		return map[string]interface{}{
			"createPost": map[string]interface{}{
				"id":      "3",
				"title":   "My New Post",
				"content": "This is the content of my post",
				"author":  map[string]interface{}{"name": "John Doe"},
			},
		}
	}
	return map[string]interface{}{"message": "Operation completed successfully"}
}

// TriggerPayload builds the post pushed by a manual subscription trigger
func TriggerPayload(now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"id":        strconv.FormatInt(now.UnixMilli(), 10),
		"title":     "Real-time Update",
		"content":   "This is a real-time update triggered by a mutation",
		"author":    map[string]interface{}{"name": "Jane Smith"},
		"createdAt": now.UTC().Format(time.RFC3339Nano),
	}
}
