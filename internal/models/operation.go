package models

import (
	"fmt"
	"strings"
	"time"
)

// OperationKind is the GraphQL operation type selected in the editor
type OperationKind string

const (
	KindQuery        OperationKind = "query"
	KindMutation     OperationKind = "mutation"
	KindSubscription OperationKind = "subscription"
)

// DataSourceKind identifies the simulated backend an operation is routed to
type DataSourceKind string

const (
	SourceDynamoDB      DataSourceKind = "dynamodb"
	SourceLambda        DataSourceKind = "lambda"
	SourceElasticsearch DataSourceKind = "elasticsearch"
	SourceHTTP          DataSourceKind = "http"
)

// ResolverKind identifies the simulated resolver runtime
type ResolverKind string

const (
	ResolverVTL        ResolverKind = "vtl"
	ResolverJavaScript ResolverKind = "javascript"
	ResolverPipeline   ResolverKind = "pipeline"
	ResolverDirect     ResolverKind = "direct"
)

// UnknownKindError is returned when a selection does not name a known kind
type UnknownKindError struct {
	Field string
	Value string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Field, e.Value)
}

var dataSourceNames = map[DataSourceKind]string{
	SourceDynamoDB:      "DynamoDB",
	SourceLambda:        "Lambda Function",
	SourceElasticsearch: "OpenSearch",
	SourceHTTP:          "HTTP Endpoint",
}

var resolverNames = map[ResolverKind]string{
	ResolverVTL:        "VTL (Velocity)",
	ResolverJavaScript: "JavaScript",
	ResolverPipeline:   "Pipeline",
	ResolverDirect:     "Direct Lambda",
}

// ParseOperationKind validates an operation kind string
func ParseOperationKind(s string) (OperationKind, error) {
	k := OperationKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindQuery, KindMutation, KindSubscription:
		return k, nil
	}
	return "", &UnknownKindError{Field: "operation", Value: s}
}

// ParseDataSourceKind validates a data source string
func ParseDataSourceKind(s string) (DataSourceKind, error) {
	k := DataSourceKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := dataSourceNames[k]; ok {
		return k, nil
	}
	return "", &UnknownKindError{Field: "data source", Value: s}
}

// ParseResolverKind validates a resolver string
func ParseResolverKind(s string) (ResolverKind, error) {
	k := ResolverKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := resolverNames[k]; ok {
		return k, nil
	}
	return "", &UnknownKindError{Field: "resolver", Value: s}
}

// DisplayName returns the label shown for the data source
func (k DataSourceKind) DisplayName() string {
	if name, ok := dataSourceNames[k]; ok {
		return name
	}
	return string(k)
}

// DisplayName returns the label shown for the resolver
func (k ResolverKind) DisplayName() string {
	if name, ok := resolverNames[k]; ok {
		return name
	}
	return string(k)
}

// Operation is a single submitted GraphQL request. It is never mutated after creation.
type Operation struct {
	ID         int64          `json:"id"`
	Kind       OperationKind  `json:"type"`
	Name       string         `json:"name"`
	Query      string         `json:"query"`
	DataSource DataSourceKind `json:"data_source"`
	Resolver   ResolverKind   `json:"resolver"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Stats holds the dashboard counters
type Stats struct {
	TotalOperations   int64 `json:"total_operations"`
	QueryCount        int64 `json:"query_count"`
	MutationCount     int64 `json:"mutation_count"`
	SubscriptionCount int64 `json:"subscription_count"`
}

// Selection is the current editor configuration
type Selection struct {
	Operation  OperationKind  `json:"operation"`
	DataSource DataSourceKind `json:"data_source"`
	Resolver   ResolverKind   `json:"resolver"`
}
