package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/youssef3092004/Spacefy/pkg/httputil"
)

// tagSetPrefix namespaces the redis sets that map tags to cache keys
const tagSetPrefix = "cacheTag:"

// RequestShape captures what a request touched, for tag derivation. The
// RouteEntity is the plural entity of the route (e.g. "branches");
// Params are the identifying path parameters.
type RequestShape struct {
	RouteEntity string
	Params      map[string]string
}

// Sanitize normalizes a tag fragment: trimmed and lowercased
func Sanitize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Singularize strips the plural suffix from an entity name. "branches"
// becomes "branch", "businesses" becomes "business". Names shorter than
// two characters are returned unchanged.
func Singularize(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case strings.HasSuffix(s, "ies"):
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "ses"), strings.HasSuffix(s, "ches"),
		strings.HasSuffix(s, "shes"), strings.HasSuffix(s, "xes"):
		return s[:len(s)-2]
	case strings.HasSuffix(s, "s"):
		return s[:len(s)-1]
	}
	return s
}

// TagsFor derives the invalidation tags for a request shape. Every
// cache key written while handling the request is indexed under each of
// these tags, and a mutation with the same shape consumes them.
func TagsFor(shape RequestShape) []string {
	entity := Sanitize(shape.RouteEntity)
	if entity == "" {
		return nil
	}

	tags := []string{
		"route:" + entity,
		"prefix:" + entity,
		"prefix:" + Singularize(entity),
	}

	keys := make([]string, 0, len(shape.Params))
	for k := range shape.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := Sanitize(k)
		value := Sanitize(shape.Params[k])
		if key == "" || value == "" {
			continue
		}
		tags = append(tags,
			fmt.Sprintf("param:%s:%s", key, value),
			"prefix:"+key,
		)
	}

	return dedupe(tags)
}

// PatternsFor derives the key patterns a mutation sweeps in addition to
// the exact keys collected from tag sets.
func PatternsFor(shape RequestShape) []string {
	entity := Sanitize(shape.RouteEntity)
	if entity == "" {
		return nil
	}

	patterns := []string{
		entity + ":*",
		Singularize(entity) + ":*",
	}

	keys := make([]string, 0, len(shape.Params))
	for k := range shape.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := Sanitize(k)
		value := Sanitize(shape.Params[k])
		if key == "" || value == "" {
			continue
		}
		patterns = append(patterns,
			fmt.Sprintf("*%s=%s*", key, value),
			fmt.Sprintf("*%s*", value),
		)
	}

	return dedupe(patterns)
}

// TagSetKey returns the redis key of the set indexing a tag
func TagSetKey(tag string) string {
	return tagSetPrefix + tag
}

// ListKey builds the cache key for a paginated list response
func ListKey(entity string, p httputil.Pagination) string {
	return fmt.Sprintf("%s:page=%d:limit=%d:sort=%s:order=%s",
		Sanitize(entity), p.Page, p.Limit, p.Sort, p.Order)
}

// IDKey builds the cache key for a single resource response
func IDKey(entity, id string) string {
	return fmt.Sprintf("%s:%s", Singularize(Sanitize(entity)), id)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
