// Package diff normalizes Kubernetes documents and computes typed,
// deterministically ordered structural differences between them.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chartsafe/helm-preview/internal/errors"
	"github.com/chartsafe/helm-preview/pkg/pathmatch"
)

// DefaultNoisePaths are subtrees that change on every apply without
// semantic meaning. They are stripped from both sides before diffing.
var DefaultNoisePaths = []string{
	"status",
	"metadata.creationTimestamp",
	"metadata.resourceVersion",
	"metadata.uid",
	"metadata.generation",
	"metadata.selfLink",
	"metadata.managedFields",
	`metadata.annotations.kubectl\.kubernetes\.io/last-applied-configuration`,
	`metadata.annotations.deployment\.kubernetes\.io/revision`,
	`metadata.annotations.meta\.helm\.sh/*`,
	`metadata.labels.helm\.sh/chart`,
}

// CRDNoisePaths extends the default set for CustomResourceDefinition
// documents with server-managed conversion webhook material.
var CRDNoisePaths = append(append([]string{}, DefaultNoisePaths...),
	"spec.conversion.webhook.clientConfig.caBundle",
)

// CompileIgnores builds the ignore set from a base noise list and
// caller-supplied extra patterns. Invalid extra patterns are reported
// as a typed configuration error.
func CompileIgnores(base []string, extra []string) (*pathmatch.Set, error) {
	set, err := pathmatch.CompileSet(base)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodePathPattern, "invalid built-in noise path")
	}
	for _, expr := range extra {
		p, cerr := pathmatch.Compile(expr)
		if cerr != nil {
			return nil, errors.WrapUserFacing(cerr, errors.CodePathPattern,
				fmt.Sprintf("invalid ignore path %q", expr),
				"Use dot notation; escape literal dots with a backslash.")
		}
		set.Add(p)
	}
	return set, nil
}

// Lists whose order carries no meaning. Each entry names the list by
// pattern and the element fields that identify an element.
var unorderedListRules = []struct {
	pattern  pathmatch.Pattern
	identity []string
}{
	{pathmatch.MustCompile("**.containers[*].env"), []string{"name"}},
	{pathmatch.MustCompile("**.initContainers[*].env"), []string{"name"}},
	{pathmatch.MustCompile("**.containers[*].ports"), []string{"containerPort", "protocol", "name"}},
	{pathmatch.MustCompile("**.initContainers[*].ports"), []string{"containerPort", "protocol", "name"}},
	{pathmatch.MustCompile("**.containers[*].volumeMounts"), []string{"mountPath", "name"}},
	{pathmatch.MustCompile("**.initContainers[*].volumeMounts"), []string{"mountPath", "name"}},
	{pathmatch.MustCompile("**.spec.volumes"), []string{"name"}},
	{pathmatch.MustCompile("spec.ports"), []string{"port", "protocol", "name"}},
	{pathmatch.MustCompile("spec.template.spec.imagePullSecrets"), []string{"name"}},
}

// Normalize returns a copy of doc with every subtree matching the
// ignore set removed and order-insensitive lists sorted on a stable
// identity key. The input is never mutated, and the operation is
// idempotent. Map traversal order is handled at diff time, since Go
// maps are unordered.
func Normalize(doc map[string]any, ignores *pathmatch.Set) map[string]any {
	if doc == nil {
		return nil
	}
	return normalizeMap(doc, nil, ignores)
}

func normalizeMap(m map[string]any, segs []pathmatch.Segment, ignores *pathmatch.Set) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		childSegs := append(segs[:len(segs):len(segs)], pathmatch.Key(k))
		if ignores.MatchesSegments(childSegs) {
			continue
		}
		norm := normalizeValue(v, childSegs, ignores)
		if strippedEmpty(v, norm) {
			continue
		}
		out[k] = norm
	}
	return out
}

// strippedEmpty reports whether noise removal emptied a container that
// had content. Such containers are dropped so that a live document
// whose annotations were all bookkeeping compares equal to a rendered
// one with no annotations at all. Containers that were authored empty
// are kept.
func strippedEmpty(orig, norm any) bool {
	switch n := norm.(type) {
	case map[string]any:
		if len(n) != 0 {
			return false
		}
		o, ok := orig.(map[string]any)
		return ok && len(o) > 0
	case []any:
		if len(n) != 0 {
			return false
		}
		o, ok := orig.([]any)
		return ok && len(o) > 0
	}
	return false
}

func normalizeValue(v any, segs []pathmatch.Segment, ignores *pathmatch.Set) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeMap(t, segs, ignores)
	case []any:
		return normalizeSlice(t, segs, ignores)
	default:
		return v
	}
}

func normalizeSlice(list []any, segs []pathmatch.Segment, ignores *pathmatch.Set) []any {
	out := make([]any, 0, len(list))
	for i, v := range list {
		childSegs := append(segs[:len(segs):len(segs)], pathmatch.Index(i))
		if ignores.MatchesSegments(childSegs) {
			continue
		}
		out = append(out, normalizeValue(v, childSegs, ignores))
	}
	if identity, ok := unorderedIdentityFor(segs); ok {
		out = sortByIdentity(out, identity)
	}
	return out
}

func unorderedIdentityFor(segs []pathmatch.Segment) ([]string, bool) {
	for _, rule := range unorderedListRules {
		if rule.pattern.MatchesSegments(segs) {
			return rule.identity, true
		}
	}
	return nil, false
}

// sortByIdentity orders list elements by the rendered values of their
// identity fields. Lists holding non-map elements are left alone.
func sortByIdentity(list []any, identity []string) []any {
	type elem struct {
		key string
		val any
	}
	elems := make([]elem, len(list))
	for i, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			return list
		}
		elems[i] = elem{key: identityKey(m, identity), val: v}
	}
	sort.SliceStable(elems, func(i, j int) bool { return elems[i].key < elems[j].key })
	out := make([]any, len(elems))
	for i, e := range elems {
		out[i] = e.val
	}
	return out
}

func identityKey(m map[string]any, identity []string) string {
	parts := make([]string, 0, len(identity))
	for _, field := range identity {
		if v, ok := m[field]; ok {
			parts = append(parts, fmt.Sprintf("%v", v))
		} else {
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, "\x00")
}
