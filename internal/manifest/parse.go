// Package manifest parses rendered Kubernetes manifests and pairs the
// live and proposed document sets by resource identity.
package manifest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/errors"
	"github.com/chartsafe/helm-preview/pkg/convert"
)

// Parse splits multi-document YAML into resources. Empty documents are
// skipped; a document that cannot yield a resource key fails the whole
// parse, since pairing needs well-formed identities. Namespace-less
// documents get defaultNamespace.
//
// Decoded bodies are canonicalized to map[string]any / []any nodes
// with string, bool, int64, float64, or nil leaves.
func Parse(data []byte, defaultNamespace string) ([]*domain.Resource, error) {
	return parse(data, defaultNamespace, false)
}

// ParseList is Parse plus unwrapping of List kinds: a document whose
// kind ends in "List" contributes its items instead of itself. kubectl
// emits such envelopes for get operations.
func ParseList(data []byte, defaultNamespace string) ([]*domain.Resource, error) {
	return parse(data, defaultNamespace, true)
}

func parse(data []byte, defaultNamespace string, unwrapLists bool) ([]*domain.Resource, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var resources []*domain.Resource
	for docIndex := 0; ; docIndex++ {
		var raw any
		err := dec.Decode(&raw)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapUserFacing(err, errors.CodeManifestParse,
				fmt.Sprintf("invalid YAML in document %d", docIndex), "")
		}
		if raw == nil {
			continue
		}
		body, ok := canonicalize(raw).(map[string]any)
		if !ok {
			return nil, errors.NewUserFacing(errors.CodeManifestParse,
				fmt.Sprintf("document %d is not a mapping", docIndex), "")
		}
		if len(body) == 0 {
			continue
		}

		if kind, _ := body["kind"].(string); unwrapLists && strings.HasSuffix(kind, "List") {
			items, err := convert.ToSliceOfMap(body["items"])
			if err != nil {
				return nil, errors.WrapUserFacing(err, errors.CodeManifestParse,
					fmt.Sprintf("document %d has a malformed items list", docIndex), "")
			}
			for _, item := range items {
				res, err := newResource(item, defaultNamespace, docIndex)
				if err != nil {
					return nil, err
				}
				resources = append(resources, res)
			}
			continue
		}

		res, err := newResource(body, defaultNamespace, docIndex)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return resources, nil
}

// Dump serializes a resource body back to YAML, for feeding single
// documents to kubectl.
func Dump(res *domain.Resource) ([]byte, error) {
	data, err := yaml.Marshal(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal,
			fmt.Sprintf("cannot serialize %s", res.Key))
	}
	return data, nil
}

func newResource(body map[string]any, defaultNamespace string, docIndex int) (*domain.Resource, error) {
	apiVersion, _ := body["apiVersion"].(string)
	kind, _ := body["kind"].(string)
	name := convert.DigString(body, "metadata", "name")
	namespace := convert.DigString(body, "metadata", "namespace")

	if kind == "" || name == "" {
		return nil, errors.NewUserFacing(errors.CodeManifestParse,
			fmt.Sprintf("document %d is missing kind or metadata.name", docIndex),
			"Check the rendered manifest for malformed documents.")
	}
	if namespace == "" {
		namespace = defaultNamespace
	}

	return &domain.Resource{
		Key: domain.ResourceKey{
			APIVersion: apiVersion,
			Kind:       kind,
			Namespace:  namespace,
			Name:       name,
		},
		Body: body,
	}, nil
}

// canonicalize rewrites a decoded YAML tree into the fixed node set
// the engines dispatch on. Integers collapse to int64, timestamps and
// binary scalars to strings.
func canonicalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = canonicalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = canonicalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = canonicalize(val)
		}
		return out
	case int:
		return int64(t)
	case int64:
		return t
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return float64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case []byte:
		return base64.StdEncoding.EncodeToString(t)
	default:
		return v
	}
}
