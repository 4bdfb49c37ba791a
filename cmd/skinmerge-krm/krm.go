// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"github.com/sam-fredrickson/skinmerge"
)

// KRM annotation constants.
const (
	// AnnotationBase is the base prefix for all skinmerge annotations.
	AnnotationBase = "config.skinmerge.io/"

	// AnnotationID is a correlation key grouping ConfigMaps for a single merge operation.
	AnnotationID = AnnotationBase + "id"

	// AnnotationOrder defines the merge order for ConfigMaps with the same ID.
	// Lower numbers are merged first. The ConfigMap with order=0 holds the default skin.
	AnnotationOrder = AnnotationBase + "order"

	// AnnotationFinalName specifies the desired metadata.name of the final merged ConfigMap.
	// Must be present on the base ConfigMap (order=0).
	AnnotationFinalName = AnnotationBase + "final-name"

	// AnnotationUnionKey specifies the field that identifies elements of keyed lists.
	// An empty value disables keyed lists.
	AnnotationUnionKey = AnnotationBase + "union-key"

	// AnnotationSequenceFusion specifies positional list fusion: replace or deep.
	AnnotationSequenceFusion = AnnotationBase + "sequence-fusion"

	// AnnotationKeyedFusion specifies keyed list fusion: replace, prepend, or deep.
	AnnotationKeyedFusion = AnnotationBase + "keyed-fusion"

	// AnnotationSwapRoles merges the accumulated skin into this ConfigMap's data
	// instead of the other way around.
	AnnotationSwapRoles = AnnotationBase + "swap-roles"

	// AnnotationClone controls whether copied values are deep-cloned.
	AnnotationClone = AnnotationBase + "clone"

	// AnnotationInsertionMarker specifies the union key value after which new
	// controls are inserted.
	AnnotationInsertionMarker = AnnotationBase + "insertion-marker"
)

// TypeMeta describes an individual object in a ResourceList.
type TypeMeta struct {
	APIVersion string `yaml:"apiVersion" json:"apiVersion"`
	Kind       string `yaml:"kind" json:"kind"`
}

// ObjectMeta is metadata that all persisted resources must have.
type ObjectMeta struct {
	Name        string            `yaml:"name,omitempty" json:"name,omitempty"`
	Namespace   string            `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// ConfigMap represents a Kubernetes ConfigMap resource.
type ConfigMap struct {
	TypeMeta   `yaml:",inline" json:",inline"`
	ObjectMeta `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Data       map[string]string `yaml:"data,omitempty" json:"data,omitempty"`
}

// ResourceList is the input/output format for KRM functions.
// See: https://github.com/kubernetes-sigs/kustomize/blob/master/cmd/config/docs/api-conventions/functions-spec.md
type ResourceList struct {
	APIVersion string           `yaml:"apiVersion" json:"apiVersion"`
	Kind       string           `yaml:"kind" json:"kind"`
	Items      []map[string]any `yaml:"items" json:"items"`
}

// skinGroup is a set of ConfigMaps with the same ID whose skins are merged.
type skinGroup struct {
	id         string
	configMaps []*skinConfigMap
}

// skinConfigMap wraps a ConfigMap with its merge order and per-ConfigMap options.
type skinConfigMap struct {
	order     int
	configMap ConfigMap
	options   skinmerge.Options
	finalName string // only set on base (order=0)
}

// dataFormat pairs the codec for a data key.
type dataFormat struct {
	name      string
	unmarshal func([]byte, any) error
	marshal   func(any) ([]byte, error)
}

// Run executes the KRM function, reading a ResourceList from in and writing to out.
func Run(in io.Reader, out io.Writer) error {
	rl, err := readResourceList(in)
	if err != nil {
		return fmt.Errorf("failed to read ResourceList: %w", err)
	}

	groups, passthrough, err := groupConfigMaps(rl)
	if err != nil {
		return fmt.Errorf("failed to group ConfigMaps: %w", err)
	}

	merged := make([]map[string]any, 0, len(groups))
	for _, group := range groups {
		cm, err := mergeSkinGroup(group)
		if err != nil {
			return fmt.Errorf("failed to merge ConfigMap group %q: %w", group.id, err)
		}
		merged = append(merged, cm)
	}

	outputRL := ResourceList{
		APIVersion: "v1",
		Kind:       "ResourceList",
		Items:      append(passthrough, merged...),
	}

	if err := writeResourceList(out, outputRL); err != nil {
		return fmt.Errorf("failed to write ResourceList: %w", err)
	}

	return nil
}

// readResourceList reads and unmarshals a ResourceList from a reader.
func readResourceList(r io.Reader) (*ResourceList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var rl ResourceList
	if err := yaml.Unmarshal(data, &rl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ResourceList: %w", err)
	}

	return &rl, nil
}

// writeResourceList marshals and writes a ResourceList to a writer.
func writeResourceList(w io.Writer, rl ResourceList) error {
	data, err := yaml.Marshal(rl)
	if err != nil {
		return fmt.Errorf("failed to marshal ResourceList: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

// groupConfigMaps separates annotated ConfigMaps from passthrough resources.
// Groups are returned sorted by ID.
func groupConfigMaps(rl *ResourceList) ([]*skinGroup, []map[string]any, error) {
	byID := make(map[string]*skinGroup)
	var passthrough []map[string]any

	for _, item := range rl.Items {
		cm, isConfigMap, err := parseConfigMap(item)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse resource: %w", err)
		}

		if !isConfigMap {
			passthrough = append(passthrough, item)
			continue
		}

		id, ok := cm.Annotations[AnnotationID]
		if !ok || id == "" {
			passthrough = append(passthrough, item)
			continue
		}

		scm, err := parseConfigMapAnnotations(cm)
		if err != nil {
			return nil, nil, fmt.Errorf("ConfigMap %q: %w", cm.Name, err)
		}

		if byID[id] == nil {
			byID[id] = &skinGroup{id: id}
		}
		byID[id].configMaps = append(byID[id].configMaps, scm)
	}

	groups := make([]*skinGroup, 0, len(byID))
	for id, group := range byID {
		if err := prepareGroup(group); err != nil {
			return nil, nil, fmt.Errorf("ConfigMap group %q: %w", id, err)
		}
		groups = append(groups, group)
	}
	slices.SortFunc(groups, func(a, b *skinGroup) int {
		return strings.Compare(a.id, b.id)
	})

	return groups, passthrough, nil
}

// parseConfigMap attempts to parse a resource item as a ConfigMap.
func parseConfigMap(item map[string]any) (ConfigMap, bool, error) {
	apiVersion, _ := item["apiVersion"].(string)
	kind, _ := item["kind"].(string)

	if kind != "ConfigMap" {
		return ConfigMap{}, false, nil
	}

	data, err := yaml.Marshal(item)
	if err != nil {
		return ConfigMap{}, false, fmt.Errorf("failed to marshal item: %w", err)
	}

	var cm ConfigMap
	if err := yaml.Unmarshal(data, &cm); err != nil {
		return ConfigMap{}, false, fmt.Errorf("failed to unmarshal ConfigMap: %w", err)
	}

	if cm.APIVersion == "" {
		cm.APIVersion = apiVersion
	}
	if cm.Kind == "" {
		cm.Kind = kind
	}

	return cm, true, nil
}

// parseConfigMapAnnotations extracts skinmerge annotations from a ConfigMap.
func parseConfigMapAnnotations(cm ConfigMap) (*skinConfigMap, error) {
	annotations := cm.Annotations

	orderStr, ok := annotations[AnnotationOrder]
	if !ok || orderStr == "" {
		return nil, fmt.Errorf("missing required annotation %q", AnnotationOrder)
	}

	order, err := strconv.Atoi(orderStr)
	if err != nil {
		return nil, fmt.Errorf("invalid %q annotation: %w", AnnotationOrder, err)
	}

	opts, err := parseMergeOptions(annotations)
	if err != nil {
		return nil, fmt.Errorf("failed to parse merge options: %w", err)
	}

	return &skinConfigMap{
		order:     order,
		configMap: cm,
		options:   opts,
		finalName: annotations[AnnotationFinalName],
	}, nil
}

// parseMergeOptions builds merge options from annotations, starting from
// [skinmerge.SkinOptions].
func parseMergeOptions(annotations map[string]string) (skinmerge.Options, error) {
	opts := skinmerge.SkinOptions()

	if key, ok := annotations[AnnotationUnionKey]; ok {
		opts.UnionKey = strings.TrimSpace(key)
	}

	if s, ok := annotations[AnnotationSequenceFusion]; ok && s != "" {
		fusion, err := skinmerge.ParseSequenceFusion(s)
		if err != nil {
			return opts, fmt.Errorf("invalid %q annotation: %w", AnnotationSequenceFusion, err)
		}
		opts.SequenceFusion = fusion
	}

	if s, ok := annotations[AnnotationKeyedFusion]; ok && s != "" {
		fusion, err := skinmerge.ParseKeyedFusion(s)
		if err != nil {
			return opts, fmt.Errorf("invalid %q annotation: %w", AnnotationKeyedFusion, err)
		}
		opts.KeyedFusion = fusion
	}

	if s, ok := annotations[AnnotationSwapRoles]; ok && s != "" {
		swap, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return opts, fmt.Errorf("invalid %q annotation: %w", AnnotationSwapRoles, err)
		}
		opts.SwapRoles = swap
	}

	if s, ok := annotations[AnnotationClone]; ok && s != "" {
		clone, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return opts, fmt.Errorf("invalid %q annotation: %w", AnnotationClone, err)
		}
		opts.CloneOnCopy = clone
	}

	if marker, ok := annotations[AnnotationInsertionMarker]; ok && marker != "" {
		opts.InsertionMarker = marker
	}

	return opts, nil
}

// prepareGroup sorts a group by order and validates it.
func prepareGroup(group *skinGroup) error {
	slices.SortFunc(group.configMaps, func(a, b *skinConfigMap) int {
		return a.order - b.order
	})

	if len(group.configMaps) == 0 {
		return fmt.Errorf("empty ConfigMap group")
	}

	base := group.configMaps[0]
	if base.order != 0 {
		return fmt.Errorf("no base ConfigMap with order=0 (lowest order is %d)", base.order)
	}

	if base.finalName == "" {
		return fmt.Errorf("base ConfigMap %q missing required annotation %q", base.configMap.Name, AnnotationFinalName)
	}

	return nil
}

// mergeSkinGroup merges all ConfigMaps in a group into a single ConfigMap.
func mergeSkinGroup(group *skinGroup) (map[string]any, error) {
	base := group.configMaps[0]

	allKeys := make(map[string]struct{})
	for _, cm := range group.configMaps {
		for key := range cm.configMap.Data {
			allKeys[key] = struct{}{}
		}
	}

	keysToMerge := make([]string, 0, len(allKeys))
	for key := range allKeys {
		keysToMerge = append(keysToMerge, key)
	}
	slices.Sort(keysToMerge)

	mergedData := make(map[string]string)
	for _, dataKey := range keysToMerge {
		merged, err := mergeDataKey(group, dataKey)
		if err != nil {
			return nil, fmt.Errorf("failed to merge data key %q: %w", dataKey, err)
		}
		if merged != "" {
			mergedData[dataKey] = merged
		}
	}

	result := ConfigMap{
		TypeMeta: TypeMeta{
			APIVersion: "v1",
			Kind:       "ConfigMap",
		},
		ObjectMeta: ObjectMeta{
			Name:        base.finalName,
			Namespace:   base.configMap.Namespace,
			Annotations: filterSkinmergeAnnotations(base.configMap.Annotations),
			Labels:      base.configMap.Labels,
		},
		Data: mergedData,
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged ConfigMap: %w", err)
	}

	var resultMap map[string]any
	if err := yaml.Unmarshal(data, &resultMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal merged ConfigMap: %w", err)
	}

	return resultMap, nil
}

// mergeDataKey merges a single data key across all ConfigMaps in a group.
// Each step uses the options of the ConfigMap being merged in.
func mergeDataKey(group *skinGroup, dataKey string) (string, error) {
	// Parallel slices, since not every ConfigMap has every data key.
	var contents [][]byte
	var options []skinmerge.Options
	var cmNames []string
	for _, cm := range group.configMaps {
		if value, ok := cm.configMap.Data[dataKey]; ok && value != "" {
			contents = append(contents, []byte(value))
			options = append(options, cm.options)
			cmNames = append(cmNames, cm.configMap.Name)
		}
	}

	if len(contents) == 0 {
		return "", nil
	}

	if len(contents) == 1 {
		return string(contents[0]), nil
	}

	format := detectFormatFromKey(dataKey)

	result := contents[0]
	for i := 1; i < len(contents); i++ {
		merged, err := skinmerge.MergeMarshal(options[i], format.unmarshal, format.marshal, result, contents[i])
		if err != nil {
			return "", fmt.Errorf("ConfigMap %q (format: %s): %w", cmNames[i], format.name, err)
		}
		result = merged
	}

	return string(result), nil
}

// detectFormatFromKey detects the format from the data key name (e.g., "skin.json" → JSON).
// Keys without a known extension are treated as YAML, as is common in Kubernetes.
func detectFormatFromKey(dataKey string) dataFormat {
	switch strings.ToLower(filepath.Ext(dataKey)) {
	case ".json":
		return dataFormat{"json", json.Unmarshal, json.Marshal}
	case ".toml":
		return dataFormat{"toml", toml.Unmarshal, toml.Marshal}
	case ".yaml", ".yml":
		return dataFormat{"yaml", yaml.Unmarshal, yaml.Marshal}
	default:
		return dataFormat{"yaml (default)", yaml.Unmarshal, yaml.Marshal}
	}
}

// filterSkinmergeAnnotations removes skinmerge.io annotations from a map.
func filterSkinmergeAnnotations(annotations map[string]string) map[string]string {
	if annotations == nil {
		return nil
	}

	filtered := make(map[string]string)
	for key, value := range annotations {
		if !strings.HasPrefix(key, AnnotationBase) {
			filtered[key] = value
		}
	}

	if len(filtered) == 0 {
		return nil
	}

	return filtered
}
