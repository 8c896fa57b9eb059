package cmake

import (
	"gopkg.in/yaml.v3"
)

// Options is an ordered set of cmake cache entries. Keys are unique and keep
// the position of their first insertion.
type Options struct {
	keys   []string
	values map[string]string
}

// NewOptions creates an empty option set
func NewOptions() *Options {
	return &Options{values: map[string]string{}}
}

// Set stores key=value. Setting an existing key replaces its value in place.
func (o *Options) Set(key, value string) *Options {
	if o.values == nil {
		o.values = map[string]string{}
	}

	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.values[key] = value
	return o
}

// SetBool stores key as On or Off
func (o *Options) SetBool(key string, value bool) *Options {
	if value {
		return o.Set(key, On)
	}

	return o.Set(key, Off)
}

// Get returns the value stored for key
func (o *Options) Get(key string) (string, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is set
func (o *Options) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Len returns the number of entries
func (o *Options) Len() int {
	return len(o.keys)
}

// Keys returns the keys in insertion order
func (o *Options) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Merge copies every entry of other into o, in other's order
func (o *Options) Merge(other *Options) *Options {
	if other == nil {
		return o
	}

	for _, k := range other.keys {
		o.Set(k, other.values[k])
	}

	return o
}

// Clone returns an independent copy
func (o *Options) Clone() *Options {
	return NewOptions().Merge(o)
}

// Args renders the entries as -D<key>=<value> tokens in insertion order
func (o *Options) Args() []string {
	args := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		args = append(args, "-D"+k+"="+o.values[k])
	}

	return args
}

// MarshalYAML renders the options as a mapping that keeps insertion order
func (o *Options) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range o.keys {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: o.values[k]},
		)
	}

	return node, nil
}
