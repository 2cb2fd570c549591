// Package catalog collects the descriptors of offloadable methods found
// during a run and serializes them as the application descriptor consumed by
// the remote-execution orchestrator.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrFrozen is returned by Add once the catalog has been frozen for
// emission.
var ErrFrozen = errors.New("catalog is frozen")

// RemotePair is one element of a @Remote annotation, value kept as its
// source lexeme.
type RemotePair struct {
	Element string
	Value   string
}

type QoSTriple struct {
	Term      string
	Operator  string
	Threshold string
}

// MethodDescriptor describes one offloadable method. ParameterTypes only
// participates in identity and is not serialized.
type MethodDescriptor struct {
	Class          string
	Method         string
	ParameterTypes []string
	Remote         []RemotePair
	QoS            []QoSTriple
}

func (d MethodDescriptor) String() string {
	return fmt.Sprintf("%s.%s(%s)", d.Class, d.Method, strings.Join(d.ParameterTypes, ", "))
}

func (d MethodDescriptor) sameMethod(o MethodDescriptor) bool {
	return d.Class == o.Class && d.Method == o.Method && slices.Equal(d.ParameterTypes, o.ParameterTypes)
}

type DuplicateMethodError struct {
	Descriptor MethodDescriptor
}

func (e *DuplicateMethodError) Error() string {
	return fmt.Sprintf("duplicate method descriptor %s", e.Descriptor)
}

// Catalog maps class names to their method descriptors, keeping insertion
// order for both. It is append-only until Reset.
type Catalog struct {
	classes []string
	methods map[string][]MethodDescriptor
	frozen  bool
}

func New() *Catalog {
	return &Catalog{methods: make(map[string][]MethodDescriptor)}
}

// Add appends d to its class. Adding the same class, method name and
// parameter types twice fails with *DuplicateMethodError.
func (c *Catalog) Add(d MethodDescriptor) error {
	if c.frozen {
		return ErrFrozen
	}
	if c.methods == nil {
		c.methods = make(map[string][]MethodDescriptor)
	}
	existing, ok := c.methods[d.Class]
	for _, e := range existing {
		if e.sameMethod(d) {
			return &DuplicateMethodError{Descriptor: d}
		}
	}
	if !ok {
		c.classes = append(c.classes, d.Class)
	}
	c.methods[d.Class] = append(existing, clone(d))
	return nil
}

// AddAll adds every descriptor in ds, stopping at the first error. Earlier
// descriptors stay in the catalog.
func (c *Catalog) AddAll(ds []MethodDescriptor) error {
	for _, d := range ds {
		if err := c.Add(d); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether a descriptor with the same identity as d is
// present.
func (c *Catalog) Contains(d MethodDescriptor) bool {
	for _, e := range c.methods[d.Class] {
		if e.sameMethod(d) {
			return true
		}
	}
	return false
}

// Classes returns the class names in insertion order.
func (c *Catalog) Classes() []string {
	return slices.Clone(c.classes)
}

// Methods returns the descriptors of class in insertion order.
func (c *Catalog) Methods(class string) []MethodDescriptor {
	ms := c.methods[class]
	out := make([]MethodDescriptor, len(ms))
	for i, m := range ms {
		out[i] = clone(m)
	}
	return out
}

func (c *Catalog) Len() int {
	n := 0
	for _, ms := range c.methods {
		n += len(ms)
	}
	return n
}

// Freeze makes the catalog read-only. Emission reads a frozen catalog.
func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) Frozen() bool {
	return c.frozen
}

// Reset empties the catalog and lifts a freeze.
func (c *Catalog) Reset() {
	c.classes = nil
	c.methods = make(map[string][]MethodDescriptor)
	c.frozen = false
}

func clone(d MethodDescriptor) MethodDescriptor {
	d.ParameterTypes = slices.Clone(d.ParameterTypes)
	d.Remote = slices.Clone(d.Remote)
	d.QoS = slices.Clone(d.QoS)
	return d
}
