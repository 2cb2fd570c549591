package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogInsertionOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(MethodDescriptor{Class: "b.B", Method: "second"}))
	require.NoError(t, c.Add(MethodDescriptor{Class: "a.A", Method: "first"}))
	require.NoError(t, c.Add(MethodDescriptor{Class: "b.B", Method: "third"}))

	assert.Equal(t, []string{"b.B", "a.A"}, c.Classes())
	methods := c.Methods("b.B")
	require.Len(t, methods, 2)
	assert.Equal(t, "second", methods[0].Method)
	assert.Equal(t, "third", methods[1].Method)
	assert.Equal(t, 3, c.Len())
}

func TestCatalogDuplicates(t *testing.T) {
	tests := []struct {
		name      string
		second    MethodDescriptor
		duplicate bool
	}{
		{"same identity", MethodDescriptor{Class: "p.A", Method: "f", ParameterTypes: []string{"int"}}, true},
		{"overload", MethodDescriptor{Class: "p.A", Method: "f", ParameterTypes: []string{"long"}}, false},
		{"other class", MethodDescriptor{Class: "p.B", Method: "f", ParameterTypes: []string{"int"}}, false},
		{"other name", MethodDescriptor{Class: "p.A", Method: "g", ParameterTypes: []string{"int"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			require.NoError(t, c.Add(MethodDescriptor{Class: "p.A", Method: "f", ParameterTypes: []string{"int"}}))
			err := c.Add(tt.second)
			if !tt.duplicate {
				require.NoError(t, err)
				assert.Equal(t, 2, c.Len())
				return
			}
			var dup *DuplicateMethodError
			require.True(t, errors.As(err, &dup))
			assert.Equal(t, "p.A.f(int)", dup.Descriptor.String())
			assert.Equal(t, 1, c.Len())
		})
	}
}

func TestCatalogFreezeAndReset(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(MethodDescriptor{Class: "p.A", Method: "f"}))
	c.Freeze()
	assert.True(t, c.Frozen())
	assert.ErrorIs(t, c.Add(MethodDescriptor{Class: "p.A", Method: "g"}), ErrFrozen)

	c.Reset()
	assert.False(t, c.Frozen())
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Classes())
	require.NoError(t, c.Add(MethodDescriptor{Class: "p.A", Method: "f"}))
}

func TestCatalogCopiesDescriptors(t *testing.T) {
	c := New()
	d := MethodDescriptor{Class: "p.A", Method: "f", Remote: []RemotePair{{"name", `"svc"`}}}
	require.NoError(t, c.Add(d))
	d.Remote[0].Value = "changed"

	got := c.Methods("p.A")
	assert.Equal(t, `"svc"`, got[0].Remote[0].Value)
	got[0].Remote[0].Value = "changed again"
	assert.Equal(t, `"svc"`, c.Methods("p.A")[0].Remote[0].Value)
}

func TestCatalogAddAllAndContains(t *testing.T) {
	c := New()
	err := c.AddAll([]MethodDescriptor{
		{Class: "p.A", Method: "f"},
		{Class: "p.A", Method: "f"},
		{Class: "p.A", Method: "g"},
	})
	var dup *DuplicateMethodError
	require.True(t, errors.As(err, &dup))
	assert.True(t, c.Contains(MethodDescriptor{Class: "p.A", Method: "f"}))
	assert.False(t, c.Contains(MethodDescriptor{Class: "p.A", Method: "g"}))
}
